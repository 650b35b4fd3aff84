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

// Package mysqldata is the MySQL-backed executor.DataLoader/
// OutputWriter counterpart to internal/iobound/pgdata, connecting the
// same way stdpool.OpenMySQLAsTarget does: database/sql plus the
// go-sql-driver/mysql driver, pinging in a retry loop until the server
// accepts connections.
package mysqldata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// Adapter loads from and writes to MySQL tables named by a
// ResolvedLocation's Schema/Table strategy fields.
type Adapter struct {
	db *sql.DB
}

// Open connects to dsn (a go-sql-driver/mysql data source name),
// pinging until the server is ready or ctx is canceled.
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqldata: opening connection: %w", err)
	}

	for {
		if err := db.PingContext(ctx); err == nil {
			break
		}
		log.Info("mysqldata: waiting for database to become ready")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return &Adapter{db: db}, nil
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() error { return a.db.Close() }

func quotedTable(loc resolver.ResolvedLocation) string {
	if loc.Schema != "" {
		return fmt.Sprintf("`%s`.`%s`", loc.Schema, loc.Table)
	}
	return fmt.Sprintf("`%s`", loc.Table)
}

// LoadRows executes a SELECT across schema's declared business columns
// plus the system-column set.
func (a *Adapter) LoadRows(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema) ([]model.Row, error) {
	cols := systemColumns()
	for _, c := range schema.Columns {
		cols = append(cols, string(c.Name))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoteAll(cols), ", "), quotedTable(loc))

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysqldata: querying %s: %w", quotedTable(loc), err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, rowFromScan(schema, dest))
	}
	return out, rows.Err()
}

// Write upserts rows into loc's table by _row_id via ON DUPLICATE KEY
// UPDATE, MySQL's equivalent of the Postgres adapter's ON CONFLICT
// clause, preserving the same idempotent-retry contract.
func (a *Adapter) Write(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := systemColumns()
	for _, c := range schema.Columns {
		cols = append(cols, string(c.Name))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	updateClauses := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updateClauses = append(updateClauses, fmt.Sprintf("`%s` = VALUES(`%s`)", c, c))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		quotedTable(loc), strings.Join(quoteAll(cols), ", "), placeholders, strings.Join(updateClauses, ", "))

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysqldata: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("mysqldata: preparing upsert: %w", err)
	}
	defer prepared.Close()

	for _, row := range rows {
		if _, err := prepared.ExecContext(ctx, valuesFromRow(schema, row)...); err != nil {
			return fmt.Errorf("mysqldata: writing to %s: %w", quotedTable(loc), err)
		}
	}
	return tx.Commit()
}

func systemColumns() []string {
	return []string{"_row_id", "_deleted", "_created_at", "_updated_at",
		"_source_dataset_id", "_source_table", "_created_by_project_id", "_created_by_run_id"}
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = fmt.Sprintf("`%s`", c)
	}
	return out
}

func rowFromScan(schema model.Schema, dest []any) model.Row {
	out := model.Row{Business: make(map[ident.ColumnName]model.Value, len(schema.Columns))}
	for i, col := range schema.Columns {
		out.Business[col.Name] = scalarFromAny(col.Type, dest[len(systemColumns())+i])
	}
	return out
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
		switch s := v.(type) {
		case string:
			return model.StringValue(s)
		case []byte:
			return model.StringValue(string(s))
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
