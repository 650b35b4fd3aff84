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

package executor

import (
	"strings"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// compiledAggregation pairs one aggregation's target column with its
// type-checked, lowered expression. Shared by the "aggregate" and
// "append" (with an inline aggregation) operations.
type compiledAggregation struct {
	column ident.ColumnName
	expr   *dsl.CompiledAggExpr
}

func compileAggregations(oc *opCtx, aggs []model.Aggregation, schema model.Schema, resolve dsl.ColumnResolver) ([]compiledAggregation, error) {
	out := make([]compiledAggregation, len(aggs))
	for i, a := range aggs {
		expr, err := oc.dsl.CompileAggregate(a.Expression, schema, resolve)
		if err != nil {
			return nil, err
		}
		out[i] = compiledAggregation{column: a.Column, expr: expr}
	}
	return out, nil
}

// groupKeyValues reads a row's group-by column values and folds them
// into one string suitable as a map key. A null key forms its own
// distinct group, per model.Value.GroupKey's own null handling.
func groupKeyValues(row model.Row, schema model.Schema, groupBy []ident.ColumnName) ([]model.Value, string) {
	vals := make([]model.Value, len(groupBy))
	var sb strings.Builder
	for i, col := range groupBy {
		t, _ := schema.ColumnType(col)
		vals[i] = row.Get(col, t)
		sb.WriteString(vals[i].GroupKey())
		sb.WriteByte('\x1f')
	}
	return vals, sb.String()
}

// groupRows buckets rows by group-by key, preserving first-seen group
// order so output is deterministic for a given input order.
func groupRows(rows []model.Row, schema model.Schema, groupBy []ident.ColumnName) (order []string, values map[string][]model.Value, buckets map[string][]model.Row) {
	order = make([]string, 0)
	values = make(map[string][]model.Value)
	buckets = make(map[string][]model.Row)
	for _, row := range rows {
		vals, key := groupKeyValues(row, schema, groupBy)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
			values[key] = vals
		}
		buckets[key] = append(buckets[key], row)
	}
	return order, values, buckets
}

// summarizeGroups runs group_by/aggregations over rows and returns one
// freshly-lineaged summary row per distinct group, plus detailSchema
// widened with the aggregation columns' inferred types. Every business
// column other than the group-by and aggregation columns is left
// unset, which Row.Get reports as null of its declared type.
func summarizeGroups(
	oc *opCtx,
	seq int,
	detailSchema model.Schema,
	rows []model.Row,
	groupBy []ident.ColumnName,
	aggs []compiledAggregation,
	sourceDatasetID ident.DatasetID,
	sourceTable ident.LogicalTable,
) ([]model.Row, model.Schema, error) {
	outSchema := detailSchema
	for _, a := range aggs {
		outSchema = outSchema.WithColumn(a.column, a.expr.ResultType)
	}

	order, values, buckets := groupRows(rows, detailSchema, groupBy)
	summary := make([]model.Row, 0, len(order))
	for _, key := range order {
		rowID, err := ident.NewRowID()
		if err != nil {
			return nil, model.Schema{}, err
		}
		business := make(map[ident.ColumnName]model.Value, len(groupBy)+len(aggs))
		for i, col := range groupBy {
			business[col] = values[key][i]
		}
		ctxs := make([]dsl.RowContext, len(buckets[key]))
		for i, r := range buckets[key] {
			ctxs[i] = plainRowContext{row: r, schema: detailSchema}
		}
		for _, a := range aggs {
			business[a.column] = a.expr.Evaluate(ctxs)
		}
		row := model.Row{
			System: model.SystemColumns{
				RowID:              rowID,
				CreatedAt:          runTimestamp(oc.run),
				UpdatedAt:          runTimestamp(oc.run),
				SourceDatasetID:    sourceDatasetID,
				SourceTable:        sourceTable,
				CreatedByProjectID: oc.projectID,
				CreatedByRunID:     oc.run.ID,
			},
			Business: business,
		}
		summary = append(summary, row)
		oc.recorder.RecordRow(RowEvent{OperationOrder: seq, ChangeType: ChangeCreated, RowMatch: rowID, Diff: fullRowDiff(row, outSchema)})
	}
	return summary, outSchema, nil
}

// fullRowDiff renders a newly created row's entire business column set
// as a Diff, Old pinned to the column's null, since spec.md requires a
// created event to carry the row's "full column map" rather than a
// before/after comparison.
func fullRowDiff(row model.Row, schema model.Schema) map[ident.ColumnName]ColumnDiff {
	diff := make(map[ident.ColumnName]ColumnDiff, len(schema.Columns))
	for _, c := range schema.Columns {
		diff[c.Name] = ColumnDiff{Old: model.NullValue(c.Type), New: row.Get(c.Name, c.Type)}
	}
	return diff
}
