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
	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/runtimejoin"
)

type updateHandler struct{}

// Execute runs one update operation: build its runtime joins, compile
// its selector and assignments against the schema those joins widen
// the resolver with, then apply each assignment to every matching row
// in sequence so that an earlier assignment's result is visible to a
// later one within the same row.
func (updateHandler) Execute(oc *opCtx, op model.Operation, ds WorkingDataset) (opOutcome, error) {
	joins, err := runtimejoin.Build(
		oc.ctx,
		op.Update.Joins,
		ds.Schema,
		oc.workingLogical,
		oc.period,
		&oc.projectID,
		oc.run.Snapshot.ResolverSnapshots,
		oc.store,
		oc.resolverEngine,
		oc.loader,
		oc.dsl,
	)
	if err != nil {
		return opOutcome{}, err
	}

	resolve := joins.ResolverFor(ds.Schema)
	selector, err := compileSelector(oc, op.Selector, ds.Schema, resolve)
	if err != nil {
		return opOutcome{}, err
	}

	schema := ds.Schema
	compiledAssignments := make([]compiledAssignment, len(op.Update.Assignments))
	for i, a := range op.Update.Assignments {
		expr, err := oc.dsl.CompileRow(a.Expression, schema, resolve)
		if err != nil {
			return opOutcome{}, err
		}
		schema = schema.WithColumn(a.Column, expr.ResultType)
		compiledAssignments[i] = compiledAssignment{column: a.Column, expr: expr}
	}

	rows := make([]model.Row, len(ds.Rows))
	for i, original := range ds.Rows {
		rowCtx := liveRowContext{row: &original, schema: schema, joins: joins.RowContextFor(original, ds.Schema)}
		if !matchRow(selector, rowCtx) {
			rows[i] = original
			continue
		}

		row := original.Clone()
		diff := make(map[ident.ColumnName]ColumnDiff)
		for _, a := range compiledAssignments {
			before := row.Get(a.column, declaredType(schema, string(a.column)))
			after := a.expr.Eval(liveRowContext{row: &row, schema: schema, joins: rowCtx.joins})
			if valueChanged(before, after) {
				diff[a.column] = ColumnDiff{Old: before, New: after}
			}
			row.Business[a.column] = after
		}

		if len(diff) > 0 {
			row.System.UpdatedAt = runTimestamp(oc.run)
			oc.recorder.RecordRow(RowEvent{OperationOrder: op.Seq, ChangeType: ChangeUpdated, RowMatch: row.System.RowID, Diff: diff})
		}
		rows[i] = row
	}

	return opOutcome{Dataset: WorkingDataset{Schema: schema, Rows: rows}}, nil
}

type compiledAssignment struct {
	column ident.ColumnName
	expr   *dsl.CompiledRowExpr
}
