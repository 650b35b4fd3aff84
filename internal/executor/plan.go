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
)

// WorkingDataset is the executor's materialized view of the pipeline
// state between two operations: an explicit business-column schema
// (system columns are implicit) plus the rows currently alive in it.
// The lazy re-binding chain spec.md describes lives inside each
// opHandler's Execute, which only ever touches this snapshot and hands
// back a new one -- WorkingDataset itself is never mutated in place.
type WorkingDataset struct {
	Schema model.Schema
	Rows   []model.Row
}

// notDeleted drops soft-deleted rows, independent of any
// operation-level selector. The output handler applies it when the
// operation does not set include_deleted.
func notDeleted(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if !r.System.Deleted {
			out = append(out, r)
		}
	}
	return out
}

// matchRow evaluates a possibly-nil compiled selector against one row.
// A nil selector (operation carries no selector) matches every row,
// per spec.md's "rows matching the selector, or all ... rows when
// absent" wording used by delete and echoed by every other op.
func matchRow(selector *dsl.CompiledRowExpr, ctx dsl.RowContext) bool {
	if selector == nil {
		return true
	}
	v := selector.Eval(ctx)
	return !v.Null && v.Type == model.ColumnBoolean && v.Bool()
}

// filterRows returns the rows for which the selector matches, using
// ctxFor to build each row's evaluation context.
func filterRows(rows []model.Row, selector *dsl.CompiledRowExpr, ctxFor func(model.Row) dsl.RowContext) []model.Row {
	if selector == nil {
		return rows
	}
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if matchRow(selector, ctxFor(r)) {
			out = append(out, r)
		}
	}
	return out
}
