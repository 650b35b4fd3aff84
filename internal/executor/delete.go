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
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

type deleteHandler struct{}

// Execute soft-deletes every row matching the operation's selector (or
// every row, when absent): _deleted flips false -> true and
// _updated_at is stamped, only for rows not already deleted -- this
// handler only ever sees live rows, since the executor's Run loop
// withholds already-deleted rows before calling it, but a selector-less
// delete run twice in the same Run would otherwise double-count.
func (deleteHandler) Execute(oc *opCtx, op model.Operation, ds WorkingDataset) (opOutcome, error) {
	resolve := schemaResolver{schema: ds.Schema}
	selector, err := compileSelector(oc, op.Selector, ds.Schema, resolve)
	if err != nil {
		return opOutcome{}, err
	}

	rows := make([]model.Row, len(ds.Rows))
	for i, row := range ds.Rows {
		ctx := plainRowContext{row: row, schema: ds.Schema}
		if row.System.Deleted || !matchRow(selector, ctx) {
			rows[i] = row
			continue
		}

		row.System.Deleted = true
		row.System.UpdatedAt = runTimestamp(oc.run)
		rows[i] = row

		oc.recorder.RecordRow(RowEvent{
			OperationOrder: op.Seq,
			ChangeType:     ChangeUpdated,
			RowMatch:       row.System.RowID,
			Diff: map[ident.ColumnName]ColumnDiff{
				"_deleted": {Old: model.BoolValue(false), New: model.BoolValue(true)},
			},
		})
	}

	return opOutcome{Dataset: WorkingDataset{Schema: ds.Schema, Rows: rows}}, nil
}
