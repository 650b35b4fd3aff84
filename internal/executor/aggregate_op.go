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

type aggregateHandler struct{}

// Execute runs group_by/aggregations over the rows matching the
// operation's selector (or all rows, when absent) and appends one
// freshly-lineaged summary row per group to the working dataset. Detail
// rows are never removed: spec.md treats "aggregate" as additive, the
// same way "append" is.
func (aggregateHandler) Execute(oc *opCtx, op model.Operation, ds WorkingDataset) (opOutcome, error) {
	resolve := schemaResolver{schema: ds.Schema}
	selector, err := compileSelector(oc, op.Selector, ds.Schema, resolve)
	if err != nil {
		return opOutcome{}, err
	}
	grouped := filterRows(ds.Rows, selector, func(r model.Row) dsl.RowContext {
		return plainRowContext{row: r, schema: ds.Schema}
	})

	aggs, err := compileAggregations(oc, op.Aggregate.Aggregations, ds.Schema, resolve)
	if err != nil {
		return opOutcome{}, err
	}

	summary, outSchema, err := summarizeGroups(oc, op.Seq, ds.Schema, grouped, op.Aggregate.GroupBy, aggs, oc.run.Snapshot.InputDatasetID, oc.workingLogical)
	if err != nil {
		return opOutcome{}, err
	}

	rows := make([]model.Row, 0, len(ds.Rows)+len(summary))
	rows = append(rows, ds.Rows...)
	rows = append(rows, summary...)

	return opOutcome{Dataset: WorkingDataset{Schema: outSchema, Rows: rows}}, nil
}
