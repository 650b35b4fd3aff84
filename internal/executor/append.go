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
	"github.com/bocacorazon/dobonomodo/internal/periodfilter"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

type appendHandler struct{}

// Execute loads the append source Dataset's main table, period-filters
// it (crossing Calendars via appendFilterPeriod when the source table
// lives on a different one than the Run), optionally restricts it with
// source_selector, optionally folds it through an inline aggregation,
// and appends the result to the working dataset with freshly generated
// lineage.
func (appendHandler) Execute(oc *opCtx, op model.Operation, ds WorkingDataset) (opOutcome, error) {
	args := op.Append
	dataset, err := oc.store.GetDataset(oc.ctx, args.Source.DatasetID, args.Source.Version)
	if err != nil {
		return opOutcome{}, err
	}

	period, err := appendFilterPeriod(oc, dataset.MainTable)
	if err != nil {
		return opOutcome{}, err
	}

	sourceSchema := model.Schema{Columns: dataset.MainTable.Columns}
	rows, err := loadAppendSource(oc, dataset.ID, dataset.MainTable, sourceSchema, period)
	if err != nil {
		return opOutcome{}, err
	}

	resolve := schemaResolver{schema: sourceSchema}
	if args.SourceSelector != "" {
		selector, err := oc.dsl.CompileRow(args.SourceSelector, sourceSchema, resolve)
		if err != nil {
			return opOutcome{}, err
		}
		rows = filterRows(rows, selector, func(r model.Row) dsl.RowContext {
			return plainRowContext{row: r, schema: sourceSchema}
		})
	}

	var incoming []model.Row
	if args.Aggregation != nil {
		aggs, err := compileAggregations(oc, args.Aggregation.Aggregations, sourceSchema, resolve)
		if err != nil {
			return opOutcome{}, err
		}
		incoming, _, err = summarizeGroups(oc, op.Seq, sourceSchema, rows, args.Aggregation.GroupBy, aggs, dataset.ID, dataset.MainTable.LogicalName)
		if err != nil {
			return opOutcome{}, err
		}
	} else {
		incoming = make([]model.Row, len(rows))
		for i, r := range rows {
			fresh, err := relineageForAppend(oc, r, dataset.ID, dataset.MainTable.LogicalName)
			if err != nil {
				return opOutcome{}, err
			}
			incoming[i] = fresh
		}
		for _, r := range incoming {
			oc.recorder.RecordRow(RowEvent{OperationOrder: op.Seq, ChangeType: ChangeCreated, RowMatch: r.System.RowID, Diff: fullRowDiff(r, ds.Schema)})
		}
	}

	for _, r := range incoming {
		for col := range r.Business {
			if !ds.Schema.Has(col) {
				return opOutcome{}, &AppendSchemaMismatchError{Column: col}
			}
		}
	}

	out := make([]model.Row, 0, len(ds.Rows)+len(incoming))
	out = append(out, ds.Rows...)
	out = append(out, incoming...)
	return opOutcome{Dataset: WorkingDataset{Schema: ds.Schema, Rows: out}}, nil
}

// relineageForAppend carries a source row's business values into the
// working dataset under a brand new row id and lineage, per the
// decision that append never reuses a source row's identity.
func relineageForAppend(oc *opCtx, r model.Row, sourceDatasetID ident.DatasetID, sourceTable ident.LogicalTable) (model.Row, error) {
	rowID, err := ident.NewRowID()
	if err != nil {
		return model.Row{}, err
	}
	out := r.Clone()
	out.System = model.SystemColumns{
		RowID:              rowID,
		CreatedAt:          runTimestamp(oc.run),
		UpdatedAt:          runTimestamp(oc.run),
		SourceDatasetID:    sourceDatasetID,
		SourceTable:        sourceTable,
		CreatedByProjectID: oc.projectID,
		CreatedByRunID:     oc.run.ID,
	}
	return out, nil
}

// appendFilterPeriod returns the Period an append source table should
// be filtered against: the Run's own Period when the table shares its
// Calendar, or the paired Period on the table's Calendar otherwise.
func appendFilterPeriod(oc *opCtx, table model.TableRef) (model.Period, error) {
	if table.CalendarID == (ident.CalendarID{}) || table.CalendarID == oc.period.CalendarID {
		return oc.period, nil
	}

	mapping, err := oc.store.GetCalendarMapping(oc.ctx, oc.period.CalendarID, table.CalendarID)
	if err != nil {
		return model.Period{}, err
	}
	if mapping == nil {
		return model.Period{}, &resolver.PeriodExpansionError{FromLevel: oc.period.CalendarID.String(), ToLevel: table.CalendarID.String()}
	}
	for _, pairing := range mapping.Pairings {
		if pairing.Source == oc.period.ID {
			mapped, err := oc.store.GetPeriod(oc.ctx, pairing.Target)
			if err != nil {
				return model.Period{}, err
			}
			return *mapped, nil
		}
	}
	return model.Period{}, &resolver.PeriodExpansionError{FromLevel: oc.period.CalendarID.String(), ToLevel: table.CalendarID.String()}
}

// loadAppendSource resolves and loads every physical location backing
// table at period, applying the temporal-mode predicate the same way
// runtimejoin does for its own join sources.
func loadAppendSource(oc *opCtx, datasetID ident.DatasetID, table model.TableRef, schema model.Schema, period model.Period) ([]model.Row, error) {
	req := resolver.Request{
		DatasetID: datasetID,
		TableName: string(table.LogicalName),
		PeriodID:  period.ID,
		ProjectID: &oc.projectID,
		Pinned:    pinnedResolverFor(oc.run, datasetID),
	}
	locs, _, err := oc.resolverEngine.Resolve(oc.ctx, req)
	if err != nil {
		return nil, err
	}
	filter, err := periodfilter.Build(table.TemporalMode, period)
	if err != nil {
		return nil, err
	}

	var rows []model.Row
	for _, loc := range locs {
		loaded, err := oc.loader.LoadRows(oc.ctx, loc, schema)
		if err != nil {
			return nil, err
		}
		for _, r := range loaded {
			if filter.Matches(r) {
				rows = append(rows, r)
			}
		}
	}
	return rows, nil
}
