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
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

type outputHandler struct{}

// Execute writes the rows matching the operation's selector to its
// destination, leaving the working dataset itself untouched -- output
// is the one operation variant spec.md describes as observing the
// pipeline rather than advancing it.
func (outputHandler) Execute(oc *opCtx, op model.Operation, ds WorkingDataset) (opOutcome, error) {
	args := op.Output
	resolve := schemaResolver{schema: ds.Schema}
	selector, err := compileSelector(oc, op.Selector, ds.Schema, resolve)
	if err != nil {
		return opOutcome{}, err
	}

	rows := filterRows(ds.Rows, selector, func(r model.Row) dsl.RowContext {
		return plainRowContext{row: r, schema: ds.Schema}
	})
	if !args.IncludeDeleted {
		rows = notDeleted(rows)
	}

	outSchema := ds.Schema
	if len(args.Columns) > 0 {
		outSchema = projectSchema(ds.Schema, args.Columns)
		rows = projectColumns(rows, args.Columns)
	}

	loc, err := destinationLocation(args.Destination)
	if err != nil {
		return opOutcome{}, err
	}

	if err := oc.writer.Write(oc.ctx, loc, outSchema, rows); err != nil {
		return opOutcome{}, err
	}

	var registered *ident.DatasetID
	if args.RegisterAsDataset != "" {
		id, _, err := oc.registrar.RegisterDataset(oc.ctx, args.RegisterAsDataset, args.Destination)
		if err != nil {
			return opOutcome{}, err
		}
		registered = &id
	}

	oc.recorder.RecordOutput(OutputEvent{
		OperationOrder: op.Seq,
		Destination:    string(args.Destination.LogicalName),
		RowCount:       len(rows),
		Selector:       op.Selector,
		IncludeDeleted: args.IncludeDeleted,
	})

	return opOutcome{Dataset: ds, RegisteredDatasetID: registered}, nil
}

// destinationLocation binds an output destination's TableRef.Source
// directly to a physical location, rather than through the Resolver
// rule engine: an output destination is "a TableRef with a resolvable
// Location" (singular), not a historical series an input Dataset picks
// among by Period.
func destinationLocation(dest model.TableRef) (resolver.ResolvedLocation, error) {
	switch {
	case dest.Source.Inline != nil:
		return resolver.ResolvedLocation{
			DataSourceID: dest.Source.Inline.DataSourceID,
			Path:         dest.Source.Inline.Path,
			Schema:       dest.Source.Inline.Schema,
			Table:        dest.Source.Inline.Table,
		}, nil
	case dest.Source.DataSourceID != "":
		return resolver.ResolvedLocation{
			DataSourceID: dest.Source.DataSourceID,
			Table:        dest.Source.TableName,
		}, nil
	default:
		return resolver.ResolvedLocation{}, &DestinationUnresolvedError{Table: dest.LogicalName}
	}
}

// projectSchema narrows schema to columns, in the order Columns names
// them.
func projectSchema(schema model.Schema, columns []ident.ColumnName) model.Schema {
	out := model.Schema{Columns: make([]model.ColumnDef, 0, len(columns))}
	for _, name := range columns {
		if t, ok := schema.ColumnType(name); ok {
			out.Columns = append(out.Columns, model.ColumnDef{Name: name, Type: t})
		}
	}
	return out
}

// projectColumns narrows each row's business map to columns, keeping
// system columns intact.
func projectColumns(rows []model.Row, columns []ident.ColumnName) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		business := make(map[ident.ColumnName]model.Value, len(columns))
		for _, c := range columns {
			if v, ok := r.Business[c]; ok {
				business[c] = v
			}
		}
		out[i] = model.Row{System: r.System, Business: business}
	}
	return out
}
