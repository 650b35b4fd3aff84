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

// Package activation validates a Project is internally consistent
// before it may transition from draft to active.
package activation

import (
	"context"
	"errors"
	"fmt"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// Store is the metadata surface activation needs beyond what the
// resolver engine already requires: a DataSource lookup, for output
// destinations that bind to one directly.
type Store interface {
	resolver.Store
	GetDataSource(ctx context.Context, id ident.DataSourceID) (*model.DataSource, error)
}

// FieldError names the snake_case, dotted field path of one activation
// failure and a human-actionable message.
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Message) }

// ActivationError aggregates every FieldError found. It is never
// returned with zero entries -- Validate returns nil instead.
type ActivationError struct {
	Errors []FieldError
}

func (e *ActivationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("activation: %d issues found, first: %s", len(e.Errors), e.Errors[0].Error())
}

// Request bundles a Project with everything Validate needs to check it
// against its snapshot-resolvable dependencies.
type Request struct {
	Project        *model.Project
	Store          Store
	ResolverEngine *resolver.Engine

	// SamplePeriods supplies one representative Period per reachable
	// Dataset, for check 6's resolution dry run. A Dataset absent from
	// this map skips the dry run but still has its Resolver's active
	// status checked.
	SamplePeriods map[ident.DatasetID]ident.PeriodID
}

// Validate runs every check spec.md's activation list names (the cycle
// check, 7, runs right after the selector check, 2, ahead of operation
// compilation), collecting every failure rather than stopping at the first -- a
// deliberate divergence from the teacher's own Preflight() chains,
// which return on the first error.
func Validate(ctx context.Context, req Request) error {
	var errs []FieldError
	add := func(path, format string, args ...any) {
		errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	proj := req.Project
	dslEngine := dsl.NewEngine(proj.Selectors)

	// 1. input_dataset_id exists and is active; pinned version exists.
	var inputDataset *model.Dataset
	inputDataset, err := req.Store.GetDataset(ctx, proj.InputDatasetID, &proj.InputDatasetVersion)
	if err != nil {
		add("input_dataset_id", "dataset %s version %d not found: %v", proj.InputDatasetID, proj.InputDatasetVersion, err)
	} else if inputDataset.Status != model.DatasetActive {
		add("input_dataset_id", "dataset %s is not active", proj.InputDatasetID)
	}

	var baseSchema model.Schema
	if inputDataset != nil {
		baseSchema = model.Schema{Columns: inputDataset.MainTable.Columns}
	}

	// 2. selectors compile (parse + type-check as Boolean).
	for name, text := range proj.Selectors {
		path := fmt.Sprintf("selectors.%s", name)
		expr, err := dslEngine.CompileRow(text, baseSchema, schemaResolver{baseSchema})
		if err != nil {
			add(path, "%v", err)
			continue
		}
		if expr.ResultType != model.ColumnBoolean {
			add(path, "must type-check as Boolean, got %s", expr.ResultType)
		}
	}

	// 7. named-selector graph has no cycles. Checked ahead of operation
	// compilation: a cyclic selector would otherwise surface as an
	// opaque compile failure on whichever operation references it
	// first, rather than as its own reported field.
	for name := range proj.Selectors {
		if _, err := dsl.Interpolate("{{"+name+"}}", proj.Selectors); err != nil {
			var cycleErr *dsl.CycleDetectedError
			if errors.As(err, &cycleErr) {
				add(fmt.Sprintf("selectors.%s", name), "cyclic reference: %v", cycleErr)
			}
		}
	}

	// Reachable datasets accumulated while walking operations, for
	// check 6 below.
	reachable := map[ident.DatasetID]*int{}
	if inputDataset != nil {
		reachable[proj.InputDatasetID] = &proj.InputDatasetVersion
	}

	// 3, 4, 5. each operation parses and type-checks against the
	// working schema as it evolves operation by operation; each
	// RuntimeJoin's dataset and "on" expression; each output
	// destination's DataSource.
	schema := baseSchema
	for _, op := range proj.Operations {
		path := fmt.Sprintf("operations[%d]", op.Seq)
		resolve := schemaResolver{schema}

		if op.Selector != "" {
			if _, err := dslEngine.CompileRow(op.Selector, schema, resolve); err != nil {
				add(path+".selector", "%v", err)
			}
		}

		switch op.Type {
		case model.OpUpdate:
			if op.Update == nil {
				add(path, "declares type %q but carries no update arguments", op.Type)
				break
			}
			for _, join := range op.Update.Joins {
				jpath := fmt.Sprintf("%s.joins[%s]", path, join.Alias)
				reachable[join.DatasetID] = join.Version
				joinedSchema, ok := validateActiveDataset(ctx, req, add, jpath, join.DatasetID, join.Version)
				if !ok {
					continue
				}
				joinResolve := aliasedResolver{base: schema, alias: join.Alias, joined: joinedSchema}
				if expr, err := dslEngine.CompileRow(join.On, schema, joinResolve); err != nil {
					add(jpath+".on", "%v", err)
				} else if expr.ResultType != model.ColumnBoolean {
					add(jpath+".on", "must type-check as Boolean, got %s", expr.ResultType)
				}
			}
			for _, a := range op.Update.Assignments {
				apath := fmt.Sprintf("%s.assignments.%s", path, a.Column)
				expr, err := dslEngine.CompileRow(a.Expression, schema, resolve)
				if err != nil {
					add(apath, "%v", err)
					continue
				}
				schema = schema.WithColumn(a.Column, expr.ResultType)
			}

		case model.OpAggregate:
			if op.Aggregate == nil {
				add(path, "declares type %q but carries no aggregate arguments", op.Type)
				break
			}
			schema = validateAggregation(dslEngine, add, path, schema, resolve, op.Aggregate)

		case model.OpAppend:
			if op.Append == nil {
				add(path, "declares type %q but carries no append arguments", op.Type)
				break
			}
			reachable[op.Append.Source.DatasetID] = op.Append.Source.Version
			sourceSchema, ok := validateActiveDataset(ctx, req, add, path+".append.source", op.Append.Source.DatasetID, op.Append.Source.Version)
			if ok {
				sourceResolve := schemaResolver{sourceSchema}
				if op.Append.SourceSelector != "" {
					if _, err := dslEngine.CompileRow(op.Append.SourceSelector, sourceSchema, sourceResolve); err != nil {
						add(path+".append.source_selector", "%v", err)
					}
				}
				if op.Append.Aggregation != nil {
					validateAggregation(dslEngine, add, path+".append.aggregation", sourceSchema, sourceResolve, op.Append.Aggregation)
				}
			}

		case model.OpDelete:
			// No additional structural surface beyond the selector
			// already checked above.

		case model.OpOutput:
			if op.Output == nil {
				add(path, "declares type %q but carries no output arguments", op.Type)
				break
			}
			validateDestination(ctx, req, add, path+".output.destination", op.Output.Destination)

		default:
			add(path, "unknown operation type %q", op.Type)
		}
	}

	// 6. for each Dataset reachable through joins and appends, its
	// Resolver (by precedence) is active, and resolution can be
	// dry-run for a sample Period when one was supplied.
	for id, version := range reachable {
		ds, err := req.Store.GetDataset(ctx, id, version)
		if err != nil {
			continue // already reported above as part of its own reference check
		}
		path := fmt.Sprintf("datasets[%s].resolver", id)
		resolverID, _, resv, err := req.ResolverEngine.SelectResolverForDataset(ctx, id, &proj.ID)
		if err != nil {
			add(path, "resolver %s not found: %v", resolverID, err)
			continue
		}
		if resv.Status != model.ResolverActive {
			add(path, "resolver %s is not active", resolverID)
			continue
		}
		if period, ok := req.SamplePeriods[id]; ok {
			if _, _, err := req.ResolverEngine.Resolve(ctx, resolver.Request{
				DatasetID: id,
				TableName: string(ds.MainTable.LogicalName),
				PeriodID:  period,
				ProjectID: &proj.ID,
			}); err != nil {
				add(fmt.Sprintf("datasets[%s].resolution", id), "%v", err)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ActivationError{Errors: errs}
}

func validateAggregation(dslEngine *dsl.Engine, add func(string, string, ...any), path string, schema model.Schema, resolve dsl.ColumnResolver, args *model.AggregateArgs) model.Schema {
	for _, col := range args.GroupBy {
		if !schema.Has(col) {
			add(path+".group_by", "column %q not present on the working schema", col)
		}
	}
	for _, agg := range args.Aggregations {
		apath := fmt.Sprintf("%s.aggregations.%s", path, agg.Column)
		expr, err := dslEngine.CompileAggregate(agg.Expression, schema, resolve)
		if err != nil {
			add(apath, "%v", err)
			continue
		}
		schema = schema.WithColumn(agg.Column, expr.ResultType)
	}
	return schema
}

func validateDestination(ctx context.Context, req Request, add func(string, string, ...any), path string, dest model.TableRef) {
	var dataSourceID ident.DataSourceID
	switch {
	case dest.Source.Inline != nil:
		dataSourceID = dest.Source.Inline.DataSourceID
	case dest.Source.DataSourceID != "":
		dataSourceID = dest.Source.DataSourceID
	default:
		add(path, "has neither an inline location nor a data_source_id")
		return
	}
	ds, err := req.Store.GetDataSource(ctx, dataSourceID)
	if err != nil {
		add(path, "data source %s not found: %v", dataSourceID, err)
		return
	}
	if ds.Status != model.DatasetActive {
		add(path, "data source %s is not active", dataSourceID)
	}
}

// validateActiveDataset reports whether dataset id/version exists and
// is active, returning its main table schema on success.
func validateActiveDataset(ctx context.Context, req Request, add func(string, string, ...any), path string, id ident.DatasetID, version *int) (model.Schema, bool) {
	ds, err := req.Store.GetDataset(ctx, id, version)
	if err != nil {
		add(path, "dataset %s not found: %v", id, err)
		return model.Schema{}, false
	}
	if ds.Status != model.DatasetActive {
		add(path, "dataset %s is not active", id)
		return model.Schema{}, false
	}
	return model.Schema{Columns: ds.MainTable.Columns}, true
}
