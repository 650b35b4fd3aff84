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

// Package runtimejoin implements update-operation-scoped enrichment:
// loading another Dataset, period-filtering it, and making it available
// to the enclosing op's expressions under a named alias, without
// materializing a wide cross-product of rows.
package runtimejoin

import (
	"context"
	"fmt"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/periodfilter"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// Loader fetches the physical rows behind one resolved location. The
// executor's DataLoader boundary trait satisfies this directly.
type Loader interface {
	LoadRows(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema) ([]model.Row, error)
}

// AliasCollisionError is returned when a join's alias repeats another
// join's alias or shadows the working dataset's own logical table name.
type AliasCollisionError struct {
	Alias ident.Alias
}

func (e *AliasCollisionError) Error() string {
	return fmt.Sprintf("runtimejoin: alias %q is already bound in this operation", e.Alias)
}

// Binding is one resolved, loaded, period-filtered join ready to be
// consulted by row context lookups and compiled "on" evaluation.
type Binding struct {
	Alias  ident.Alias
	Schema model.Schema
	Rows   []model.Row
	On     *dsl.CompiledRowExpr
}

// Set is every RuntimeJoin of one update operation, resolved and bound.
type Set struct {
	bindings []*Binding
	byAlias  map[ident.Alias]*Binding
}

// Build resolves, loads, period-filters, and compiles every RuntimeJoin
// of one update op, in declaration order. workingSchema and
// workingLogicalName describe the enclosing working dataset; engine
// resolves join datasets' locations; loader fetches their rows;
// dslEngine compiles each join's "on" expression. resolverSnapshots
// supplies the enclosing Run's pinned (ResolverID, Version) per
// dataset, when one was frozen at Run creation; a join dataset absent
// from it falls back to the live resolver precedence chain.
func Build(
	ctx context.Context,
	joins []model.RuntimeJoin,
	workingSchema model.Schema,
	workingLogicalName ident.LogicalTable,
	period model.Period,
	projectID *ident.ProjectID,
	resolverSnapshots map[ident.DatasetID]model.ResolverSnapshot,
	store resolver.Store,
	engine *resolver.Engine,
	loader Loader,
	dslEngine *dsl.Engine,
) (*Set, error) {
	set := &Set{byAlias: make(map[ident.Alias]*Binding, len(joins))}

	seenAliases := map[ident.Alias]bool{ident.Alias(workingLogicalName): true}
	for _, j := range joins {
		if seenAliases[j.Alias] {
			return nil, &AliasCollisionError{Alias: j.Alias}
		}
		seenAliases[j.Alias] = true

		dataset, err := store.GetDataset(ctx, j.DatasetID, j.Version)
		if err != nil {
			return nil, err
		}

		req := resolver.Request{
			DatasetID: j.DatasetID,
			TableName: string(dataset.MainTable.LogicalName),
			PeriodID:  period.ID,
			ProjectID: projectID,
		}
		if pinned, ok := resolverSnapshots[j.DatasetID]; ok {
			req.Pinned = &pinned
		}
		locs, _, err := engine.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}

		schema := model.Schema{Columns: dataset.MainTable.Columns}
		filter, err := periodfilter.Build(dataset.MainTable.TemporalMode, period)
		if err != nil {
			return nil, err
		}

		var rows []model.Row
		for _, loc := range locs {
			loaded, err := loader.LoadRows(ctx, loc, schema)
			if err != nil {
				return nil, err
			}
			for _, r := range loaded {
				if filter.Matches(r) {
					rows = append(rows, r)
				}
			}
		}

		resolve := columnResolver{working: workingSchema, aliases: map[ident.Alias]model.Schema{j.Alias: schema}}
		on, err := dslEngine.CompileRow(j.On, joinOnSchemaKey(workingSchema, schema), resolve)
		if err != nil {
			return nil, err
		}

		b := &Binding{Alias: j.Alias, Schema: schema, Rows: rows, On: on}
		set.bindings = append(set.bindings, b)
		set.byAlias[j.Alias] = b
	}

	return set, nil
}

// joinOnSchemaKey folds both schemas into one so the expression cache
// keys an "on" clause's compiled form by the combined shape it was
// checked against, not just the working schema.
func joinOnSchemaKey(working, joined model.Schema) model.Schema {
	out := model.Schema{Columns: make([]model.ColumnDef, 0, len(working.Columns)+len(joined.Columns))}
	out.Columns = append(out.Columns, working.Columns...)
	out.Columns = append(out.Columns, joined.Columns...)
	return out
}

// ResolverFor returns a dsl.ColumnResolver exposing the working schema
// under the bare qualifier and every bound alias's schema under its own
// qualifier, for compiling an update op's assignment expressions.
func (s *Set) ResolverFor(workingSchema model.Schema) dsl.ColumnResolver {
	aliases := make(map[ident.Alias]model.Schema, len(s.bindings))
	for _, b := range s.bindings {
		aliases[b.Alias] = b.Schema
	}
	return columnResolver{working: workingSchema, aliases: aliases}
}

// RowContextFor returns the dsl.RowContext for one working row: its own
// columns under the bare qualifier, plus the first join row matching
// each alias's "on" predicate (nil/all-null if no row matches). A
// runtime join enriches rows one-for-one and never changes the working
// row count, so the first match is taken rather than fanning out one
// result row per match.
func (s *Set) RowContextFor(working model.Row, workingSchema model.Schema) dsl.RowContext {
	matched := make(map[ident.Alias]model.Row, len(s.bindings))
	aliasSchemas := make(map[ident.Alias]model.Schema, len(s.bindings))
	for _, b := range s.bindings {
		aliasSchemas[b.Alias] = b.Schema
		for _, candidate := range b.Rows {
			probe := rowContext{
				working:       working,
				workingSchema: workingSchema,
				joined:        map[ident.Alias]model.Row{b.Alias: candidate},
				joinedSchema:  map[ident.Alias]model.Schema{b.Alias: b.Schema},
			}
			v := b.On.Eval(probe)
			if !v.Null && v.Type == model.ColumnBoolean && v.Bool() {
				matched[b.Alias] = candidate
				break
			}
		}
	}

	return rowContext{
		working:       working,
		workingSchema: workingSchema,
		joined:        matched,
		joinedSchema:  aliasSchemas,
	}
}
