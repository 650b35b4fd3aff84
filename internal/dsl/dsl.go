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

package dsl

import (
	"github.com/bocacorazon/dobonomodo/internal/dsl/ast"
	"github.com/bocacorazon/dobonomodo/internal/dsl/exprcache"
	"github.com/bocacorazon/dobonomodo/internal/model"
)

// Engine owns the compiled-expression caches for one Run. It is not
// safe to share across Runs with different selector sets, since
// interpolation output depends on the Project's selectors.
type Engine struct {
	selectors map[string]string
	rowCache  *exprcache.Cache[*CompiledRowExpr]
	aggCache  *exprcache.Cache[*CompiledAggExpr]
}

// NewEngine constructs an Engine bound to one Project's named
// selectors.
func NewEngine(selectors map[string]string) *Engine {
	return &Engine{
		selectors: selectors,
		rowCache:  exprcache.New[*CompiledRowExpr](),
		aggCache:  exprcache.New[*CompiledAggExpr](),
	}
}

// CompileRow interpolates, parses, type-checks, and lowers a
// row-context expression, serving from cache when the same expression
// text has already been compiled against an identically shaped schema.
func (e *Engine) CompileRow(exprText string, schema model.Schema, resolve ColumnResolver) (*CompiledRowExpr, error) {
	return e.rowCache.GetOrCompile(exprText, schema.Fingerprint(), int(ModeRow), func() (*CompiledRowExpr, error) {
		expr, err := e.parseInterpolated(exprText)
		if err != nil {
			return nil, err
		}
		return CompileRow(expr, resolve)
	})
}

// CompileAggregate interpolates, parses, type-checks, and lowers an
// aggregation expression.
func (e *Engine) CompileAggregate(exprText string, schema model.Schema, resolve ColumnResolver) (*CompiledAggExpr, error) {
	return e.aggCache.GetOrCompile(exprText, schema.Fingerprint(), int(ModeAggregate), func() (*CompiledAggExpr, error) {
		expr, err := e.parseInterpolated(exprText)
		if err != nil {
			return nil, err
		}
		return CompileAggregate(expr, resolve)
	})
}

func (e *Engine) parseInterpolated(exprText string) (ast.Expr, error) {
	resolved, err := Interpolate(exprText, e.selectors)
	if err != nil {
		return nil, err
	}
	return Parse(resolved)
}

// Stats reports current cache occupancy, surfaced on the trace
// engine's per-run diagnostics.
func (e *Engine) Stats() (rowEntries, aggEntries int) {
	return e.rowCache.Len(), e.aggCache.Len()
}
