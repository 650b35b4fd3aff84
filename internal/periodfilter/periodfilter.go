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

// Package periodfilter builds the row predicate a table's temporal_mode
// and the Run's current Period imply, so a loader can apply it to a
// lazy query plan the same way it would apply any other compiled
// boolean expression.
package periodfilter

import (
	"time"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/dsl/ast"
	"github.com/bocacorazon/dobonomodo/internal/model"
)

// Predicate is a compiled row filter ready to test against rows of a
// table loaded under a particular temporal_mode.
type Predicate struct {
	compiled *dsl.CompiledRowExpr
}

// Matches reports whether row survives the filter. A non-Boolean or
// null result (unreachable for the closed set of expressions Build
// produces) is treated as "excluded" rather than panicking.
func (p *Predicate) Matches(row model.Row) bool {
	v := p.compiled.Eval(systemRowContext{row})
	return !v.Null && v.Type == model.ColumnBoolean && v.Bool()
}

// Build compiles the predicate for mode at period. NonTemporal tables
// get an always-true predicate; Period and Bitemporal tables get the
// §4.5 comparisons, always conjoined with NOT _deleted since the loader
// may run outside the main executor (e.g. a runtime join) and cannot
// rely on the executor's own deleted-row filtering.
func Build(mode model.TemporalMode, period model.Period) (*Predicate, error) {
	expr := buildExpr(mode, period)
	compiled, err := dsl.CompileRow(expr, systemColumnResolver{})
	if err != nil {
		return nil, err
	}
	return &Predicate{compiled: compiled}, nil
}

func buildExpr(mode model.TemporalMode, period model.Period) ast.Expr {
	notDeleted := &ast.UnaryExpr{Op: ast.UnaryNot, Operand: col(colDeleted)}

	switch mode {
	case model.Period:
		periodEq := &ast.BinaryExpr{
			Op:    ast.OpEq,
			Left:  col(colPeriod),
			Right: &ast.StringLiteral{Value: string(period.ID)},
		}
		return and(periodEq, notDeleted)
	case model.Bitemporal:
		periodFromOK := &ast.BinaryExpr{
			Op:    ast.OpLte,
			Left:  col(colPeriodFrom),
			Right: &ast.StringLiteral{Value: string(period.ID)},
		}
		periodToOK := or(
			&ast.FuncCall{Name: "ISNULL", Args: []ast.Expr{col(colPeriodTo)}},
			&ast.BinaryExpr{Op: ast.OpGt, Left: col(colPeriodTo), Right: &ast.StringLiteral{Value: string(period.ID)}},
		)
		validFromOK := &ast.BinaryExpr{
			Op:    ast.OpLte,
			Left:  col(colValidFrom),
			Right: dateLit(period.StartDate),
		}
		validToOK := or(
			&ast.FuncCall{Name: "ISNULL", Args: []ast.Expr{col(colValidTo)}},
			&ast.BinaryExpr{Op: ast.OpGt, Left: col(colValidTo), Right: dateLit(period.StartDate)},
		)
		return and(and(periodFromOK, periodToOK), and(validFromOK, and(validToOK, notDeleted)))
	default:
		return &ast.BoolLiteral{Value: true}
	}
}

func col(name string) *ast.ColumnRef    { return &ast.ColumnRef{Column: name} }
func and(l, r ast.Expr) *ast.BinaryExpr { return &ast.BinaryExpr{Op: ast.OpAnd, Left: l, Right: r} }
func or(l, r ast.Expr) *ast.BinaryExpr  { return &ast.BinaryExpr{Op: ast.OpOr, Left: l, Right: r} }

func dateLit(t time.Time) *ast.DateLiteral {
	return &ast.DateLiteral{ISO: t.Format("2006-01-02")}
}
