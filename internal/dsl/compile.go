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
	"math/big"
	"time"

	"github.com/bocacorazon/dobonomodo/internal/dsl/ast"
	"github.com/bocacorazon/dobonomodo/internal/model"
)

// RowContext supplies column values to a compiled row expression. The
// executor's working-dataset cursor and runtime-join row implement
// this.
type RowContext interface {
	Column(qualifier, column string) model.Value
}

// CompiledRowExpr is a type-checked expression ready to evaluate
// against a single row (or row+join context).
type CompiledRowExpr struct {
	ResultType model.ColumnType
	Deps       []ColumnDependency
	eval       func(RowContext) model.Value
}

// Eval runs the compiled expression against one row context.
func (c *CompiledRowExpr) Eval(row RowContext) model.Value { return c.eval(row) }

// CompileRow type-checks and lowers a parsed expression for row-context
// evaluation (update assignments, join ON clauses, delete/output
// filters).
func CompileRow(expr ast.Expr, resolve ColumnResolver) (*CompiledRowExpr, error) {
	res, err := Check(expr, resolve, ModeRow)
	if err != nil {
		return nil, err
	}
	fn, err := compileExpr(expr, res.Types)
	if err != nil {
		return nil, err
	}
	return &CompiledRowExpr{ResultType: res.ResultType, Deps: res.Deps, eval: fn}, nil
}

// CompiledAggExpr is a type-checked aggregate expression ready to
// accumulate over a group of rows.
type CompiledAggExpr struct {
	ResultType model.ColumnType
	Deps       []ColumnDependency
	fn         string
	itemExpr   func(RowContext) model.Value
}

// NewAccumulator starts a fresh fold for one group.
func (c *CompiledAggExpr) NewAccumulator() *aggregateAccumulator {
	return newAccumulator(c.fn, c.ResultType)
}

// AddRow folds one source row into acc.
func (c *CompiledAggExpr) AddRow(acc *aggregateAccumulator, row RowContext) {
	if c.fn == "COUNT_ALL" {
		acc.Add(model.Value{})
		return
	}
	acc.Add(c.itemExpr(row))
}

// Evaluate folds an entire group of source rows and returns the
// aggregate result in one call, for callers (the executor's aggregate
// and append handlers) that only need the final value and would
// otherwise have to import the unexported accumulator type to manage
// it themselves.
func (c *CompiledAggExpr) Evaluate(rows []RowContext) model.Value {
	acc := c.NewAccumulator()
	for _, row := range rows {
		c.AddRow(acc, row)
	}
	return acc.Result(c.ResultType)
}

// CompileAggregate type-checks and lowers an aggregation expression,
// which must be a single aggregate function call.
func CompileAggregate(expr ast.Expr, resolve ColumnResolver) (*CompiledAggExpr, error) {
	res, err := Check(expr, resolve, ModeAggregate)
	if err != nil {
		return nil, err
	}
	call := expr.(*ast.FuncCall)
	out := &CompiledAggExpr{ResultType: res.ResultType, Deps: res.Deps, fn: call.Name}
	if len(call.Args) == 1 {
		fn, err := compileExpr(call.Args[0], res.Types)
		if err != nil {
			return nil, err
		}
		out.itemExpr = fn
	}
	return out, nil
}

// compileExpr lowers a type-checked node into an evaluator closure.
// types supplies every node's checked type, keyed by AST node identity
// (CheckResult.Types) -- a NULL literal looks itself up there rather
// than receiving its type from its immediate caller, so a NULL nested
// arbitrarily deep inside a comparison, arithmetic expression, or
// function call still lowers to a model.Value of the type it unified to
// during checking instead of always String.
func compileExpr(expr ast.Expr, types map[ast.Expr]model.ColumnType) (func(RowContext) model.Value, error) {
	switch n := expr.(type) {
	case *ast.IntLiteral:
		v := model.IntValue(n.Value)
		return func(RowContext) model.Value { return v }, nil
	case *ast.DecimalLiteral:
		f, ok := new(big.Float).SetString(n.Text)
		if !ok {
			return nil, &ParseError{Expr: n.Text, Pos: n.PosVal, Msg: "invalid decimal literal"}
		}
		v := model.DecimalValue(f)
		return func(RowContext) model.Value { return v }, nil
	case *ast.StringLiteral:
		v := model.StringValue(n.Value)
		return func(RowContext) model.Value { return v }, nil
	case *ast.BoolLiteral:
		v := model.BoolValue(n.Value)
		return func(RowContext) model.Value { return v }, nil
	case *ast.NullLiteral:
		v := model.NullValue(types[n])
		return func(RowContext) model.Value { return v }, nil
	case *ast.DateLiteral:
		t, err := parseISODate(n.ISO)
		if err != nil {
			return nil, &ParseError{Expr: n.ISO, Pos: n.PosVal, Msg: "invalid DATE literal: " + err.Error()}
		}
		v := model.DateValue(t)
		return func(RowContext) model.Value { return v }, nil
	case *ast.ColumnRef:
		qualifier, column := n.Qualifier, n.Column
		return func(row RowContext) model.Value { return row.Column(qualifier, column) }, nil
	case *ast.UnaryExpr:
		return compileUnary(n, types)
	case *ast.BinaryExpr:
		return compileBinary(n, types)
	case *ast.FuncCall:
		return compileFuncCall(n, types)
	}
	return nil, &TypeMismatchError{Context: "compile", Detail: "unrecognized node"}
}

func compileUnary(n *ast.UnaryExpr, types map[ast.Expr]model.ColumnType) (func(RowContext) model.Value, error) {
	operand, err := compileExpr(n.Operand, types)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.UnaryNot:
		return func(row RowContext) model.Value {
			v := operand(row)
			if v.Null {
				return model.NullValue(model.ColumnBoolean)
			}
			return model.BoolValue(!v.Bool())
		}, nil
	case ast.UnaryNeg:
		return func(row RowContext) model.Value {
			v := operand(row)
			if v.Null {
				return model.NullValue(v.Type)
			}
			if v.Type == model.ColumnInteger {
				return model.IntValue(-v.Int())
			}
			return model.DecimalValue(new(big.Float).Neg(v.Decimal()))
		}, nil
	}
	return nil, &TypeMismatchError{Context: "unary", Detail: "unknown operator"}
}

func compileBinary(n *ast.BinaryExpr, types map[ast.Expr]model.ColumnType) (func(RowContext) model.Value, error) {
	left, err := compileExpr(n.Left, types)
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(n.Right, types)
	if err != nil {
		return nil, err
	}
	op := n.Op
	return func(row RowContext) model.Value {
		lv := left(row)
		switch op {
		case ast.OpAnd:
			if !lv.Null && !lv.Bool() {
				return model.BoolValue(false)
			}
		case ast.OpOr:
			if !lv.Null && lv.Bool() {
				return model.BoolValue(true)
			}
		}
		rv := right(row)
		if lv.Null || rv.Null {
			return model.Value{Null: true}
		}
		return evalBinary(op, lv, rv)
	}, nil
}

func evalBinary(op ast.BinaryOp, lv, rv model.Value) model.Value {
	switch op {
	case ast.OpAnd:
		return model.BoolValue(lv.Bool() && rv.Bool())
	case ast.OpOr:
		return model.BoolValue(lv.Bool() || rv.Bool())
	case ast.OpEq:
		return model.BoolValue(lv.Equal(rv))
	case ast.OpNeq:
		return model.BoolValue(!lv.Equal(rv))
	case ast.OpLt:
		return model.BoolValue(lv.Compare(rv) < 0)
	case ast.OpLte:
		return model.BoolValue(lv.Compare(rv) <= 0)
	case ast.OpGt:
		return model.BoolValue(lv.Compare(rv) > 0)
	case ast.OpGte:
		return model.BoolValue(lv.Compare(rv) >= 0)
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		return evalArith(op, lv, rv)
	}
	return model.Value{}
}

func evalArith(op ast.BinaryOp, lv, rv model.Value) model.Value {
	decimalResult := lv.Type == model.ColumnDecimal || rv.Type == model.ColumnDecimal
	if !decimalResult {
		a, b := lv.Int(), rv.Int()
		switch op {
		case ast.OpAdd:
			return model.IntValue(a + b)
		case ast.OpSub:
			return model.IntValue(a - b)
		case ast.OpMul:
			return model.IntValue(a * b)
		case ast.OpDiv:
			if b == 0 {
				return model.NullValue(model.ColumnInteger)
			}
			return model.IntValue(a / b)
		}
	}
	a, b := lv.AsDecimal(), rv.AsDecimal()
	switch op {
	case ast.OpAdd:
		return model.DecimalValue(new(big.Float).Add(a, b))
	case ast.OpSub:
		return model.DecimalValue(new(big.Float).Sub(a, b))
	case ast.OpMul:
		return model.DecimalValue(new(big.Float).Mul(a, b))
	case ast.OpDiv:
		if b.Sign() == 0 {
			return model.NullValue(model.ColumnDecimal)
		}
		return model.DecimalValue(new(big.Float).Quo(a, b))
	}
	return model.Value{}
}

func compileFuncCall(n *ast.FuncCall, types map[ast.Expr]model.ColumnType) (func(RowContext) model.Value, error) {
	if n.Name == "TODAY" {
		return func(RowContext) model.Value { return model.DateValue(today()) }, nil
	}
	args := make([]func(RowContext) model.Value, len(n.Args))
	for i, a := range n.Args {
		fn, err := compileExpr(a, types)
		if err != nil {
			return nil, err
		}
		args[i] = fn
	}
	name := n.Name
	resultType := types[n]
	return func(row RowContext) model.Value {
		vals := make([]model.Value, len(args))
		for i, a := range args {
			vals[i] = a(row)
		}
		return callScalar(name, vals, resultType)
	}, nil
}

func parseISODate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
