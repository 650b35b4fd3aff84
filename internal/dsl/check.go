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
	"github.com/bocacorazon/dobonomodo/internal/model"
)

// ColumnResolver answers what type a column reference has, given its
// optional qualifier (alias or logical table name; empty for a bare
// reference). It is implemented by the executor's row/join context and
// by the aggregate group context.
type ColumnResolver interface {
	ResolveColumn(qualifier, column string) (model.ColumnType, bool)
}

// ColumnDependency names one column an expression reads, as discovered
// during type-checking. The executor uses the list to decide which
// working-dataset columns a compiled expression must have available.
type ColumnDependency struct {
	Qualifier string
	Column    string
}

// CheckResult is the output of checking one expression.
type CheckResult struct {
	ResultType model.ColumnType
	Deps       []ColumnDependency

	// Types records the inferred type of every node visited while
	// checking the expression, keyed by AST node identity. A NULL
	// literal's entry holds the concrete type it unified to with its
	// sibling operand, not the model.ColumnNull placeholder Check itself
	// infers for it -- compileExpr consults this map so a nested NULL
	// literal lowers to a model.Value of the right type instead of
	// always String.
	Types map[ast.Expr]model.ColumnType
}

// Mode selects which expression grammar an expression must conform to.
type Mode int

const (
	// ModeRow is ordinary row-context evaluation: used by update
	// assignments, runtime join ON clauses, selectors, and delete/output
	// filters. Aggregate function calls are rejected in this mode.
	ModeRow Mode = iota
	// ModeAggregate requires the expression be a single aggregate
	// function call (SUM, COUNT, COUNT_ALL, AVG, MIN_AGG, MAX_AGG) whose
	// non-COUNT_ALL argument, if any, is itself a row-context
	// expression evaluated per source row before aggregation.
	ModeAggregate
)

type checker struct {
	resolve ColumnResolver
	mode    Mode
	deps    []ColumnDependency
	types   map[ast.Expr]model.ColumnType
}

// Check type-checks expr under the given resolver and mode, returning
// its inferred result type and column dependencies.
func Check(expr ast.Expr, resolve ColumnResolver, mode Mode) (CheckResult, error) {
	c := &checker{resolve: resolve, mode: mode, types: map[ast.Expr]model.ColumnType{}}
	if mode == ModeAggregate {
		call, ok := expr.(*ast.FuncCall)
		if !ok || !ast.AggregateFuncs[call.Name] {
			return CheckResult{}, &InvalidAggregateContextError{Detail: "aggregation expression must be a single aggregate function call"}
		}
	}
	t, err := c.visit(expr, false)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{ResultType: t, Deps: c.deps, Types: c.types}, nil
}

// isNullable reports whether t is the NULL-literal placeholder type
// (model.ColumnNull) -- used by argument checks that must
// accept a NULL literal standing in for any type.
func isNullable(t model.ColumnType) bool { return t == model.ColumnNull }

// unify resolves a and b to a single concrete type when at most one of
// them is the NULL-literal placeholder. It reports false when both are
// concrete and differ.
func unify(a, b model.ColumnType) (model.ColumnType, bool) {
	if a == model.ColumnNull {
		return b, true
	}
	if b == model.ColumnNull {
		return a, true
	}
	if a != b {
		return "", false
	}
	return a, true
}

// resolveNull records node's unified concrete type in c.types, when node
// checked as the NULL-literal placeholder and unification with its
// sibling determined a real type -- so compileExpr lowers it to a
// model.Value of that type instead of the placeholder.
func (c *checker) resolveNull(node ast.Expr, observed, concrete model.ColumnType) {
	if observed == model.ColumnNull && concrete != model.ColumnNull {
		c.types[node] = concrete
	}
}

func (c *checker) visit(expr ast.Expr, insideAggregate bool) (model.ColumnType, error) {
	t, err := c.visitNode(expr, insideAggregate)
	if err != nil {
		return "", err
	}
	c.types[expr] = t
	return t, nil
}

func (c *checker) visitNode(expr ast.Expr, insideAggregate bool) (model.ColumnType, error) {
	switch n := expr.(type) {
	case *ast.IntLiteral:
		return model.ColumnInteger, nil
	case *ast.DecimalLiteral:
		return model.ColumnDecimal, nil
	case *ast.StringLiteral:
		return model.ColumnString, nil
	case *ast.BoolLiteral:
		return model.ColumnBoolean, nil
	case *ast.NullLiteral:
		return model.ColumnNull, nil // unifies with whatever the sibling operand turns out to be
	case *ast.DateLiteral:
		return model.ColumnDate, nil
	case *ast.ColumnRef:
		return c.visitColumnRef(n)
	case *ast.FuncCall:
		return c.visitFuncCall(n, insideAggregate)
	case *ast.UnaryExpr:
		return c.visitUnary(n)
	case *ast.BinaryExpr:
		return c.visitBinary(n)
	default:
		return "", &TypeMismatchError{Context: "expression", Detail: "unrecognized node"}
	}
}

func (c *checker) visitColumnRef(n *ast.ColumnRef) (model.ColumnType, error) {
	t, ok := c.resolve.ResolveColumn(n.Qualifier, n.Column)
	if !ok {
		return "", &UnresolvedColumnRefError{Qualifier: n.Qualifier, Column: n.Column}
	}
	c.deps = append(c.deps, ColumnDependency{Qualifier: n.Qualifier, Column: n.Column})
	return t, nil
}

func (c *checker) visitUnary(n *ast.UnaryExpr) (model.ColumnType, error) {
	t, err := c.visit(n.Operand, false)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case ast.UnaryNot:
		if t != model.ColumnBoolean {
			return "", &TypeMismatchError{Context: "NOT", Detail: "operand must be Boolean"}
		}
		return model.ColumnBoolean, nil
	case ast.UnaryNeg:
		if t != model.ColumnInteger && t != model.ColumnDecimal {
			return "", &TypeMismatchError{Context: "unary -", Detail: "operand must be Integer or Decimal"}
		}
		return t, nil
	}
	return "", &TypeMismatchError{Context: "unary", Detail: "unknown operator"}
}

func isNumeric(t model.ColumnType) bool {
	return t == model.ColumnInteger || t == model.ColumnDecimal
}

func (c *checker) visitBinary(n *ast.BinaryExpr) (model.ColumnType, error) {
	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		lt, err := c.visit(n.Left, false)
		if err != nil {
			return "", err
		}
		rt, err := c.visit(n.Right, false)
		if err != nil {
			return "", err
		}
		if lt != model.ColumnBoolean || rt != model.ColumnBoolean {
			return "", &TypeMismatchError{Context: "AND/OR", Detail: "both operands must be Boolean"}
		}
		return model.ColumnBoolean, nil

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		lt, err := c.visit(n.Left, false)
		if err != nil {
			return "", err
		}
		rt, err := c.visit(n.Right, false)
		if err != nil {
			return "", err
		}
		if (lt != model.ColumnNull && !isNumeric(lt)) || (rt != model.ColumnNull && !isNumeric(rt)) {
			return "", &TypeMismatchError{Context: "arithmetic", Detail: "operands must be Integer or Decimal"}
		}
		result := model.ColumnInteger
		switch {
		case lt == model.ColumnNull && rt == model.ColumnNull:
			result = model.ColumnNull
		case lt == model.ColumnDecimal || rt == model.ColumnDecimal:
			result = model.ColumnDecimal
		case lt == model.ColumnNull:
			result = rt
		case rt == model.ColumnNull:
			result = lt
		}
		c.resolveNull(n.Left, lt, result)
		c.resolveNull(n.Right, rt, result)
		return result, nil

	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		lt, err := c.visit(n.Left, false)
		if err != nil {
			return "", err
		}
		rt, err := c.visit(n.Right, false)
		if err != nil {
			return "", err
		}
		if lt == model.ColumnNull || rt == model.ColumnNull {
			c.resolveNull(n.Left, lt, rt)
			c.resolveNull(n.Right, rt, lt)
			return model.ColumnBoolean, nil
		}
		if isNumeric(lt) && isNumeric(rt) {
			return model.ColumnBoolean, nil
		}
		if lt != rt {
			return "", &TypeMismatchError{Context: "comparison", Detail: "operand types must match (Integer/Decimal interop excepted)"}
		}
		return model.ColumnBoolean, nil
	}
	return "", &TypeMismatchError{Context: "binary", Detail: "unknown operator"}
}

func (c *checker) visitFuncCall(n *ast.FuncCall, insideAggregate bool) (model.ColumnType, error) {
	if ast.AggregateFuncs[n.Name] {
		if c.mode != ModeAggregate || insideAggregate {
			return "", &InvalidAggregateContextError{Detail: "aggregate function " + n.Name + " is only valid as the top-level aggregation expression"}
		}
		return c.visitAggregateCall(n)
	}

	if arity, ok := ast.ScalarFuncArity[n.Name]; ok {
		if len(n.Args) != arity {
			return "", &TypeMismatchError{Context: n.Name, Detail: "wrong argument count"}
		}
	} else if n.Name != "CONCAT" && n.Name != "COALESCE" {
		return "", &TypeMismatchError{Context: n.Name, Detail: "unknown function"}
	}

	argTypes := make([]model.ColumnType, len(n.Args))
	for i, a := range n.Args {
		t, err := c.visit(a, insideAggregate)
		if err != nil {
			return "", err
		}
		argTypes[i] = t
	}
	return c.checkScalarFunc(n, argTypes)
}

func (c *checker) visitAggregateCall(n *ast.FuncCall) (model.ColumnType, error) {
	switch n.Name {
	case "COUNT_ALL":
		if len(n.Args) != 0 {
			return "", &TypeMismatchError{Context: "COUNT_ALL", Detail: "takes no arguments"}
		}
		return model.ColumnInteger, nil
	case "COUNT":
		if len(n.Args) != 1 {
			return "", &TypeMismatchError{Context: "COUNT", Detail: "takes exactly one argument"}
		}
		if _, err := c.visit(n.Args[0], true); err != nil {
			return "", err
		}
		return model.ColumnInteger, nil
	case "SUM", "AVG":
		if len(n.Args) != 1 {
			return "", &TypeMismatchError{Context: n.Name, Detail: "takes exactly one argument"}
		}
		t, err := c.visit(n.Args[0], true)
		if err != nil {
			return "", err
		}
		if !isNumeric(t) {
			return "", &TypeMismatchError{Context: n.Name, Detail: "argument must be Integer or Decimal"}
		}
		if n.Name == "AVG" {
			return model.ColumnDecimal, nil
		}
		return t, nil
	case "MIN_AGG", "MAX_AGG":
		if len(n.Args) != 1 {
			return "", &TypeMismatchError{Context: n.Name, Detail: "takes exactly one argument"}
		}
		return c.visit(n.Args[0], true)
	}
	return "", &TypeMismatchError{Context: n.Name, Detail: "unknown aggregate function"}
}

func (c *checker) checkScalarFunc(n *ast.FuncCall, args []model.ColumnType) (model.ColumnType, error) {
	name := n.Name
	numeric := func(i int) error {
		if !isNullable(args[i]) && !isNumeric(args[i]) {
			return &TypeMismatchError{Context: name, Detail: "argument must be Integer or Decimal"}
		}
		return nil
	}
	str := func(i int) error {
		if !isNullable(args[i]) && args[i] != model.ColumnString {
			return &TypeMismatchError{Context: name, Detail: "argument must be String"}
		}
		return nil
	}
	date := func(i int) error {
		if !isNullable(args[i]) && args[i] != model.ColumnDate && args[i] != model.ColumnTimestamp {
			return &TypeMismatchError{Context: name, Detail: "argument must be Date or Timestamp"}
		}
		return nil
	}

	switch name {
	case "ABS", "FLOOR", "CEIL":
		if err := numeric(0); err != nil {
			return "", err
		}
		return args[0], nil
	case "ROUND":
		if err := numeric(0); err != nil {
			return "", err
		}
		if args[1] != model.ColumnInteger {
			return "", &TypeMismatchError{Context: name, Detail: "precision must be Integer"}
		}
		return model.ColumnDecimal, nil
	case "MOD":
		if err := numeric(0); err != nil {
			return "", err
		}
		if err := numeric(1); err != nil {
			return "", err
		}
		return model.ColumnInteger, nil
	case "MIN", "MAX":
		t, ok := unify(args[0], args[1])
		if !ok {
			return "", &TypeMismatchError{Context: name, Detail: "both arguments must share a type"}
		}
		c.resolveNull(n.Args[0], args[0], t)
		c.resolveNull(n.Args[1], args[1], t)
		return t, nil
	case "UPPER", "LOWER", "TRIM":
		if err := str(0); err != nil {
			return "", err
		}
		return model.ColumnString, nil
	case "LEFT", "RIGHT":
		if err := str(0); err != nil {
			return "", err
		}
		if args[1] != model.ColumnInteger {
			return "", &TypeMismatchError{Context: name, Detail: "length must be Integer"}
		}
		return model.ColumnString, nil
	case "LEN":
		if err := str(0); err != nil {
			return "", err
		}
		return model.ColumnInteger, nil
	case "CONTAINS":
		if err := str(0); err != nil {
			return "", err
		}
		if err := str(1); err != nil {
			return "", err
		}
		return model.ColumnBoolean, nil
	case "REPLACE":
		for i := 0; i < 3; i++ {
			if err := str(i); err != nil {
				return "", err
			}
		}
		return model.ColumnString, nil
	case "IF":
		if args[0] != model.ColumnBoolean {
			return "", &TypeMismatchError{Context: "IF", Detail: "condition must be Boolean"}
		}
		t, ok := unify(args[1], args[2])
		if !ok {
			return "", &TypeMismatchError{Context: "IF", Detail: "branches must share a type"}
		}
		c.resolveNull(n.Args[1], args[1], t)
		c.resolveNull(n.Args[2], args[2], t)
		return t, nil
	case "ISNULL":
		return model.ColumnBoolean, nil
	case "DATE":
		return model.ColumnDate, nil
	case "TODAY":
		return model.ColumnDate, nil
	case "YEAR", "MONTH", "DAY":
		if err := date(0); err != nil {
			return "", err
		}
		return model.ColumnInteger, nil
	case "DATEDIFF":
		if err := date(0); err != nil {
			return "", err
		}
		if err := date(1); err != nil {
			return "", err
		}
		return model.ColumnInteger, nil
	case "DATEADD":
		if err := date(0); err != nil {
			return "", err
		}
		if args[1] != model.ColumnInteger && !isNullable(args[1]) {
			return "", &TypeMismatchError{Context: name, Detail: "day offset must be Integer"}
		}
		if isNullable(args[0]) {
			c.resolveNull(n.Args[0], args[0], model.ColumnDate)
			return model.ColumnDate, nil
		}
		return args[0], nil
	case "CONCAT":
		for i := range args {
			if err := str(i); err != nil {
				return "", err
			}
		}
		return model.ColumnString, nil
	case "COALESCE":
		if len(args) == 0 {
			return "", &TypeMismatchError{Context: "COALESCE", Detail: "requires at least one argument"}
		}
		result := model.ColumnNull
		for _, a := range args {
			if isNullable(a) {
				continue
			}
			if isNullable(result) {
				result = a
				continue
			}
			if a != result {
				return "", &TypeMismatchError{Context: "COALESCE", Detail: "arguments must share a type"}
			}
		}
		for i, a := range args {
			c.resolveNull(n.Args[i], a, result)
		}
		return result, nil
	}
	return "", &TypeMismatchError{Context: name, Detail: "unknown function"}
}
