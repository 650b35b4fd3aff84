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

// Package ast defines the untyped syntax tree produced by the DSL
// parser. The type-checker (dsl.Check) records inferred result types
// for these nodes in a side map without changing their shape.
package ast

import "github.com/bocacorazon/dobonomodo/internal/model"

// Expr is any parsed expression node.
type Expr interface {
	exprNode()
	// Pos is the byte offset of this node's first token within the
	// original expression text, used for diagnostics.
	Pos() int
}

// IntLiteral is an integer literal token.
type IntLiteral struct {
	PosVal int
	Value  int64
}

// DecimalLiteral is a decimal literal token.
type DecimalLiteral struct {
	PosVal int
	Text   string
}

// StringLiteral is a double-quoted string literal with escapes
// resolved.
type StringLiteral struct {
	PosVal int
	Value  string
}

// BoolLiteral is TRUE or FALSE.
type BoolLiteral struct {
	PosVal int
	Value  bool
}

// NullLiteral is the NULL keyword.
type NullLiteral struct {
	PosVal int
}

// DateLiteral is DATE("ISO").
type DateLiteral struct {
	PosVal int
	ISO    string
}

// ColumnRef is a bare or qualified column reference:
// `column_name` or `logical_table_or_alias.column_name`.
type ColumnRef struct {
	PosVal    int
	Qualifier string // empty when bare
	Column    string
}

// SelectorRef is a {{NAME}} interpolation token. The parser only ever
// sees these pre-substituted (interpolation happens before parsing),
// so this node exists for completeness but is not produced by the
// current parser; retained so the interpolation step's diagnostics can
// report positions in terms of the AST shape it would have produced.
type SelectorRef struct {
	PosVal int
	Name   string
}

// FuncCall is a named function application, `NAME(arg, ...)`.
type FuncCall struct {
	PosVal int
	Name   string
	Args   []Expr
}

// UnaryOp is the operator of a UnaryExpr.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
)

// UnaryExpr applies NOT or unary minus to Operand.
type UnaryExpr struct {
	PosVal  int
	Op      UnaryOp
	Operand Expr
}

// BinaryOp is the operator of a BinaryExpr.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

// BinaryExpr applies a binary operator to two operands.
type BinaryExpr struct {
	PosVal int
	Op     BinaryOp
	Left   Expr
	Right  Expr
}

func (*IntLiteral) exprNode()     {}
func (*DecimalLiteral) exprNode() {}
func (*StringLiteral) exprNode()  {}
func (*BoolLiteral) exprNode()    {}
func (*NullLiteral) exprNode()    {}
func (*DateLiteral) exprNode()    {}
func (*ColumnRef) exprNode()      {}
func (*SelectorRef) exprNode()    {}
func (*FuncCall) exprNode()       {}
func (*UnaryExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}

func (n *IntLiteral) Pos() int     { return n.PosVal }
func (n *DecimalLiteral) Pos() int { return n.PosVal }
func (n *StringLiteral) Pos() int  { return n.PosVal }
func (n *BoolLiteral) Pos() int    { return n.PosVal }
func (n *NullLiteral) Pos() int    { return n.PosVal }
func (n *DateLiteral) Pos() int    { return n.PosVal }
func (n *ColumnRef) Pos() int      { return n.PosVal }
func (n *SelectorRef) Pos() int    { return n.PosVal }
func (n *FuncCall) Pos() int       { return n.PosVal }
func (n *UnaryExpr) Pos() int      { return n.PosVal }
func (n *BinaryExpr) Pos() int     { return n.PosVal }

// AggregateFuncs is the closed set of functions only valid inside an
// aggregate/append aggregation expression.
var AggregateFuncs = map[string]bool{
	"SUM":       true,
	"COUNT":     true,
	"COUNT_ALL": true,
	"AVG":       true,
	"MIN_AGG":   true,
	"MAX_AGG":   true,
}

// ScalarFuncArity documents the fixed argument count of every
// non-aggregate, non-variadic builtin, used by the parser/checker to
// give a precise arity error. Functions absent from this map are
// either variadic (CONCAT, COALESCE) or aggregate (checked
// separately).
var ScalarFuncArity = map[string]int{
	"ABS":      1,
	"ROUND":    2,
	"FLOOR":    1,
	"CEIL":     1,
	"MOD":      2,
	"MIN":      2,
	"MAX":      2,
	"UPPER":    1,
	"LOWER":    1,
	"TRIM":     1,
	"LEFT":     2,
	"RIGHT":    2,
	"LEN":      1,
	"CONTAINS": 2,
	"REPLACE":  3,
	"IF":       3,
	"ISNULL":   1,
	"DATE":     1,
	"TODAY":    0,
	"YEAR":     1,
	"MONTH":    1,
	"DAY":      1,
	"DATEDIFF": 2,
	"DATEADD":  2,
}

// KnownFunc reports whether name is any recognized function, scalar or
// aggregate, fixed-arity or variadic.
func KnownFunc(name string) bool {
	if AggregateFuncs[name] {
		return true
	}
	if _, ok := ScalarFuncArity[name]; ok {
		return true
	}
	switch name {
	case "CONCAT", "COALESCE":
		return true
	}
	return false
}

// ResultTypeHint is filled in by the type-checker on each node's
// companion entry in the dsl.CheckResult.Types map; it is not stored inline on the
// untyped ast.Expr nodes themselves, keeping ast allocation-free of any
// model dependency except for this shared type alias.
type ResultTypeHint = model.ColumnType
