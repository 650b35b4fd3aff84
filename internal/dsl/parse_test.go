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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/dsl/ast"
)

func TestParsePrecedence(t *testing.T) {
	expr, err := Parse(`1 + 2 * 3 = 7 AND NOT FALSE`)
	require.NoError(t, err)

	and, ok := expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, and.Op)

	eq, ok := and.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpEq, eq.Op)

	sum, ok := eq.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, sum.Op)

	mul, ok := sum.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)

	not, ok := and.Right.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.UnaryNot, not.Op)
}

func TestParseColumnRefs(t *testing.T) {
	expr, err := Parse(`fx.rate * quantity`)
	require.NoError(t, err)
	mul := expr.(*ast.BinaryExpr)

	left := mul.Left.(*ast.ColumnRef)
	assert.Equal(t, "fx", left.Qualifier)
	assert.Equal(t, "rate", left.Column)

	right := mul.Right.(*ast.ColumnRef)
	assert.Equal(t, "", right.Qualifier)
	assert.Equal(t, "quantity", right.Column)
}

func TestParseFuncCallAndDateLiteral(t *testing.T) {
	expr, err := Parse(`DATEDIFF(as_of, DATE("2026-01-01"))`)
	require.NoError(t, err)
	call := expr.(*ast.FuncCall)
	assert.Equal(t, "DATEDIFF", call.Name)
	require.Len(t, call.Args, 2)
	date := call.Args[1].(*ast.DateLiteral)
	assert.Equal(t, "2026-01-01", date.ISO)
}

func TestParseStringEscapes(t *testing.T) {
	expr, err := Parse(`"a \"quoted\" value"`)
	require.NoError(t, err)
	lit := expr.(*ast.StringLiteral)
	assert.Equal(t, `a "quoted" value`, lit.Value)
}

func TestParseRejectsUnknownFunction(t *testing.T) {
	_, err := Parse(`BOGUS(1)`)
	require.Error(t, err)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := Parse(`1 + 1 )`)
	require.Error(t, err)
}

func TestParseRejectsUnterminatedString(t *testing.T) {
	_, err := Parse(`"unterminated`)
	require.Error(t, err)
}

func TestParseComparisonOperators(t *testing.T) {
	cases := map[string]ast.BinaryOp{
		"1 = 1":  ast.OpEq,
		"1 <> 1": ast.OpNeq,
		"1 < 1":  ast.OpLt,
		"1 <= 1": ast.OpLte,
		"1 > 1":  ast.OpGt,
		"1 >= 1": ast.OpGte,
	}
	for src, want := range cases {
		expr, err := Parse(src)
		require.NoError(t, err, src)
		bin := expr.(*ast.BinaryExpr)
		assert.Equal(t, want, bin.Op, src)
	}
}
