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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
)

type fakeRow map[string]model.Value

func (r fakeRow) Column(qualifier, column string) model.Value {
	key := column
	if qualifier != "" {
		key = qualifier + "." + column
	}
	if v, ok := r[key]; ok {
		return v
	}
	return model.Value{Null: true}
}

func mustCompileRow(t *testing.T, src string, resolver fakeResolver) *CompiledRowExpr {
	t.Helper()
	expr, err := Parse(src)
	require.NoError(t, err)
	compiled, err := CompileRow(expr, resolver)
	require.NoError(t, err)
	return compiled
}

func TestCompileRowArithmetic(t *testing.T) {
	compiled := mustCompileRow(t, "quantity * price", fakeResolver{"quantity": model.ColumnInteger, "price": model.ColumnDecimal})
	row := fakeRow{"quantity": model.IntValue(3), "price": model.DecimalValue(bigFromString(t, "2.5"))}
	got := compiled.Eval(row)
	assert.Equal(t, model.ColumnDecimal, got.Type)
	assert.Equal(t, "7.5", got.Decimal().Text('f', -1))
}

func TestCompileRowNullPropagation(t *testing.T) {
	compiled := mustCompileRow(t, "a + b", fakeResolver{"a": model.ColumnInteger, "b": model.ColumnInteger})
	row := fakeRow{"a": model.IntValue(1)} // b absent -> null
	got := compiled.Eval(row)
	assert.True(t, got.Null)
}

func TestCompileRowShortCircuitAnd(t *testing.T) {
	compiled := mustCompileRow(t, "flag AND missing", fakeResolver{"flag": model.ColumnBoolean, "missing": model.ColumnBoolean})
	row := fakeRow{"flag": model.BoolValue(false)}
	got := compiled.Eval(row)
	require.False(t, got.Null)
	assert.False(t, got.Bool())
}

func TestCompileRowIfBranch(t *testing.T) {
	compiled := mustCompileRow(t, `IF(active, "yes", "no")`, fakeResolver{"active": model.ColumnBoolean})
	got := compiled.Eval(fakeRow{"active": model.BoolValue(true)})
	assert.Equal(t, "yes", got.Str())
	got = compiled.Eval(fakeRow{"active": model.BoolValue(false)})
	assert.Equal(t, "no", got.Str())
}

func TestCompileRowStringFuncs(t *testing.T) {
	compiled := mustCompileRow(t, `UPPER(TRIM(name))`, fakeResolver{"name": model.ColumnString})
	got := compiled.Eval(fakeRow{"name": model.StringValue("  bob  ")})
	assert.Equal(t, "BOB", got.Str())
}

func TestCompileRowComparisonAgainstNullLiteral(t *testing.T) {
	compiled := mustCompileRow(t, "age = NULL", fakeResolver{"age": model.ColumnInteger})
	got := compiled.Eval(fakeRow{"age": model.IntValue(42)})
	assert.True(t, got.Null, "comparing a non-null Integer column against NULL must yield null, not a type-check error")
}

func TestCompileRowIfWithNullBranchTakesTheTypeOfItsSibling(t *testing.T) {
	compiled := mustCompileRow(t, `IF(active, amount, NULL)`, fakeResolver{"active": model.ColumnBoolean, "amount": model.ColumnDecimal})
	got := compiled.Eval(fakeRow{"active": model.BoolValue(false)})
	require.True(t, got.Null)
	assert.Equal(t, model.ColumnDecimal, got.Type, "the NULL branch must widen to the other branch's type, not String")
}

func TestCompileRowCoalesceWithNullArgument(t *testing.T) {
	compiled := mustCompileRow(t, `COALESCE(name, NULL)`, fakeResolver{"name": model.ColumnString})
	got := compiled.Eval(fakeRow{}) // name column absent -> null
	require.True(t, got.Null)
	assert.Equal(t, model.ColumnString, got.Type)
}

func TestCompileRowMinWithNullArgumentIsNull(t *testing.T) {
	compiled := mustCompileRow(t, "MIN(amount, NULL)", fakeResolver{"amount": model.ColumnDecimal})
	got := compiled.Eval(fakeRow{"amount": model.DecimalValue(bigFromString(t, "5"))})
	assert.True(t, got.Null, "MIN propagates null like every other scalar function except ISNULL/COALESCE")
}

func TestCompileAggregateSumSkipsNulls(t *testing.T) {
	resolver := fakeResolver{"amount": model.ColumnDecimal}
	expr, err := Parse("SUM(amount)")
	require.NoError(t, err)
	compiled, err := CompileAggregate(expr, resolver)
	require.NoError(t, err)

	acc := compiled.NewAccumulator()
	compiled.AddRow(acc, fakeRow{"amount": model.DecimalValue(bigFromString(t, "1.5"))})
	compiled.AddRow(acc, fakeRow{}) // null, skipped
	compiled.AddRow(acc, fakeRow{"amount": model.DecimalValue(bigFromString(t, "2.5"))})

	result := acc.Result(compiled.ResultType)
	assert.Equal(t, "4", result.Decimal().Text('f', -1))
}

func TestCompileAggregateCountAll(t *testing.T) {
	expr, err := Parse("COUNT_ALL()")
	require.NoError(t, err)
	compiled, err := CompileAggregate(expr, fakeResolver{})
	require.NoError(t, err)

	acc := compiled.NewAccumulator()
	compiled.AddRow(acc, fakeRow{})
	compiled.AddRow(acc, fakeRow{})
	assert.Equal(t, int64(2), acc.Result(compiled.ResultType).Int())
}

func bigFromString(t *testing.T, s string) *big.Float {
	t.Helper()
	f, ok := new(big.Float).SetString(s)
	require.True(t, ok)
	return f
}
