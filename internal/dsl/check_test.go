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

	"github.com/bocacorazon/dobonomodo/internal/model"
)

type fakeResolver map[string]model.ColumnType

func (f fakeResolver) ResolveColumn(qualifier, column string) (model.ColumnType, bool) {
	key := column
	if qualifier != "" {
		key = qualifier + "." + column
	}
	t, ok := f[key]
	return t, ok
}

func TestCheckArithmeticPromotesToDecimal(t *testing.T) {
	resolver := fakeResolver{"quantity": model.ColumnInteger, "rate": model.ColumnDecimal}
	expr, err := Parse("quantity * rate")
	require.NoError(t, err)
	res, err := Check(expr, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnDecimal, res.ResultType)
	assert.ElementsMatch(t, []ColumnDependency{{Column: "quantity"}, {Column: "rate"}}, res.Deps)
}

func TestCheckComparisonRequiresMatchingTypes(t *testing.T) {
	resolver := fakeResolver{"name": model.ColumnString, "flag": model.ColumnBoolean}
	expr, err := Parse("name = flag")
	require.NoError(t, err)
	_, err = Check(expr, resolver, ModeRow)
	require.Error(t, err)
	assert.IsType(t, &TypeMismatchError{}, err)
}

func TestCheckUnresolvedColumn(t *testing.T) {
	expr, err := Parse("missing_column")
	require.NoError(t, err)
	_, err = Check(expr, fakeResolver{}, ModeRow)
	require.Error(t, err)
	assert.IsType(t, &UnresolvedColumnRefError{}, err)
}

func TestCheckAggregateOutsideAggregateContextRejected(t *testing.T) {
	resolver := fakeResolver{"amount": model.ColumnDecimal}
	expr, err := Parse("SUM(amount)")
	require.NoError(t, err)
	_, err = Check(expr, resolver, ModeRow)
	require.Error(t, err)
	assert.IsType(t, &InvalidAggregateContextError{}, err)
}

func TestCheckAggregateContextRequiresSingleCall(t *testing.T) {
	resolver := fakeResolver{"amount": model.ColumnDecimal}
	expr, err := Parse("amount + 1")
	require.NoError(t, err)
	_, err = Check(expr, resolver, ModeAggregate)
	require.Error(t, err)
	assert.IsType(t, &InvalidAggregateContextError{}, err)
}

func TestCheckCountAllWithNoArgumentsIsInteger(t *testing.T) {
	expr, err := Parse("COUNT_ALL()")
	require.NoError(t, err)
	res, err := Check(expr, fakeResolver{}, ModeAggregate)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnInteger, res.ResultType)
}

func TestCheckIfRequiresBooleanConditionAndUnifiedBranches(t *testing.T) {
	resolver := fakeResolver{"active": model.ColumnBoolean, "a": model.ColumnInteger, "b": model.ColumnDecimal}
	expr, err := Parse(`IF(active, a, b)`)
	require.NoError(t, err)
	_, err = Check(expr, resolver, ModeRow)
	require.Error(t, err) // Integer and Decimal branches don't unify under IF's strict rule

	expr2, err := Parse(`IF(active, a, a)`)
	require.NoError(t, err)
	res, err := Check(expr2, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnInteger, res.ResultType)
}

func TestCheckNullLiteralUnifiesWithComparisonOperand(t *testing.T) {
	resolver := fakeResolver{"age": model.ColumnInteger, "closed_at": model.ColumnTimestamp, "active": model.ColumnBoolean}
	for _, src := range []string{"age = NULL", "closed_at <> NULL", "active = NULL", "NULL = age"} {
		expr, err := Parse(src)
		require.NoError(t, err)
		res, err := Check(expr, resolver, ModeRow)
		require.NoError(t, err, src)
		assert.Equal(t, model.ColumnBoolean, res.ResultType, src)
	}
}

func TestCheckNullLiteralUnifiesInArithmetic(t *testing.T) {
	resolver := fakeResolver{"amount": model.ColumnDecimal}
	expr, err := Parse("amount + NULL")
	require.NoError(t, err)
	res, err := Check(expr, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnDecimal, res.ResultType)
}

func TestCheckNullLiteralUnifiesIfBranch(t *testing.T) {
	resolver := fakeResolver{"active": model.ColumnBoolean, "amount": model.ColumnDecimal}
	expr, err := Parse(`IF(active, amount, NULL)`)
	require.NoError(t, err)
	res, err := Check(expr, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnDecimal, res.ResultType)

	reversed, err := Parse(`IF(active, NULL, amount)`)
	require.NoError(t, err)
	res2, err := Check(reversed, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnDecimal, res2.ResultType)
}

func TestCheckNullLiteralUnifiesInMinMaxAndCoalesce(t *testing.T) {
	resolver := fakeResolver{"name": model.ColumnString, "amount": model.ColumnDecimal}

	minExpr, err := Parse("MIN(amount, NULL)")
	require.NoError(t, err)
	res, err := Check(minExpr, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnDecimal, res.ResultType)

	coalesceExpr, err := Parse("COALESCE(name, NULL)")
	require.NoError(t, err)
	res2, err := Check(coalesceExpr, resolver, ModeRow)
	require.NoError(t, err)
	assert.Equal(t, model.ColumnString, res2.ResultType)
}

func TestCheckNullLiteralStillRejectsMismatchedConcreteSibling(t *testing.T) {
	resolver := fakeResolver{"active": model.ColumnBoolean, "amount": model.ColumnDecimal, "name": model.ColumnString}
	expr, err := Parse(`IF(active, amount, name)`)
	require.NoError(t, err)
	_, err = Check(expr, resolver, ModeRow)
	require.Error(t, err, "two concrete, differing branch types must still fail -- NULL unification must not widen this")
}
