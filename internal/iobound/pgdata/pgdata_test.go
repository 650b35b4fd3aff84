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

package pgdata

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

func TestQualifiedTableWithSchema(t *testing.T) {
	loc := resolver.ResolvedLocation{Schema: "public", Table: "gl"}
	assert.Equal(t, `"public"."gl"`, qualifiedTable(loc))
}

func TestQualifiedTableWithoutSchema(t *testing.T) {
	loc := resolver.ResolvedLocation{Table: "gl"}
	assert.Equal(t, `"gl"`, qualifiedTable(loc))
}

func TestRowFromValuesMapsBusinessColumnsByOffset(t *testing.T) {
	schema := model.Schema{Columns: []model.ColumnDef{
		{Name: "amount", Type: model.ColumnInteger},
		{Name: "memo", Type: model.ColumnString},
	}}
	vals := []any{
		"row-id", false, nil, nil, "dataset", "table", "project", "run",
		int64(42), "hello",
	}

	row, err := rowFromValues(schema, vals)
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.Business[ident.ColumnName("amount")].Int())
	assert.Equal(t, "hello", row.Business[ident.ColumnName("memo")].Str())
}

func TestScalarFromAnyReturnsNullForNilPayload(t *testing.T) {
	v := scalarFromAny(model.ColumnInteger, nil)
	assert.True(t, v.Null)
	assert.Equal(t, model.ColumnInteger, v.Type)
}

func TestAnyFromValueRoundTripsDecimal(t *testing.T) {
	v := model.DecimalValue(big.NewFloat(3.5))
	out := anyFromValue(v)
	assert.InDelta(t, 3.5, out.(float64), 0.0001)
}
