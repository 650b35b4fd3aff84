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

package mysqldata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

func TestQuotedTableWithSchema(t *testing.T) {
	loc := resolver.ResolvedLocation{Schema: "finance", Table: "gl"}
	assert.Equal(t, "`finance`.`gl`", quotedTable(loc))
}

func TestQuotedTableWithoutSchema(t *testing.T) {
	loc := resolver.ResolvedLocation{Table: "gl"}
	assert.Equal(t, "`gl`", quotedTable(loc))
}

func TestRowFromScanDecodesByteStringsAsStrings(t *testing.T) {
	schema := model.Schema{Columns: []model.ColumnDef{{Name: "memo", Type: model.ColumnString}}}
	dest := make([]any, len(systemColumns())+1)
	dest[len(systemColumns())] = []byte("hello")

	row := rowFromScan(schema, dest)
	assert.Equal(t, "hello", row.Business[ident.ColumnName("memo")].Str())
}

func TestRowFromScanNullColumnStaysNull(t *testing.T) {
	schema := model.Schema{Columns: []model.ColumnDef{{Name: "memo", Type: model.ColumnString}}}
	dest := make([]any, len(systemColumns())+1)

	row := rowFromScan(schema, dest)
	assert.True(t, row.Business[ident.ColumnName("memo")].Null)
}
