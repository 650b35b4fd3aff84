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

package runtimejoin

import (
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// rowContext implements dsl.RowContext over one working row plus the
// (at most one, possibly absent) matched row per join alias. An
// unmatched alias reads as all-null, i.e. left-join semantics.
type rowContext struct {
	working       model.Row
	workingSchema model.Schema
	joined        map[ident.Alias]model.Row
	joinedSchema  map[ident.Alias]model.Schema
}

func (c rowContext) Column(qualifier, column string) model.Value {
	if qualifier == "" {
		return declaredGet(c.working, c.workingSchema, column)
	}
	schema, ok := c.joinedSchema[ident.Alias(qualifier)]
	if !ok {
		return model.Value{Null: true}
	}
	row, matched := c.joined[ident.Alias(qualifier)]
	if !matched {
		return model.NullValue(declaredType(schema, column))
	}
	return declaredGet(row, schema, column)
}

func declaredType(schema model.Schema, column string) model.ColumnType {
	idx := schema.Index(ident.ColumnName(column))
	if idx < 0 {
		return model.ColumnString
	}
	return schema.Columns[idx].Type
}

func declaredGet(row model.Row, schema model.Schema, column string) model.Value {
	return row.Get(ident.ColumnName(column), declaredType(schema, column))
}
