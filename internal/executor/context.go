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

package executor

import (
	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// schemaResolver implements dsl.ColumnResolver over a plain working
// schema, with no join aliases. Used by aggregate, append, delete, and
// output -- the four operation types that never carry RuntimeJoins.
type schemaResolver struct {
	schema model.Schema
}

func (r schemaResolver) ResolveColumn(qualifier, column string) (model.ColumnType, bool) {
	if qualifier != "" {
		return "", false
	}
	t, ok := r.schema.ColumnType(ident.ColumnName(column))
	return t, ok
}

// plainRowContext implements dsl.RowContext over one row and its
// declared schema, with no join aliases.
type plainRowContext struct {
	row    model.Row
	schema model.Schema
}

func (c plainRowContext) Column(qualifier, column string) model.Value {
	if qualifier != "" {
		return model.Value{Null: true}
	}
	return c.row.Get(ident.ColumnName(column), declaredType(c.schema, column))
}

// liveRowContext backs an update operation's assignment evaluation: bare
// columns read from row, which callers mutate in place between
// assignments so that "earlier assignments visible to later assignments
// within the same op" holds; alias-qualified columns delegate to the
// runtime join context, which never changes mid-op.
type liveRowContext struct {
	row    *model.Row
	schema model.Schema
	joins  dsl.RowContext
}

func (c liveRowContext) Column(qualifier, column string) model.Value {
	if qualifier == "" {
		return c.row.Get(ident.ColumnName(column), declaredType(c.schema, column))
	}
	return c.joins.Column(qualifier, column)
}

func declaredType(schema model.Schema, column string) model.ColumnType {
	t, ok := schema.ColumnType(ident.ColumnName(column))
	if !ok {
		return model.ColumnString
	}
	return t
}

// valueChanged reports whether b differs from a in a way worth
// recording in a trace diff. Null is never "equal" under
// model.Value.Equal even to itself, so a null-to-null transition must
// be special-cased to avoid manufacturing phantom diffs.
func valueChanged(a, b model.Value) bool {
	if a.Null != b.Null {
		return true
	}
	if a.Null {
		return false
	}
	return !a.Equal(b)
}
