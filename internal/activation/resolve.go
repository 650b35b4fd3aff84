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

package activation

import (
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// schemaResolver implements dsl.ColumnResolver over one unqualified
// working schema, for selectors and operations that carry no
// RuntimeJoins.
type schemaResolver struct {
	schema model.Schema
}

func (r schemaResolver) ResolveColumn(qualifier, column string) (model.ColumnType, bool) {
	if qualifier != "" {
		return "", false
	}
	return r.schema.ColumnType(ident.ColumnName(column))
}

// aliasedResolver implements dsl.ColumnResolver for one update
// operation's join "on" expression: bare columns resolve against the
// working schema, columns qualified by the join's own alias resolve
// against the joined dataset's schema.
type aliasedResolver struct {
	base   model.Schema
	alias  ident.Alias
	joined model.Schema
}

func (r aliasedResolver) ResolveColumn(qualifier, column string) (model.ColumnType, bool) {
	if qualifier == "" {
		return r.base.ColumnType(ident.ColumnName(column))
	}
	if qualifier != string(r.alias) {
		return "", false
	}
	return r.joined.ColumnType(ident.ColumnName(column))
}
