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

// columnResolver implements dsl.ColumnResolver for an update op's
// expressions: a bare column binds to the working dataset, an
// alias-qualified column binds to that alias's join dataset schema.
type columnResolver struct {
	working model.Schema
	aliases map[ident.Alias]model.Schema
}

func (r columnResolver) ResolveColumn(qualifier, column string) (model.ColumnType, bool) {
	if qualifier == "" {
		idx := r.working.Index(ident.ColumnName(column))
		if idx < 0 {
			return "", false
		}
		return r.working.Columns[idx].Type, true
	}
	schema, ok := r.aliases[ident.Alias(qualifier)]
	if !ok {
		return "", false
	}
	idx := schema.Index(ident.ColumnName(column))
	if idx < 0 {
		return "", false
	}
	return schema.Columns[idx].Type, true
}
