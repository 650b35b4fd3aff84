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

// Package rowdedup removes duplicate rows a retried, partially-applied
// operation may have re-produced during a resumed Run.
package rowdedup

import (
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// ByRowID implements a "last one wins" compaction over rows sharing the
// same _row_id: of any two rows with the same id, the one with the
// later _updated_at survives. Rows with distinct ids are left as-is,
// in their original relative order.
//
// This exists for the case where an "append" or "aggregate" operation
// re-runs against its already-partially-written output after a Run is
// resumed and the reassembled row set holds the same _row_id more than
// once -- ByRowID is the cleanup pass a caller runs over that row set
// before handing it on. Rows that carry different _row_id values are
// never merged, even when their business columns are identical.
//
// The input slice is modified in place and the compacted view
// returned.
func ByRowID(x []model.Row) []model.Row {
	seenIdx := make(map[ident.RowID]int, len(x))

	dest := len(x)
	for src := len(x) - 1; src >= 0; src-- {
		key := x[src].System.RowID

		if curIdx, found := seenIdx[key]; found {
			if x[src].System.UpdatedAt.After(x[curIdx].System.UpdatedAt) {
				x[curIdx] = x[src]
			}
		} else {
			dest--
			seenIdx[key] = dest
			x[dest] = x[src]
		}
	}

	return x[dest:]
}
