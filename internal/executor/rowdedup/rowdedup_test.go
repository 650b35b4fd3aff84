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

package rowdedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

func rowAt(t *testing.T, id ident.RowID, updatedAt time.Time, amount string) model.Row {
	t.Helper()
	return model.Row{
		System:   model.SystemColumns{RowID: id, UpdatedAt: updatedAt},
		Business: map[ident.ColumnName]model.Value{"amount": model.StringValue(amount)},
	}
}

func newRowID(t *testing.T) ident.RowID {
	t.Helper()
	id, err := ident.NewRowID()
	require.NoError(t, err)
	return id
}

func TestByRowIDKeepsLatestUpdatedAt(t *testing.T) {
	id := newRowID(t)
	other := newRowID(t)
	t0 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	rows := []model.Row{
		rowAt(t, id, t0, "stale"),
		rowAt(t, other, t0, "untouched"),
		rowAt(t, id, t1, "fresh"),
	}

	out := ByRowID(rows)
	require.Len(t, out, 2)

	byID := make(map[ident.RowID]model.Row, len(out))
	for _, r := range out {
		byID[r.System.RowID] = r
	}
	assert.Equal(t, "fresh", byID[id].Business["amount"].Str())
	assert.Equal(t, "untouched", byID[other].Business["amount"].Str())
}

func TestByRowIDNoDuplicatesIsUnchanged(t *testing.T) {
	a := newRowID(t)
	b := newRowID(t)
	now := time.Now().UTC()

	rows := []model.Row{rowAt(t, a, now, "a"), rowAt(t, b, now, "b")}
	out := ByRowID(rows)

	require.Len(t, out, 2)
	assert.ElementsMatch(t, []ident.RowID{a, b}, []ident.RowID{out[0].System.RowID, out[1].System.RowID})
}
