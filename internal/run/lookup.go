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

package run

import (
	"context"
	"fmt"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// valueKey renders v as a comparable map key. Only equality matters
// here, never ordering or display, so each type's raw payload is
// formatted behind a short type prefix rather than through Value.String().
func valueKey(v model.Value) string {
	if v.Null {
		return "\x00null\x01"
	}
	switch v.Type {
	case model.ColumnInteger:
		return fmt.Sprintf("i:%d", v.Int())
	case model.ColumnDecimal:
		return fmt.Sprintf("d:%s", v.Decimal().Text('f', -1))
	case model.ColumnBoolean:
		return fmt.Sprintf("b:%t", v.Bool())
	case model.ColumnDate, model.ColumnTimestamp:
		return fmt.Sprintf("t:%s", v.Time().UTC().Format("2006-01-02T15:04:05.999999999Z"))
	case model.ColumnUUID:
		return fmt.Sprintf("u:%s", v.UUID().String())
	default:
		return fmt.Sprintf("s:%s", v.Str())
	}
}

// materializeLookup left-joins one pre-defined Lookup into rows under
// its declared alias, widening schema with the lookup's columns
// prefixed "alias.column", the same naming convention
// aliasedResolver/runtimejoin use for a RuntimeJoin's own alias-scoped
// columns. Non-matching rows receive typed nulls for every joined
// column, never an absent Business entry.
func materializeLookup(ctx context.Context, r *Runner, run *model.Run, period model.Period, schema model.Schema, rows []model.Row, lookup model.Lookup) ([]model.Row, model.Schema, error) {
	var (
		joinSchema model.Schema
		joinRows   []model.Row
		err        error
	)

	switch {
	case lookup.Table != nil:
		joinSchema = model.Schema{Columns: lookup.Table.Columns}
		joinRows, err = r.loadTable(ctx, run, ident.DatasetID{}, *lookup.Table, joinSchema, period)
	case lookup.Dataset != nil:
		ds, getErr := r.Store.GetDataset(ctx, lookup.Dataset.DatasetID, lookup.Dataset.Version)
		if getErr != nil {
			return nil, model.Schema{}, fmt.Errorf("run: materializing lookup %s: %w", lookup.Alias, getErr)
		}
		joinSchema = model.Schema{Columns: ds.MainTable.Columns}
		joinRows, err = r.loadTable(ctx, run, ds.ID, ds.MainTable, joinSchema, period)
	default:
		return nil, model.Schema{}, fmt.Errorf("run: lookup %s declares neither table nor dataset", lookup.Alias)
	}
	if err != nil {
		return nil, model.Schema{}, err
	}

	widened := schema
	for _, col := range joinSchema.Columns {
		widened = widened.WithColumn(ident.ColumnName(string(lookup.Alias)+"."+string(col.Name)), col.Type)
	}

	index := indexByJoinKeys(joinRows, lookup.On)
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		merged := row.Clone()
		match, ok := index[joinKey(row, lookup.On, false)]
		for _, col := range joinSchema.Columns {
			qualified := ident.ColumnName(string(lookup.Alias) + "." + string(col.Name))
			if ok {
				merged.Business[qualified] = match.Get(col.Name, col.Type)
			} else {
				merged.Business[qualified] = model.NullValue(col.Type)
			}
		}
		out[i] = merged
	}

	return out, widened, nil
}

// indexByJoinKeys builds a lookup from each join row's right-hand key
// values to the row itself. A lookup with a non-unique key keeps the
// last row seen for a given key, matching the working dataset's own
// "last one wins" convention elsewhere.
func indexByJoinKeys(rows []model.Row, on []model.JoinCondition) map[string]model.Row {
	index := make(map[string]model.Row, len(rows))
	for _, row := range rows {
		index[joinKey(row, on, true)] = row
	}
	return index
}

// joinKey renders the ordered tuple of key column values as a string,
// reading the left-hand column from a working-dataset row or the
// right-hand column from a lookup row depending on fromJoinSide.
func joinKey(row model.Row, on []model.JoinCondition, fromJoinSide bool) string {
	key := ""
	for _, cond := range on {
		col := cond.LeftColumn
		if fromJoinSide {
			col = cond.RightColumn
		}
		v, ok := row.Business[col]
		if !ok {
			key += "\x00null\x01"
			continue
		}
		key += valueKey(v) + "\x01"
	}
	return key
}
