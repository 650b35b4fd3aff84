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

package periodfilter

import "github.com/bocacorazon/dobonomodo/internal/model"

const (
	colPeriod     = "_period"
	colDeleted    = "_deleted"
	colPeriodFrom = "_period_from"
	colPeriodTo   = "_period_to"
	colValidFrom  = "_valid_from"
	colValidTo    = "_valid_to"
)

var systemColumnTypes = map[string]model.ColumnType{
	colPeriod:     model.ColumnString,
	colDeleted:    model.ColumnBoolean,
	colPeriodFrom: model.ColumnString,
	colPeriodTo:   model.ColumnString,
	colValidFrom:  model.ColumnDate,
	colValidTo:    model.ColumnDate,
}

// systemColumnResolver resolves the closed set of temporal system
// columns the period filter expressions reference. It never sees
// business columns or qualifiers -- the filter always runs against a
// single table's own system row.
type systemColumnResolver struct{}

func (systemColumnResolver) ResolveColumn(_ string, column string) (model.ColumnType, bool) {
	t, ok := systemColumnTypes[column]
	return t, ok
}

// systemRowContext adapts a model.Row's system columns into the DSL's
// RowContext so the compiled predicate can Eval against it directly.
type systemRowContext struct {
	row model.Row
}

func (c systemRowContext) Column(_ string, column string) model.Value {
	s := c.row.System
	switch column {
	case colPeriod:
		return model.StringValue(string(s.PeriodID))
	case colDeleted:
		return model.BoolValue(s.Deleted)
	case colPeriodFrom:
		return model.StringValue(string(s.PeriodFrom))
	case colPeriodTo:
		if s.PeriodTo == nil {
			return model.NullValue(model.ColumnString)
		}
		return model.StringValue(string(*s.PeriodTo))
	case colValidFrom:
		return model.DateValue(s.ValidFrom)
	case colValidTo:
		if s.ValidTo == nil {
			return model.NullValue(model.ColumnDate)
		}
		return model.DateValue(*s.ValidTo)
	}
	return model.Value{}
}
