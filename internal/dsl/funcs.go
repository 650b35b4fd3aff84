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

package dsl

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/bocacorazon/dobonomodo/internal/model"
)

// callScalar evaluates a non-aggregate builtin given its already
// evaluated arguments. Null propagation: every function here except
// ISNULL and COALESCE returns null as soon as any argument is null.
func callScalar(name string, args []model.Value, resultType model.ColumnType) model.Value {
	switch name {
	case "ISNULL":
		return model.BoolValue(args[0].Null)
	case "COALESCE":
		for _, a := range args {
			if !a.Null {
				return a
			}
		}
		return model.NullValue(resultType)
	}

	for _, a := range args {
		if a.Null {
			return model.NullValue(resultType)
		}
	}

	switch name {
	case "ABS":
		return absValue(args[0])
	case "FLOOR":
		return floorCeil(args[0], math.Floor)
	case "CEIL":
		return floorCeil(args[0], math.Ceil)
	case "ROUND":
		return roundDecimal(args[0], args[1].Int())
	case "MOD":
		return model.IntValue(args[0].Int() % args[1].Int())
	case "MIN":
		if args[0].Compare(args[1]) <= 0 {
			return args[0]
		}
		return args[1]
	case "MAX":
		if args[0].Compare(args[1]) >= 0 {
			return args[0]
		}
		return args[1]
	case "UPPER":
		return model.StringValue(strings.ToUpper(args[0].Str()))
	case "LOWER":
		return model.StringValue(strings.ToLower(args[0].Str()))
	case "TRIM":
		return model.StringValue(strings.TrimSpace(args[0].Str()))
	case "LEFT":
		return model.StringValue(clampSlice(args[0].Str(), 0, int(args[1].Int())))
	case "RIGHT":
		s := args[0].Str()
		n := int(args[1].Int())
		start := len(s) - n
		if start < 0 {
			start = 0
		}
		return model.StringValue(clampSlice(s, start, len(s)))
	case "LEN":
		return model.IntValue(int64(len([]rune(args[0].Str()))))
	case "CONTAINS":
		return model.BoolValue(strings.Contains(args[0].Str(), args[1].Str()))
	case "REPLACE":
		return model.StringValue(strings.ReplaceAll(args[0].Str(), args[1].Str(), args[2].Str()))
	case "IF":
		if args[0].Bool() {
			return args[1]
		}
		return args[2]
	case "YEAR":
		return model.IntValue(int64(args[0].Time().Year()))
	case "MONTH":
		return model.IntValue(int64(args[0].Time().Month()))
	case "DAY":
		return model.IntValue(int64(args[0].Time().Day()))
	case "DATEDIFF":
		d := args[0].Time().Sub(args[1].Time())
		return model.IntValue(int64(d.Hours() / 24))
	case "DATEADD":
		t := args[0].Time().AddDate(0, 0, int(args[1].Int()))
		if resultType == model.ColumnTimestamp {
			return model.TimestampValue(t)
		}
		return model.DateValue(t)
	case "CONCAT":
		var b strings.Builder
		for _, a := range args {
			b.WriteString(a.Str())
		}
		return model.StringValue(b.String())
	}
	return model.NullValue(resultType)
}

func clampSlice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}
	return s[start:end]
}

func absValue(v model.Value) model.Value {
	if v.Type == model.ColumnInteger {
		n := v.Int()
		if n < 0 {
			n = -n
		}
		return model.IntValue(n)
	}
	return model.DecimalValue(new(big.Float).Abs(v.Decimal()))
}

func floorCeil(v model.Value, f func(float64) float64) model.Value {
	if v.Type == model.ColumnInteger {
		return v
	}
	fv, _ := v.Decimal().Float64()
	return model.DecimalValue(big.NewFloat(f(fv)))
}

func roundDecimal(v model.Value, precision int64) model.Value {
	fv, _ := v.AsDecimal().Float64()
	mult := math.Pow(10, float64(precision))
	return model.DecimalValue(big.NewFloat(math.Round(fv*mult) / mult))
}

// aggregateAccumulator folds one group's per-row values into a running
// aggregate result. A fresh accumulator is created per group per
// aggregation.
type aggregateAccumulator struct {
	fn       string
	itemType model.ColumnType

	count   int64
	sum     *big.Float
	min     *model.Value
	max     *model.Value
}

func newAccumulator(fn string, itemType model.ColumnType) *aggregateAccumulator {
	return &aggregateAccumulator{fn: fn, itemType: itemType, sum: new(big.Float)}
}

// Add folds one source row's argument value (or the zero Value for
// COUNT_ALL, which ignores it) into the accumulator. Nulls are skipped
// for every aggregate except COUNT_ALL, matching SQL aggregate
// null-skipping semantics.
func (a *aggregateAccumulator) Add(v model.Value) {
	if a.fn == "COUNT_ALL" {
		a.count++
		return
	}
	if v.Null {
		return
	}
	a.count++
	switch a.fn {
	case "SUM", "AVG":
		a.sum.Add(a.sum, v.AsDecimal())
	case "MIN_AGG":
		if a.min == nil || v.Compare(*a.min) < 0 {
			cp := v
			a.min = &cp
		}
	case "MAX_AGG":
		if a.max == nil || v.Compare(*a.max) > 0 {
			cp := v
			a.max = &cp
		}
	}
}

// Result returns the accumulated value. COUNT/COUNT_ALL/SUM return
// zero for an empty group; AVG/MIN_AGG/MAX_AGG return null for an
// empty group, since there is no sensible zero value to report.
func (a *aggregateAccumulator) Result(resultType model.ColumnType) model.Value {
	switch a.fn {
	case "COUNT", "COUNT_ALL":
		return model.IntValue(a.count)
	case "SUM":
		if resultType == model.ColumnInteger {
			i, _ := a.sum.Int64()
			return model.IntValue(i)
		}
		return model.DecimalValue(a.sum)
	case "AVG":
		if a.count == 0 {
			return model.NullValue(model.ColumnDecimal)
		}
		return model.DecimalValue(new(big.Float).Quo(a.sum, big.NewFloat(float64(a.count))))
	case "MIN_AGG":
		if a.min == nil {
			return model.NullValue(resultType)
		}
		return *a.min
	case "MAX_AGG":
		if a.max == nil {
			return model.NullValue(resultType)
		}
		return *a.max
	}
	return model.NullValue(resultType)
}

// today backs TODAY(). It defaults to the wall clock but callers must
// rebind it per Run via SetClock to Run.started_at's date, since
// TODAY() is specified to never observe wall-clock time -- two
// evaluations of the same expression within one Run must agree even if
// real time passes between them.
var today = func() time.Time { return time.Now().UTC() }

// SetClock rebinds TODAY() to clock for the lifetime of the process (or
// until the next call). Run orchestration calls this once per Run,
// before compiling or evaluating any expression, with a clock that
// always returns Run.started_at.
func SetClock(clock func() time.Time) {
	today = clock
}
