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

package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Value is a single typed, nullable scalar flowing through the
// expression engine and the working dataset. It mirrors the column
// type enum plus an explicit null state, since the DSL's null
// propagation rules (ISNULL/COALESCE being the only way to observe a
// null) require nulls to be a first-class, typed value rather than a Go
// nil interface.
type Value struct {
	Type ColumnType
	Null bool

	i   int64
	d   *big.Float
	s   string
	b   bool
	t   time.Time
	u   uuid.UUID
}

// NullValue returns the null value of the given type.
func NullValue(t ColumnType) Value { return Value{Type: t, Null: true} }

// IntValue constructs a non-null Integer value.
func IntValue(v int64) Value { return Value{Type: ColumnInteger, i: v} }

// DecimalValue constructs a non-null Decimal value.
func DecimalValue(v *big.Float) Value { return Value{Type: ColumnDecimal, d: v} }

// StringValue constructs a non-null String value.
func StringValue(v string) Value { return Value{Type: ColumnString, s: v} }

// BoolValue constructs a non-null Boolean value.
func BoolValue(v bool) Value { return Value{Type: ColumnBoolean, b: v} }

// DateValue constructs a non-null Date value. Only the date component
// of t is significant.
func DateValue(t time.Time) Value { return Value{Type: ColumnDate, t: t.Truncate(24 * time.Hour)} }

// TimestampValue constructs a non-null Timestamp value.
func TimestampValue(t time.Time) Value { return Value{Type: ColumnTimestamp, t: t} }

// UUIDValue constructs a non-null Uuid value.
func UUIDValue(u uuid.UUID) Value { return Value{Type: ColumnUUID, u: u} }

// Int returns the Integer payload. Callers must check Type first.
func (v Value) Int() int64 { return v.i }

// Decimal returns the Decimal payload.
func (v Value) Decimal() *big.Float { return v.d }

// Str returns the String payload.
func (v Value) Str() string { return v.s }

// Bool returns the Boolean payload.
func (v Value) Bool() bool { return v.b }

// Time returns the Date/Timestamp payload.
func (v Value) Time() time.Time { return v.t }

// UUID returns the Uuid payload.
func (v Value) UUID() uuid.UUID { return v.u }

// AsDecimal widens an Integer or Decimal value to *big.Float, per the
// arithmetic promotion rule that the result is Decimal if either
// operand is Decimal.
func (v Value) AsDecimal() *big.Float {
	switch v.Type {
	case ColumnDecimal:
		return v.d
	case ColumnInteger:
		return new(big.Float).SetInt64(v.i)
	default:
		return nil
	}
}

// Equal reports value equality within the same type family. Null
// values are never equal to anything, including another null, matching
// SQL-style null semantics.
func (v Value) Equal(other Value) bool {
	if v.Null || other.Null {
		return false
	}
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ColumnInteger:
		return v.i == other.i
	case ColumnDecimal:
		return v.AsDecimal().Cmp(other.AsDecimal()) == 0
	case ColumnString:
		return v.s == other.s
	case ColumnBoolean:
		return v.b == other.b
	case ColumnDate, ColumnTimestamp:
		return v.t.Equal(other.t)
	case ColumnUUID:
		return v.u == other.u
	default:
		return false
	}
}

// Compare orders two non-null values of the same type family. It
// returns -1, 0, or 1. Comparing across incompatible families panics;
// callers (the DSL type-checker) are responsible for rejecting that
// before evaluation ever reaches Compare.
func (v Value) Compare(other Value) int {
	switch v.Type {
	case ColumnInteger, ColumnDecimal:
		return v.AsDecimal().Cmp(other.AsDecimal())
	case ColumnString:
		switch {
		case v.s < other.s:
			return -1
		case v.s > other.s:
			return 1
		default:
			return 0
		}
	case ColumnBoolean:
		if v.b == other.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case ColumnDate, ColumnTimestamp:
		switch {
		case v.t.Before(other.t):
			return -1
		case v.t.After(other.t):
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("model: cannot compare values of type %s", v.Type))
	}
}

// GroupKey renders a value into a string suitable for use as a map key
// when bucketing rows by group-by column in an aggregate operation.
// Null forms its own distinct group rather than being excluded.
func (v Value) GroupKey() string {
	if v.Null {
		return "\x00null"
	}
	switch v.Type {
	case ColumnInteger:
		return fmt.Sprintf("i:%d", v.i)
	case ColumnDecimal:
		return "d:" + v.d.Text('g', -1)
	case ColumnString:
		return "s:" + v.s
	case ColumnBoolean:
		return fmt.Sprintf("b:%v", v.b)
	case ColumnDate:
		return "date:" + v.t.Format("2006-01-02")
	case ColumnTimestamp:
		return "ts:" + v.t.Format(time.RFC3339Nano)
	case ColumnUUID:
		return "u:" + v.u.String()
	default:
		return "?"
	}
}

func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	switch v.Type {
	case ColumnInteger:
		return fmt.Sprintf("%d", v.i)
	case ColumnDecimal:
		return v.d.Text('f', -1)
	case ColumnString:
		return v.s
	case ColumnBoolean:
		return fmt.Sprintf("%v", v.b)
	case ColumnDate:
		return v.t.Format("2006-01-02")
	case ColumnTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case ColumnUUID:
		return v.u.String()
	default:
		return ""
	}
}
