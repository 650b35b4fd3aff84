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

// Package ident provides comparable, typed wrappers around the various
// string-shaped identifiers used across the engine (logical table
// names, column names, aliases, and the stable ids of versioned
// entities). Keeping these as distinct types lets the compiler catch
// cross-kind confusion (passing a DatasetID where a ResolverID is
// expected) that plain strings would let through silently.
package ident

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SystemPrefix marks the namespace reserved for engine-managed columns.
// User-declared column names must never begin with it.
const SystemPrefix = "_"

// ColumnName is a single column identifier, either user-declared or
// system-managed.
type ColumnName string

// IsSystem reports whether this column belongs to the reserved
// system-column namespace.
func (c ColumnName) IsSystem() bool {
	return strings.HasPrefix(string(c), SystemPrefix)
}

// ValidateUserColumn returns an error if name is not a legal
// user-declared column name.
func ValidateUserColumn(name ColumnName) error {
	if name == "" {
		return errors.New("column name must not be empty")
	}
	if name.IsSystem() {
		return errors.Errorf("column %q uses the reserved %q prefix", name, SystemPrefix)
	}
	return nil
}

// LogicalTable identifies a table within the logical data model,
// independent of where it is physically resolved.
type LogicalTable string

// Alias names a runtime-join or lookup namespace scoped to a single
// operation or Project materialization.
type Alias string

// Qualify returns a column reference qualified by this alias, e.g.
// "fx.rate" for alias "fx" and column "rate".
func (a Alias) Qualify(col ColumnName) string {
	return string(a) + "." + string(col)
}

// entity id kinds, each a distinct comparable type over uuid.UUID.
type (
	DatasetID     uuid.UUID
	ProjectID     uuid.UUID
	RunID         uuid.UUID
	ResolverID    uuid.UUID
	CalendarID    uuid.UUID
	CalendarMapID uuid.UUID
	PeriodID      string // Periods are identified by their human identifier, e.g. "2026-01".
	DataSourceID  string
)

// String implementations keep these printable in logs without a type
// assertion at every call site.

func (d DatasetID) String() string     { return uuid.UUID(d).String() }
func (p ProjectID) String() string     { return uuid.UUID(p).String() }
func (r RunID) String() string         { return uuid.UUID(r).String() }
func (r ResolverID) String() string    { return uuid.UUID(r).String() }
func (c CalendarID) String() string    { return uuid.UUID(c).String() }
func (m CalendarMapID) String() string { return uuid.UUID(m).String() }
func (p PeriodID) String() string      { return string(p) }
func (d DataSourceID) String() string  { return string(d) }

// NewDatasetID, NewProjectID, ... allocate fresh random ids. These are
// not row ids: row ids must be UUID v7 because their ordering matters;
// entity ids here carry no ordering requirement, so plain random UUID
// v4 values are used instead.
func NewDatasetID() DatasetID          { return DatasetID(uuid.New()) }
func NewProjectID() ProjectID          { return ProjectID(uuid.New()) }
func NewRunID() RunID                  { return RunID(uuid.New()) }
func NewResolverID() ResolverID        { return ResolverID(uuid.New()) }
func NewCalendarID() CalendarID        { return CalendarID(uuid.New()) }
func NewCalendarMapID() CalendarMapID  { return CalendarMapID(uuid.New()) }

// MarshalText/UnmarshalText implementations. A named type over
// uuid.UUID does not inherit uuid.UUID's own TextMarshaler, so every
// encoding/json, gopkg.in/yaml.v3, and database/sql call site that
// round-trips one of these ids needs these defined explicitly --
// without them, a Dataset or Run serialized to JSON/YAML renders its
// id fields as a 16-element byte array instead of the canonical
// hyphenated string form.

func (d DatasetID) MarshalText() ([]byte, error)  { return uuid.UUID(d).MarshalText() }
func (d *DatasetID) UnmarshalText(b []byte) error { return (*uuid.UUID)(d).UnmarshalText(b) }
func (d DatasetID) MarshalYAML() (any, error)     { return d.String(), nil }
func (d *DatasetID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(d))
}

func (p ProjectID) MarshalText() ([]byte, error)  { return uuid.UUID(p).MarshalText() }
func (p *ProjectID) UnmarshalText(b []byte) error { return (*uuid.UUID)(p).UnmarshalText(b) }
func (p ProjectID) MarshalYAML() (any, error)     { return p.String(), nil }
func (p *ProjectID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(p))
}

func (r RunID) MarshalText() ([]byte, error)  { return uuid.UUID(r).MarshalText() }
func (r *RunID) UnmarshalText(b []byte) error { return (*uuid.UUID)(r).UnmarshalText(b) }
func (r RunID) MarshalYAML() (any, error)     { return r.String(), nil }
func (r *RunID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(r))
}

func (r ResolverID) MarshalText() ([]byte, error)  { return uuid.UUID(r).MarshalText() }
func (r *ResolverID) UnmarshalText(b []byte) error { return (*uuid.UUID)(r).UnmarshalText(b) }
func (r ResolverID) MarshalYAML() (any, error)     { return r.String(), nil }
func (r *ResolverID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(r))
}

func (c CalendarID) MarshalText() ([]byte, error)  { return uuid.UUID(c).MarshalText() }
func (c *CalendarID) UnmarshalText(b []byte) error { return (*uuid.UUID)(c).UnmarshalText(b) }
func (c CalendarID) MarshalYAML() (any, error)     { return c.String(), nil }
func (c *CalendarID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(c))
}

func (m CalendarMapID) MarshalText() ([]byte, error)  { return uuid.UUID(m).MarshalText() }
func (m *CalendarMapID) UnmarshalText(b []byte) error { return (*uuid.UUID)(m).UnmarshalText(b) }
func (m CalendarMapID) MarshalYAML() (any, error)     { return m.String(), nil }
func (m *CalendarMapID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(m))
}

// decodeUUIDNode decodes node as a plain scalar string into *dest,
// the shared body behind every *ID.UnmarshalYAML above.
func decodeUUIDNode(node *yaml.Node, dest *uuid.UUID) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return errors.Wrapf(err, "parse uuid %q", s)
	}
	*dest = parsed
	return nil
}

// RowID is a UUID v7 (time-ordered) identifier assigned to every
// working-dataset row. It is immutable once assigned.
type RowID uuid.UUID

// NewRowID allocates a fresh, time-ordered row id.
func NewRowID() (RowID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return RowID{}, errors.Wrap(err, "allocate row id")
	}
	return RowID(id), nil
}

func (r RowID) String() string { return uuid.UUID(r).String() }

func (r RowID) MarshalText() ([]byte, error)  { return uuid.UUID(r).MarshalText() }
func (r *RowID) UnmarshalText(b []byte) error { return (*uuid.UUID)(r).UnmarshalText(b) }
func (r RowID) MarshalYAML() (any, error)     { return r.String(), nil }
func (r *RowID) UnmarshalYAML(node *yaml.Node) error {
	return decodeUUIDNode(node, (*uuid.UUID)(r))
}

// Zero reports whether this is the unset RowID value.
func (r RowID) Zero() bool { return r == RowID{} }
