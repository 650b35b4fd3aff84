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

// Package model contains the entities, enums, and schemas that define
// the shape of a Project: Datasets, Projects, Operations, Periods,
// Calendars, Resolvers, DataSources, and Runs. Every type here is data
// only; the packages that act on this data (dsl, resolver, executor,
// run) live alongside it, not inside it, so that the model can be
// imported by any layer without incurring a dependency on execution
// logic.
package model

import (
	"time"

	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// ColumnType enumerates the scalar types a TableRef column may declare.
type ColumnType string

// The supported column types.
const (
	ColumnInteger   ColumnType = "Integer"
	ColumnDecimal   ColumnType = "Decimal"
	ColumnString    ColumnType = "String"
	ColumnBoolean   ColumnType = "Boolean"
	ColumnDate      ColumnType = "Date"
	ColumnTimestamp ColumnType = "Timestamp"
	ColumnUUID      ColumnType = "Uuid"

	// ColumnNull is never a declared column type. It is the DSL
	// type-checker's inferred type for a NULL literal before it unifies
	// with a sibling operand's real type -- a schema column can end up
	// with this type only if an assignment's expression is a bare NULL
	// with nothing to unify against.
	ColumnNull ColumnType = "Null"
)

// TemporalMode describes how a table's rows relate to time.
type TemporalMode string

// The three supported temporal modes.
const (
	NonTemporal TemporalMode = "NonTemporal"
	Period      TemporalMode = "Period"
	Bitemporal  TemporalMode = "Bitemporal"
)

// ColumnDef describes one user-declared column of a TableRef.
type ColumnDef struct {
	Name     ident.ColumnName `yaml:"name" json:"name"`
	Type     ColumnType       `yaml:"type" json:"type"`
	Nullable bool             `yaml:"nullable" json:"nullable"`
}

// Location is an inline, resolver-independent physical data location.
// Used when a TableRef binds directly to storage rather than through a
// DataSource + Resolver pair.
type Location struct {
	DataSourceID ident.DataSourceID `yaml:"datasource_id" json:"datasource_id"`
	Path         string             `yaml:"path,omitempty" json:"path,omitempty"`
	Schema       string             `yaml:"schema,omitempty" json:"schema,omitempty"`
	Table        string             `yaml:"table,omitempty" json:"table,omitempty"`
}

// SourceBinding is the discriminated union of how a TableRef locates
// its data: either a (datasource, table/path) pair resolved at Run time
// through the Resolver engine, or a fixed inline Location.
type SourceBinding struct {
	DataSourceID ident.DataSourceID `yaml:"datasource_id,omitempty" json:"datasource_id,omitempty"`
	TableName    string             `yaml:"table,omitempty" json:"table,omitempty"`
	Inline       *Location          `yaml:"inline,omitempty" json:"inline,omitempty"`
}

// Resolved reports whether this binding requires resolver indirection
// (false) or already carries a concrete Location (true).
func (b SourceBinding) Resolved() bool { return b.Inline != nil }

// TableRef describes one logical table: its temporal mode, its ordered
// column list, and how its data is located.
type TableRef struct {
	LogicalName  ident.LogicalTable `yaml:"logical_name" json:"logical_name"`
	TemporalMode TemporalMode       `yaml:"temporal_mode" json:"temporal_mode"`
	Columns      []ColumnDef        `yaml:"columns" json:"columns"`
	Source       SourceBinding      `yaml:"source" json:"source"`
	// CalendarID names the Calendar this table's periods belong to.
	// Required when TemporalMode is Period or Bitemporal; used to
	// detect cross-calendar appends.
	CalendarID ident.CalendarID `yaml:"calendar_id,omitempty" json:"calendar_id,omitempty"`
}

// JoinCondition is one equality clause of a lookup's foreign key.
type JoinCondition struct {
	LeftColumn  ident.ColumnName `yaml:"left_column" json:"left_column"`
	RightColumn ident.ColumnName `yaml:"right_column" json:"right_column"`
}

// DatasetRef points at a Dataset, optionally pinned to a specific
// version. An unpinned reference means "latest active at Run time."
type DatasetRef struct {
	DatasetID ident.DatasetID `yaml:"dataset_id" json:"dataset_id"`
	Version   *int            `yaml:"dataset_version,omitempty" json:"dataset_version,omitempty"`
}

// Lookup is a pre-defined join attached to a Dataset: either a TableRef
// or a nested Dataset, joined in via one or more FK JoinConditions.
type Lookup struct {
	Table      *TableRef       `yaml:"table,omitempty" json:"table,omitempty"`
	Dataset    *DatasetRef     `yaml:"dataset,omitempty" json:"dataset,omitempty"`
	On         []JoinCondition `yaml:"on" json:"on"`
	Alias      ident.Alias     `yaml:"alias,omitempty" json:"alias,omitempty"`
}

// DatasetStatus is the Dataset lifecycle state.
type DatasetStatus string

const (
	DatasetActive   DatasetStatus = "active"
	DatasetDisabled DatasetStatus = "disabled"
)

// Dataset is a structural definition of a logical data shape; it does
// not own data.
type Dataset struct {
	ID                 ident.DatasetID    `yaml:"id" json:"id"`
	Version            int                `yaml:"version" json:"version"`
	Status             DatasetStatus      `yaml:"status" json:"status"`
	MainTable          TableRef           `yaml:"main_table" json:"main_table"`
	Lookups            []Lookup           `yaml:"lookups,omitempty" json:"lookups,omitempty"`
	NaturalKeyColumns  []ident.ColumnName `yaml:"natural_key_columns,omitempty" json:"natural_key_columns,omitempty"`
	ResolverID         *ident.ResolverID  `yaml:"resolver_id,omitempty" json:"resolver_id,omitempty"`
}

// Materialization describes when pre-defined lookups are flattened into
// the working dataset.
type Materialization string

const (
	MaterializeEager   Materialization = "eager"
	MaterializeRuntime Materialization = "runtime"
)

// ProjectStatus is the Project lifecycle state.
type ProjectStatus string

const (
	ProjectDraft    ProjectStatus = "draft"
	ProjectActive   ProjectStatus = "active"
	ProjectInactive ProjectStatus = "inactive"
	ProjectConflict ProjectStatus = "conflict"
)

// ConflictReport explains why a Project moved to ProjectConflict.
type ConflictReport struct {
	FromVersion int              `yaml:"from_version" json:"from_version"`
	ToVersion   int              `yaml:"to_version" json:"to_version"`
	Breaks      []ColumnBreak    `yaml:"breaks" json:"breaks"`
	DetectedAt  time.Time        `yaml:"detected_at" json:"detected_at"`
}

// ColumnBreak names one breaking Dataset-version column change:
// removed, renamed, or type-changed.
type ColumnBreak struct {
	Column ident.ColumnName `yaml:"column" json:"column"`
	Kind   string           `yaml:"kind" json:"kind"` // "removed", "renamed", "type_changed"
	Detail string           `yaml:"detail,omitempty" json:"detail,omitempty"`
}

// Project is an ordered sequence of Operations plus named selectors
// bound to a pinned input Dataset version.
type Project struct {
	ID                   ident.ProjectID               `yaml:"id" json:"id"`
	Version              int                           `yaml:"version" json:"version"`
	Status               ProjectStatus                 `yaml:"status" json:"status"`
	InputDatasetID       ident.DatasetID               `yaml:"input_dataset_id" json:"input_dataset_id"`
	InputDatasetVersion  int                           `yaml:"input_dataset_version" json:"input_dataset_version"`
	Materialization      Materialization               `yaml:"materialization" json:"materialization"`
	Selectors            map[string]string             `yaml:"selectors,omitempty" json:"selectors,omitempty"`
	Operations           []Operation                   `yaml:"operations" json:"operations"`
	ResolverOverrides    map[ident.DatasetID]ident.ResolverID `yaml:"resolver_overrides,omitempty" json:"resolver_overrides,omitempty"`
	ConflictReport       *ConflictReport               `yaml:"conflict_report,omitempty" json:"conflict_report,omitempty"`
}

// OperationType is the closed set of operation variants.
type OperationType string

const (
	OpUpdate    OperationType = "update"
	OpAggregate OperationType = "aggregate"
	OpAppend    OperationType = "append"
	OpDelete    OperationType = "delete"
	OpOutput    OperationType = "output"
)

// Assignment is one {column, expression} pair of an update operation.
type Assignment struct {
	Column     ident.ColumnName `yaml:"column" json:"column"`
	Expression string           `yaml:"expression" json:"expression"`
}

// RuntimeJoin enriches an update operation's row context with columns
// from another Dataset, under a namespace equal to Alias.
type RuntimeJoin struct {
	Alias     ident.Alias       `yaml:"alias" json:"alias"`
	DatasetID ident.DatasetID   `yaml:"dataset_id" json:"dataset_id"`
	Version   *int              `yaml:"dataset_version,omitempty" json:"dataset_version,omitempty"`
	On        string            `yaml:"on" json:"on"`
}

// UpdateArgs are the arguments of an "update" operation.
type UpdateArgs struct {
	Joins       []RuntimeJoin `yaml:"joins,omitempty" json:"joins,omitempty"`
	Assignments []Assignment  `yaml:"assignments" json:"assignments"`
}

// Aggregation is one {column, expression} pair of an aggregate
// operation, where expression must be a single aggregate call.
type Aggregation struct {
	Column     ident.ColumnName `yaml:"column" json:"column"`
	Expression string           `yaml:"expression" json:"expression"`
}

// AggregateArgs are the arguments of an "aggregate" operation.
type AggregateArgs struct {
	GroupBy      []ident.ColumnName `yaml:"group_by" json:"group_by"`
	Aggregations []Aggregation      `yaml:"aggregations" json:"aggregations"`
}

// AppendArgs are the arguments of an "append" operation.
type AppendArgs struct {
	Source         DatasetRef     `yaml:"source" json:"source"`
	SourceSelector string         `yaml:"source_selector,omitempty" json:"source_selector,omitempty"`
	Aggregation    *AggregateArgs `yaml:"aggregation,omitempty" json:"aggregation,omitempty"`
}

// OutputArgs are the arguments of an "output" operation.
type OutputArgs struct {
	Destination       TableRef           `yaml:"destination" json:"destination"`
	Columns           []ident.ColumnName `yaml:"columns,omitempty" json:"columns,omitempty"`
	IncludeDeleted    bool               `yaml:"include_deleted,omitempty" json:"include_deleted,omitempty"`
	RegisterAsDataset string             `yaml:"register_as_dataset,omitempty" json:"register_as_dataset,omitempty"`
}

// Operation is one step of a Project's pipeline. Exactly one of the
// *Args fields is populated, selected by Type -- a closed, tagged
// variant, dispatched by the executor without open polymorphism.
type Operation struct {
	Type     OperationType `yaml:"type" json:"type"`
	Seq      int           `yaml:"seq" json:"seq"`
	Selector string        `yaml:"selector,omitempty" json:"selector,omitempty"`

	Update    *UpdateArgs    `yaml:"update,omitempty" json:"update,omitempty"`
	Aggregate *AggregateArgs `yaml:"aggregate,omitempty" json:"aggregate,omitempty"`
	Append    *AppendArgs    `yaml:"append,omitempty" json:"append,omitempty"`
	Delete    *struct{}      `yaml:"delete,omitempty" json:"delete,omitempty"`
	Output    *OutputArgs    `yaml:"output,omitempty" json:"output,omitempty"`
}

// PeriodStatus is the Period lifecycle state; transitions are strictly
// forward.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "open"
	PeriodClosed PeriodStatus = "closed"
	PeriodLocked PeriodStatus = "locked"
)

// Period is a bounded interval belonging to one Calendar.
type Period struct {
	ID         ident.PeriodID    `yaml:"identifier" json:"identifier"`
	CalendarID ident.CalendarID  `yaml:"calendar_id" json:"calendar_id"`
	Level      string            `yaml:"level" json:"level"`
	Year       int               `yaml:"year" json:"year"`
	Sequence   int               `yaml:"sequence" json:"sequence"`
	StartDate  time.Time         `yaml:"start_date" json:"start_date"`
	EndDate    time.Time         `yaml:"end_date" json:"end_date"`
	Status     PeriodStatus      `yaml:"status" json:"status"`
	ParentID   *ident.PeriodID   `yaml:"parent_id,omitempty" json:"parent_id,omitempty"`
}

// DateRules governs auto-generation of Periods at a given Calendar
// level.
type DateRules struct {
	// AnchorMonth is the 1-based month a "year" level period begins on
	// (for fiscal calendars); zero means calendar-year anchored.
	AnchorMonth int `yaml:"anchor_month,omitempty" json:"anchor_month,omitempty"`
	// PeriodsPerYear is how many sibling periods a year decomposes
	// into at this level (e.g. 12 for month, 4 for quarter).
	PeriodsPerYear int `yaml:"periods_per_year" json:"periods_per_year"`
}

// LevelDef describes one level of a Calendar's hierarchy.
type LevelDef struct {
	Name             string     `yaml:"name" json:"name"`
	IdentifierPattern string    `yaml:"identifier_pattern,omitempty" json:"identifier_pattern,omitempty"`
	DateRules        *DateRules `yaml:"date_rules,omitempty" json:"date_rules,omitempty"`
}

// CalendarStatus is the Calendar lifecycle state (unidirectional: draft
// -> active -> deprecated).
type CalendarStatus string

const (
	CalendarDraft      CalendarStatus = "draft"
	CalendarActive     CalendarStatus = "active"
	CalendarDeprecated CalendarStatus = "deprecated"
)

// Calendar is a named period hierarchy.
type Calendar struct {
	ID        ident.CalendarID `yaml:"id" json:"id"`
	Name      string           `yaml:"name" json:"name"`
	Levels    []LevelDef       `yaml:"levels" json:"levels"`
	IsDefault bool             `yaml:"is_default,omitempty" json:"is_default,omitempty"`
	Status    CalendarStatus   `yaml:"status" json:"status"`
}

// LevelIndex returns the position of a level name within the
// hierarchy, or -1 if absent. Position zero is the coarsest level.
func (c Calendar) LevelIndex(name string) int {
	for i, l := range c.Levels {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// PeriodPairing maps one source Period identifier to one target Period
// identifier within a CalendarMapping.
type PeriodPairing struct {
	Source ident.PeriodID `yaml:"source" json:"source"`
	Target ident.PeriodID `yaml:"target" json:"target"`
}

// CalendarMappingStatus mirrors the generic active/disabled lifecycle.
type CalendarMappingStatus string

const (
	CalendarMappingActive   CalendarMappingStatus = "active"
	CalendarMappingDisabled CalendarMappingStatus = "disabled"
)

// CalendarMapping is a versioned, directional 1:1 mapping of Periods
// between two Calendars, used for cross-calendar rollups.
type CalendarMapping struct {
	ID             ident.CalendarMapID   `yaml:"id" json:"id"`
	Version        int                   `yaml:"version" json:"version"`
	Status         CalendarMappingStatus `yaml:"status" json:"status"`
	SourceCalendar ident.CalendarID      `yaml:"source_calendar_id" json:"source_calendar_id"`
	TargetCalendar ident.CalendarID      `yaml:"target_calendar_id" json:"target_calendar_id"`
	Pairings       []PeriodPairing       `yaml:"pairings" json:"pairings"`
}

// DataSource is a named connection definition. It never stores
// credential material, only a lookup key into an external credential
// store.
type DataSource struct {
	ID            ident.DataSourceID `yaml:"id" json:"id"`
	Type          string             `yaml:"type" json:"type"`
	Options       map[string]string  `yaml:"options,omitempty" json:"options,omitempty"`
	CredentialRef string             `yaml:"credential_ref,omitempty" json:"credential_ref,omitempty"`
	Status        DatasetStatus      `yaml:"status" json:"status"`
}
