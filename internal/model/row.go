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
	"time"

	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// SystemColumns is the lineage and soft-delete metadata carried inline
// on every working-dataset row. Lineage fields
// (Source*, CreatedBy*, CreatedAt) are set once at row creation and
// never mutated thereafter.
type SystemColumns struct {
	RowID               ident.RowID       `json:"_row_id"`
	Deleted             bool              `json:"_deleted"`
	CreatedAt           time.Time         `json:"_created_at"`
	UpdatedAt           time.Time         `json:"_updated_at"`
	SourceDatasetID     ident.DatasetID   `json:"_source_dataset_id"`
	SourceTable         ident.LogicalTable `json:"_source_table"`
	CreatedByProjectID  ident.ProjectID   `json:"_created_by_project_id"`
	CreatedByRunID      ident.RunID       `json:"_created_by_run_id"`
	Labels              map[string]string `json:"_labels,omitempty"`

	// Temporal fields, populated according to the originating table's
	// TemporalMode. NonTemporal rows leave all of these zero.
	PeriodID   ident.PeriodID `json:"_period,omitempty"`
	PeriodFrom ident.PeriodID `json:"_period_from,omitempty"`
	PeriodTo   *ident.PeriodID `json:"_period_to,omitempty"`
	ValidFrom  time.Time      `json:"_valid_from,omitempty"`
	ValidTo    *time.Time     `json:"_valid_to,omitempty"`
}

// Clone returns a deep-enough copy of the system columns for a new row
// derived from this one (used when closing a bitemporal row and
// inserting its successor).
func (s SystemColumns) Clone() SystemColumns {
	out := s
	if s.Labels != nil {
		out.Labels = make(map[string]string, len(s.Labels))
		for k, v := range s.Labels {
			out.Labels[k] = v
		}
	}
	if s.PeriodTo != nil {
		pt := *s.PeriodTo
		out.PeriodTo = &pt
	}
	if s.ValidTo != nil {
		vt := *s.ValidTo
		out.ValidTo = &vt
	}
	return out
}

// Row is one row of the working dataset: system columns plus an open
// map of user-declared business columns. New columns created by an
// "update" assignment widen the schema but are represented here simply
// as additional map entries; absent entries are treated as SQL NULL of
// the column's declared type by readers.
type Row struct {
	System   SystemColumns
	Business map[ident.ColumnName]Value
}

// Get returns a business column's value, or a typed null if the row
// has no entry for it (e.g. it predates a schema-widening assignment).
func (r Row) Get(col ident.ColumnName, declaredType ColumnType) Value {
	if v, ok := r.Business[col]; ok {
		return v
	}
	return NullValue(declaredType)
}

// Clone returns a row with an independent Business map, so that
// transform stages can produce new rows without aliasing the input's
// mutable map.
func (r Row) Clone() Row {
	out := Row{System: r.System.Clone(), Business: make(map[ident.ColumnName]Value, len(r.Business))}
	for k, v := range r.Business {
		out.Business[k] = v
	}
	return out
}

// Schema is the ordered (name, type, nullable) column list of a
// working dataset, business columns only -- system columns are
// implicit and never declared here.
type Schema struct {
	Columns []ColumnDef
}

// Index returns the position of a column, or -1.
func (s Schema) Index(name ident.ColumnName) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the schema declares the given column.
func (s Schema) Has(name ident.ColumnName) bool { return s.Index(name) >= 0 }

// ColumnType returns the declared type of a column, and whether it was
// found.
func (s Schema) ColumnType(name ident.ColumnName) (ColumnType, bool) {
	i := s.Index(name)
	if i < 0 {
		return "", false
	}
	return s.Columns[i].Type, true
}

// WithColumn returns a new Schema with the given column appended, or
// unchanged if the column already exists. Used when an "update"
// assignment targets a previously-unseen column: new columns are added
// to the schema with the assignment's inferred type and nullable=true.
func (s Schema) WithColumn(name ident.ColumnName, t ColumnType) Schema {
	if s.Has(name) {
		return s
	}
	out := Schema{Columns: make([]ColumnDef, len(s.Columns), len(s.Columns)+1)}
	copy(out.Columns, s.Columns)
	out.Columns = append(out.Columns, ColumnDef{Name: name, Type: t, Nullable: true})
	return out
}

// Fingerprint renders a stable string summary of the schema, used to
// key the DSL's compiled-expression cache: a compiled expression is
// only reusable while the schema it was compiled against has not
// changed shape.
func (s Schema) Fingerprint() string {
	out := make([]byte, 0, 32*len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, []byte(string(c.Name)+":"+string(c.Type)+",")...)
	}
	return string(out)
}
