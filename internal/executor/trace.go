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

package executor

import (
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// ChangeType is the closed set of row-level trace event kinds.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ColumnDiff is one column's before/after value within a RowEvent.
type ColumnDiff struct {
	Old model.Value
	New model.Value
}

// RowEvent is one row-level trace record: an update's per-column diff,
// an aggregate/append's newly created row, or a delete's soft-delete
// flip.
type RowEvent struct {
	OperationOrder int
	ChangeType     ChangeType
	RowMatch       ident.RowID
	Diff           map[ident.ColumnName]ColumnDiff
}

// OutputEvent is the terminal trace record an output operation emits.
type OutputEvent struct {
	OperationOrder int
	Destination    string
	RowCount       int
	Selector       string
	IncludeDeleted bool
}

// Recorder receives the trace events the executor emits. It is defined
// here, at the consumer, rather than in a shared trace package, so the
// executor never depends on how events are ultimately persisted; the
// trace engine implements this interface against the executor's output
// instead of the executor importing the trace engine.
type Recorder interface {
	RecordRow(RowEvent)
	RecordOutput(OutputEvent)
}

// NoopRecorder discards every event. Useful for callers (tests,
// dry-run tooling) that do not need a trace.
type NoopRecorder struct{}

func (NoopRecorder) RecordRow(RowEvent)       {}
func (NoopRecorder) RecordOutput(OutputEvent) {}
