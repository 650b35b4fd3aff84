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

// RunStatus is the Run lifecycle state.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ResolverSnapshot pins the (ResolverID, Version) used to resolve a
// Dataset's tables for the lifetime of a single Run.
type ResolverSnapshot struct {
	ResolverID ident.ResolverID `yaml:"resolver_id" json:"resolver_id"`
	Version    int              `yaml:"version" json:"version"`
}

// ProjectSnapshot is the immutable copy of a Project's execution-
// relevant state captured at Run creation. Subsequent edits to the
// live Project never affect a Run holding this snapshot.
type ProjectSnapshot struct {
	ProjectID           ident.ProjectID                            `yaml:"project_id" json:"project_id"`
	ProjectVersion      int                                        `yaml:"project_version" json:"project_version"`
	Operations          []Operation                                `yaml:"operations" json:"operations"`
	Selectors           map[string]string                          `yaml:"selectors,omitempty" json:"selectors,omitempty"`
	Materialization     Materialization                            `yaml:"materialization" json:"materialization"`
	InputDatasetID      ident.DatasetID                            `yaml:"input_dataset_id" json:"input_dataset_id"`
	InputDatasetVersion int                                        `yaml:"input_dataset_version" json:"input_dataset_version"`
	ResolverSnapshots   map[ident.DatasetID]ResolverSnapshot        `yaml:"resolver_snapshots" json:"resolver_snapshots"`
}

// ErrorDetail is the user-visible failure record attached to a Run.
type ErrorDetail struct {
	OperationOrder *int   `yaml:"operation_order,omitempty" json:"operation_order,omitempty"`
	Kind           string `yaml:"kind" json:"kind"`
	Message        string `yaml:"message" json:"message"`
	Detail         string `yaml:"detail,omitempty" json:"detail,omitempty"`
}

// TriggerType describes what initiated a Run.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
	TriggerRetry     TriggerType = "retry"
	TriggerSubRun    TriggerType = "sub_run"
)

// Run is an immutable execution record for one invocation of a
// Project's pipeline against one or more Periods.
type Run struct {
	ID                    ident.RunID        `yaml:"id" json:"id"`
	ProjectID             ident.ProjectID    `yaml:"project_id" json:"project_id"`
	ProjectVersion        int                `yaml:"project_version" json:"project_version"`
	Snapshot              ProjectSnapshot    `yaml:"snapshot" json:"snapshot"`
	PeriodIDs             []ident.PeriodID   `yaml:"period_ids" json:"period_ids"`
	// PeriodIndex is the offset into PeriodIDs of the Period currently
	// (or, for a failed Run, most recently) executing.
	// LastCompletedOperation applies to this Period alone; every Period
	// before it in PeriodIDs has already run its operations to
	// completion. System-managed, like every other progress field.
	PeriodIndex           int                `yaml:"period_index" json:"period_index"`
	Status                RunStatus          `yaml:"status" json:"status"`
	TriggerType           TriggerType        `yaml:"trigger_type" json:"trigger_type"`
	TriggeredBy           string             `yaml:"triggered_by" json:"triggered_by"`
	LastCompletedOperation *int              `yaml:"last_completed_operation,omitempty" json:"last_completed_operation,omitempty"`
	OutputDatasetID       *ident.DatasetID   `yaml:"output_dataset_id,omitempty" json:"output_dataset_id,omitempty"`
	ParentRunID           *ident.RunID       `yaml:"parent_run_id,omitempty" json:"parent_run_id,omitempty"`
	Error                 *ErrorDetail       `yaml:"error,omitempty" json:"error,omitempty"`
	CreatedAt             time.Time          `yaml:"created_at" json:"created_at"`
	StartedAt             *time.Time         `yaml:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt           *time.Time         `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// CanRetry reports whether this Run may transition failed -> running,
// the only non-forward status transition allowed.
func (r *Run) CanRetry() bool {
	return r.Status == RunFailed
}

// ResumeSeq returns the lowest seq a retry should execute: the
// executor skips every Operation with Seq below this value.
// LastCompletedOperation+1 once a prior attempt has recorded progress,
// or zero when none has -- since every valid Operation.Seq is a
// positive integer, zero admits the whole pipeline.
func (r *Run) ResumeSeq() int {
	if r.LastCompletedOperation == nil {
		return 0
	}
	return *r.LastCompletedOperation + 1
}
