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

// Package executor dispatches a Run's snapshot operations, in seq
// order, against a lazy working dataset: a schema plus a slice of
// rows, re-bound (never mutated in place) by each of the five closed
// operation variants in turn.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// opCtx bundles one Run's fixed dependencies and addressing context,
// threaded through every opHandler without each one needing its own
// constructor parameter list.
type opCtx struct {
	ctx            context.Context
	run            *model.Run
	period         model.Period
	projectID      ident.ProjectID
	workingLogical ident.LogicalTable

	dsl            *dsl.Engine
	resolverEngine *resolver.Engine
	store          Store
	loader         DataLoader
	writer         OutputWriter
	registrar      DatasetRegistrar
	recorder       Recorder
}

// pinnedResolverFor looks up datasetID's frozen (ResolverID, Version)
// in run.Snapshot.ResolverSnapshots, returning nil when the dataset was
// never pinned. A nil result falls back to the live precedence chain.
func pinnedResolverFor(run *model.Run, datasetID ident.DatasetID) *model.ResolverSnapshot {
	if pinned, ok := run.Snapshot.ResolverSnapshots[datasetID]; ok {
		return &pinned
	}
	return nil
}

// opOutcome is what an opHandler hands back: the next working dataset,
// plus the Dataset id an output operation may have just registered.
type opOutcome struct {
	Dataset             WorkingDataset
	RegisteredDatasetID *ident.DatasetID
}

// opHandler executes one Operation variant against the working dataset
// current at that point in the pipeline.
type opHandler interface {
	Execute(oc *opCtx, op model.Operation, ds WorkingDataset) (opOutcome, error)
}

func handlerFor(op model.Operation) (opHandler, error) {
	switch op.Type {
	case model.OpUpdate:
		if op.Update == nil {
			return nil, &MalformedOperationError{Seq: op.Seq, Type: string(op.Type)}
		}
		return updateHandler{}, nil
	case model.OpAggregate:
		if op.Aggregate == nil {
			return nil, &MalformedOperationError{Seq: op.Seq, Type: string(op.Type)}
		}
		return aggregateHandler{}, nil
	case model.OpAppend:
		if op.Append == nil {
			return nil, &MalformedOperationError{Seq: op.Seq, Type: string(op.Type)}
		}
		return appendHandler{}, nil
	case model.OpDelete:
		return deleteHandler{}, nil
	case model.OpOutput:
		if op.Output == nil {
			return nil, &MalformedOperationError{Seq: op.Seq, Type: string(op.Type)}
		}
		return outputHandler{}, nil
	default:
		return nil, &UnknownOperationTypeError{Seq: op.Seq, Type: string(op.Type)}
	}
}

// OperationError attributes a failure to the Operation.Seq that
// produced it, the shape Run.ErrorDetail.OperationOrder expects.
type OperationError struct {
	Seq int
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("executor: operation seq %d failed: %v", e.Seq, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Executor holds the dependencies every operation handler needs:
// expression compilation, dataset resolution and loading, output
// writing, and trace recording. run.Runner builds one Executor per
// Run, wiring in that Run's DSL engine and trace recorder.
type Executor struct {
	DSL            *dsl.Engine
	ResolverEngine *resolver.Engine
	Store          Store
	Loader         DataLoader
	Writer         OutputWriter
	Registrar      DatasetRegistrar
	Recorder       Recorder
}

// Input is the working dataset a Run's operations execute against,
// plus the addressing context (Period, Project, the input Dataset's
// main table name) operations need to resolve joins and append
// sources.
type Input struct {
	Run            *model.Run
	Period         model.Period
	ProjectID      ident.ProjectID
	WorkingLogical ident.LogicalTable
	Schema         model.Schema
	Rows           []model.Row
}

// Result is the working dataset state after the last operation
// executed, whether the pipeline ran to completion or stopped on a
// failure -- the caller (internal/run) uses LastCompletedOperation and
// the returned error together to populate Run.error and decide whether
// to preserve or discard this state.
type Result struct {
	Schema                 model.Schema
	Rows                   []model.Row
	LastCompletedOperation int
	OutputDatasetID        *ident.DatasetID
}

// Run executes in.Run.Snapshot.Operations in seq order starting at
// in.Run.ResumeSeq(), against the working dataset described by
// in.Schema/in.Rows. On error it returns the Result reflecting every
// operation that completed successfully before the failing one, so the
// caller can preserve it per spec.md's failure semantics.
func (e *Executor) Run(ctx context.Context, in Input) (*Result, error) {
	recorder := e.Recorder
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	oc := &opCtx{
		ctx:            ctx,
		run:            in.Run,
		period:         in.Period,
		projectID:      in.ProjectID,
		workingLogical: in.WorkingLogical,
		dsl:            e.DSL,
		resolverEngine: e.ResolverEngine,
		store:          e.Store,
		loader:         e.Loader,
		writer:         e.Writer,
		registrar:      e.Registrar,
		recorder:       recorder,
	}

	schema := in.Schema
	rows := in.Rows
	resumeFrom := in.Run.ResumeSeq()
	lastCompleted := 0
	if in.Run.LastCompletedOperation != nil {
		lastCompleted = *in.Run.LastCompletedOperation
	}
	var outputDatasetID *ident.DatasetID

	for _, op := range in.Run.Snapshot.Operations {
		if op.Seq < resumeFrom {
			continue
		}

		handler, err := handlerFor(op)
		if err != nil {
			return &Result{Schema: schema, Rows: rows, LastCompletedOperation: lastCompleted}, err
		}

		var outcome opOutcome
		if op.Type == model.OpOutput {
			outcome, err = handler.Execute(oc, op, WorkingDataset{Schema: schema, Rows: rows})
		} else {
			live, dead := splitDeleted(rows)
			outcome, err = handler.Execute(oc, op, WorkingDataset{Schema: schema, Rows: live})
			if err == nil {
				outcome.Dataset.Rows = append(outcome.Dataset.Rows, dead...)
			}
		}
		if err != nil {
			return &Result{Schema: schema, Rows: rows, LastCompletedOperation: lastCompleted}, &OperationError{Seq: op.Seq, Err: err}
		}

		schema = outcome.Dataset.Schema
		rows = outcome.Dataset.Rows
		lastCompleted = op.Seq
		if outcome.RegisteredDatasetID != nil {
			outputDatasetID = outcome.RegisteredDatasetID
		}
	}

	return &Result{Schema: schema, Rows: rows, LastCompletedOperation: lastCompleted, OutputDatasetID: outputDatasetID}, nil
}

// splitDeleted separates a working dataset's soft-deleted rows from
// the rest, so the caller can hide them from a non-output operation
// and reattach them afterward unchanged.
func splitDeleted(rows []model.Row) (live, dead []model.Row) {
	live = make([]model.Row, 0, len(rows))
	dead = make([]model.Row, 0)
	for _, r := range rows {
		if r.System.Deleted {
			dead = append(dead, r)
		} else {
			live = append(live, r)
		}
	}
	return live, dead
}

// runTimestamp is the lineage clock every op stamps onto rows it
// creates or modifies: the Run's own started_at, not wall-clock time,
// matching the same "never observe real time mid-Run" requirement
// TODAY() is specified to honor.
func runTimestamp(run *model.Run) time.Time {
	if run.StartedAt != nil {
		return *run.StartedAt
	}
	return time.Now().UTC()
}

// compileSelector compiles an operation's optional selector. An empty
// selector text means "no restriction" and compiles to nil rather than
// the always-true literal, so callers can fast-path unconditional
// matching.
func compileSelector(oc *opCtx, selectorText string, schema model.Schema, resolve dsl.ColumnResolver) (*dsl.CompiledRowExpr, error) {
	if selectorText == "" {
		return nil, nil
	}
	return oc.dsl.CompileRow(selectorText, schema, resolve)
}
