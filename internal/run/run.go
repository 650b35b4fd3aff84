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

// Package run drives one Run record through its lifecycle: acquiring
// the per-Project+Period concurrency guard, loading each bound
// Period's input dataset, handing the working dataset to the pipeline
// executor, persisting trace events as they're produced, and advancing
// the Run to a terminal status.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/executor/rowdedup"
	"github.com/bocacorazon/dobonomodo/internal/metrics"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/periodfilter"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
	"github.com/bocacorazon/dobonomodo/internal/trace"
)

// Store is the metadata surface Execute needs: everything the executor
// and resolver already require, plus the Run lifecycle writes
// themselves.
type Store interface {
	executor.Store
	AdvanceRun(ctx context.Context, run *model.Run) error
	FinalizeRun(ctx context.Context, run *model.Run) error
}

// Recorder mirrors executor.Recorder so callers can construct a Runner
// without importing the executor package just for the type name.
type Recorder = executor.Recorder

// Runner bundles every dependency one Run needs over its lifetime. One
// Runner is typically shared across many Runs of many Projects; it
// carries no per-Run state itself.
type Runner struct {
	// DSL is not used by Execute, which builds a fresh dsl.Engine per
	// Run from run.Snapshot.Selectors.
	DSL            *dsl.Engine
	ResolverEngine *resolver.Engine
	Store          Store
	Loader         executor.DataLoader
	Writer         executor.OutputWriter
	Registrar      executor.DatasetRegistrar
	TraceWriter    trace.TraceWriter
	Guard          Guard

	// TraceBufferSize sizes each Run's trace.Engine channel; zero uses
	// trace.Engine's own default.
	TraceBufferSize int
}

// Execute runs run.Snapshot.Operations, in order, against every Period
// in run.PeriodIDs starting at run.PeriodIndex, mutating run in place
// as progress is made and persisting that progress via r.Store after
// each Period and on failure. It returns the first error encountered;
// a non-nil error means run.Status == model.RunFailed and run.Error is
// populated, except when the closing FinalizeRun of a completed Run
// fails, whose error is returned with run.Status left RunCompleted.
func (r *Runner) Execute(ctx context.Context, run *model.Run) error {
	if len(run.PeriodIDs) == 0 {
		return r.fail(ctx, run, nil, fmt.Errorf("run: %s has no bound Periods", run.ID))
	}

	leases := make([]Lease, 0, len(run.PeriodIDs))
	defer func() {
		for _, l := range leases {
			l.Release()
		}
	}()
	for _, periodID := range run.PeriodIDs {
		lease, err := r.Guard.Acquire(ctx, run.ProjectID, periodID)
		if err != nil {
			return r.fail(ctx, run, nil, err)
		}
		leases = append(leases, lease)
	}

	dsl.SetClock(func() time.Time { return runClock(run) })

	tracer := trace.New(ctx, run.ID, r.TraceWriter, r.TraceBufferSize)
	exec := &executor.Executor{
		DSL:            dsl.NewEngine(run.Snapshot.Selectors),
		ResolverEngine: r.ResolverEngine,
		Store:          r.Store,
		Loader:         r.Loader,
		Writer:         r.Writer,
		Registrar:      r.Registrar,
		Recorder:       tracer,
	}

	metrics.RunsStarted.WithLabelValues(string(run.TriggerType)).Inc()
	run.Status = model.RunRunning

	for run.PeriodIndex < len(run.PeriodIDs) {
		periodID := run.PeriodIDs[run.PeriodIndex]

		period, err := r.Store.GetPeriod(ctx, periodID)
		if err != nil {
			_ = tracer.Close()
			return r.fail(ctx, run, nil, fmt.Errorf("run: loading period %s: %w", periodID, err))
		}
		if period.Status == model.PeriodLocked {
			_ = tracer.Close()
			return r.fail(ctx, run, &period.ID, &PeriodLockedError{PeriodID: period.ID})
		}

		input, err := r.loadInput(ctx, run, *period)
		if err != nil {
			_ = tracer.Close()
			return r.fail(ctx, run, &period.ID, err)
		}

		result, err := exec.Run(ctx, *input)
		if result != nil {
			run.LastCompletedOperation = intPtr(result.LastCompletedOperation)
			if result.OutputDatasetID != nil {
				run.OutputDatasetID = result.OutputDatasetID
			}
		}
		if err != nil {
			_ = tracer.Close()
			return r.fail(ctx, run, &period.ID, err)
		}

		run.PeriodIndex++
		run.LastCompletedOperation = nil
		if advErr := r.Store.AdvanceRun(ctx, run); advErr != nil {
			log.WithError(advErr).WithField("run_id", run.ID.String()).Warn("run: failed to persist inter-period progress")
		}
	}

	if err := tracer.Close(); err != nil {
		return r.fail(ctx, run, nil, fmt.Errorf("run: flushing trace: %w", err))
	}

	run.Status = model.RunCompleted
	now := runClock(run)
	run.CompletedAt = &now
	return r.Store.FinalizeRun(ctx, run)
}

// fail marks run failed, attributes the error to periodID when known,
// records it, and persists the terminal state. It always returns err,
// even when FinalizeRun also fails (that failure is only logged), so
// callers can return its result directly.
func (r *Runner) fail(ctx context.Context, run *model.Run, periodID *ident.PeriodID, err error) error {
	metrics.RunsFailed.WithLabelValues(string(run.TriggerType)).Inc()
	run.Status = model.RunFailed
	now := runClock(run)
	run.CompletedAt = &now

	detail := &model.ErrorDetail{Kind: fmt.Sprintf("%T", err), Message: err.Error()}
	var opErr *executor.OperationError
	if errors.As(err, &opErr) {
		seq := opErr.Seq
		detail.OperationOrder = &seq
	}
	if periodID != nil {
		detail.Detail = fmt.Sprintf("period %s", *periodID)
	}
	run.Error = detail

	if finalizeErr := r.Store.FinalizeRun(ctx, run); finalizeErr != nil {
		log.WithError(finalizeErr).WithField("run_id", run.ID.String()).Error("run: failed to persist failed status")
	}
	return err
}

// loadInput resolves and loads the Run's input Dataset's main table for
// period, eagerly flattening pre-defined lookups when the snapshot asks
// for it, and hands back an executor.Input ready for Executor.Run.
func (r *Runner) loadInput(ctx context.Context, run *model.Run, period model.Period) (*executor.Input, error) {
	snap := run.Snapshot
	dataset, err := r.Store.GetDataset(ctx, snap.InputDatasetID, &snap.InputDatasetVersion)
	if err != nil {
		return nil, fmt.Errorf("run: loading input dataset: %w", err)
	}

	schema := model.Schema{Columns: dataset.MainTable.Columns}
	rows, err := r.loadTable(ctx, run, dataset.ID, dataset.MainTable, schema, period)
	if err != nil {
		return nil, err
	}

	if snap.Materialization == model.MaterializeEager {
		for _, lookup := range dataset.Lookups {
			rows, schema, err = materializeLookup(ctx, r, run, period, schema, rows, lookup)
			if err != nil {
				return nil, err
			}
		}
	}

	return &executor.Input{
		Run:            run,
		Period:         period,
		ProjectID:      snap.ProjectID,
		WorkingLogical: dataset.MainTable.LogicalName,
		Schema:         schema,
		Rows:           rows,
	}, nil
}

// loadTable resolves table's physical locations for period and loads
// every matching row, the same resolve-filter-load sequence appendHandler
// and runtimejoin.Build both already use for their own source tables.
// Period expansion can resolve to several physical locations whose
// boundaries overlap, and a prior Run's append op can have left behind
// a duplicate row if it was retried after partially writing its output
// -- ByRowID compacts both cases down to one row per _row_id before the
// working dataset is ever assembled.
func (r *Runner) loadTable(ctx context.Context, run *model.Run, datasetID ident.DatasetID, table model.TableRef, schema model.Schema, period model.Period) ([]model.Row, error) {
	req := resolver.Request{
		DatasetID: datasetID,
		TableName: string(table.LogicalName),
		PeriodID:  period.ID,
		ProjectID: &run.Snapshot.ProjectID,
		Pinned:    pinnedResolver(run.Snapshot, datasetID),
	}
	locs, _, err := r.ResolverEngine.Resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("run: resolving %s: %w", table.LogicalName, err)
	}

	filter, err := periodfilter.Build(table.TemporalMode, period)
	if err != nil {
		return nil, err
	}

	var rows []model.Row
	for _, loc := range locs {
		loaded, err := r.Loader.LoadRows(ctx, loc, schema)
		if err != nil {
			return nil, fmt.Errorf("run: loading %s: %w", table.LogicalName, err)
		}
		for _, row := range loaded {
			if filter.Matches(row) {
				rows = append(rows, row)
			}
		}
	}
	return rowdedup.ByRowID(rows), nil
}

// PeriodLockedError reports that a Run was bound to a Period that has
// since transitioned to locked -- a Run may start against an open or
// closed Period, but never a locked one.
type PeriodLockedError struct {
	PeriodID ident.PeriodID
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("run: period %s is locked", e.PeriodID)
}

// pinnedResolver looks up datasetID's frozen (ResolverID, Version) in
// snap.ResolverSnapshots, returning nil when the dataset was never
// pinned -- e.g. a snapshot built before NewRun wired pinning, or a
// dataset reachable only through a path the pinning walk didn't cover.
// A nil result falls back to the live precedence chain, same as before
// pinning existed.
func pinnedResolver(snap model.ProjectSnapshot, datasetID ident.DatasetID) *model.ResolverSnapshot {
	if pinned, ok := snap.ResolverSnapshots[datasetID]; ok {
		return &pinned
	}
	return nil
}

func intPtr(i int) *int { return &i }

func runClock(run *model.Run) time.Time {
	if run.StartedAt != nil {
		return *run.StartedAt
	}
	return time.Now().UTC()
}
