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

package run

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

type fakeStore struct {
	datasets   map[ident.DatasetID]*model.Dataset
	resolvers  map[ident.ResolverID]*model.Resolver
	defaultRes *model.Resolver
	periods    map[ident.PeriodID]*model.Period

	advanced  int
	finalized []model.RunStatus
}

func (f *fakeStore) GetProject(context.Context, ident.ProjectID, *int) (*model.Project, error) {
	return nil, assert.AnError
}

func (f *fakeStore) GetDataset(_ context.Context, id ident.DatasetID, _ *int) (*model.Dataset, error) {
	d, ok := f.datasets[id]
	if !ok {
		return nil, assert.AnError
	}
	return d, nil
}

func (f *fakeStore) GetResolver(_ context.Context, id ident.ResolverID, _ *int) (*model.Resolver, error) {
	if r, ok := f.resolvers[id]; ok {
		return r, nil
	}
	return nil, assert.AnError
}

func (f *fakeStore) GetDefaultResolver(context.Context) (*model.Resolver, error) {
	return f.defaultRes, nil
}

func (f *fakeStore) GetPeriod(_ context.Context, id ident.PeriodID) (*model.Period, error) {
	if p, ok := f.periods[id]; ok {
		return p, nil
	}
	return nil, assert.AnError
}

func (f *fakeStore) GetCalendar(context.Context, ident.CalendarID) (*model.Calendar, error) {
	return nil, assert.AnError
}

func (f *fakeStore) ListChildPeriods(context.Context, ident.PeriodID) ([]model.Period, error) {
	return nil, nil
}

func (f *fakeStore) GetCalendarMapping(context.Context, ident.CalendarID, ident.CalendarID) (*model.CalendarMapping, error) {
	return nil, nil
}

func (f *fakeStore) AdvanceRun(context.Context, *model.Run) error {
	f.advanced++
	return nil
}

func (f *fakeStore) FinalizeRun(_ context.Context, r *model.Run) error {
	f.finalized = append(f.finalized, r.Status)
	return nil
}

type fakeLoader struct {
	rows []model.Row
	locs []resolver.ResolvedLocation
}

func (f *fakeLoader) LoadRows(_ context.Context, loc resolver.ResolvedLocation, _ model.Schema) ([]model.Row, error) {
	f.locs = append(f.locs, loc)
	return f.rows, nil
}

type fakeWriter struct{}

func (fakeWriter) Write(context.Context, resolver.ResolvedLocation, model.Schema, []model.Row) error {
	return nil
}

type fakeRegistrar struct{}

func (fakeRegistrar) RegisterDataset(context.Context, string, model.TableRef) (ident.DatasetID, int, error) {
	return ident.NewDatasetID(), 1, nil
}

type fakeTraceWriter struct {
	rowCount    int
	outputCount int
}

func (w *fakeTraceWriter) WriteRow(context.Context, ident.RunID, executor.RowEvent) error {
	w.rowCount++
	return nil
}

func (w *fakeTraceWriter) WriteOutput(context.Context, ident.RunID, executor.OutputEvent) error {
	w.outputCount++
	return nil
}

func newRunner(store *fakeStore, loader *fakeLoader, tw *fakeTraceWriter) *Runner {
	return &Runner{
		DSL:            dsl.NewEngine(nil),
		ResolverEngine: resolver.New(store),
		Store:          store,
		Loader:         loader,
		Writer:         fakeWriter{},
		Registrar:      fakeRegistrar{},
		TraceWriter:    tw,
		Guard:          NewMemoryGuard(),
	}
}

func singlePeriodRun(inputID ident.DatasetID, periodID ident.PeriodID) *model.Run {
	started := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return &model.Run{
		ID:        ident.NewRunID(),
		ProjectID: ident.NewProjectID(),
		PeriodIDs: []ident.PeriodID{periodID},
		Status:    model.RunQueued,
		StartedAt: &started,
		Snapshot: model.ProjectSnapshot{
			ProjectID:           ident.NewProjectID(),
			InputDatasetID:      inputID,
			InputDatasetVersion: 1,
			Materialization:     model.MaterializeRuntime,
			Operations: []model.Operation{
				{
					Type: model.OpOutput,
					Seq:  1,
					Output: &model.OutputArgs{
						Destination: model.TableRef{
							LogicalName: "gl_out",
							Source:      model.SourceBinding{DataSourceID: "warehouse", TableName: "gl_out"},
						},
					},
				},
			},
		},
	}
}

func defaultAnyResolver() *model.Resolver {
	return &model.Resolver{
		ID:        ident.NewResolverID(),
		Status:    model.ResolverActive,
		IsDefault: true,
		Rules: []model.ResolutionRule{
			{
				Name:      "default",
				DataLevel: model.DataLevelAny,
				Strategy: model.ResolutionStrategy{
					Kind:         model.StrategyPath,
					DataSourceID: "warehouse",
					Path:         "{table_name}.parquet",
				},
			},
		},
	}
}

func TestExecuteCompletesSinglePeriod(t *testing.T) {
	inputID := ident.NewDatasetID()
	periodID := ident.PeriodID("2026-02")

	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{
			inputID: {
				ID:      inputID,
				Version: 1,
				Status:  model.DatasetActive,
				MainTable: model.TableRef{
					LogicalName:  "gl",
					TemporalMode: model.Period,
					Columns:      []model.ColumnDef{{Name: "amount", Type: model.ColumnDecimal}},
				},
			},
		},
		periods: map[ident.PeriodID]*model.Period{
			periodID: {ID: periodID, Status: model.PeriodOpen},
		},
		defaultRes: defaultAnyResolver(),
	}
	loader := &fakeLoader{}
	tw := &fakeTraceWriter{}
	runner := newRunner(store, loader, tw)

	run := singlePeriodRun(inputID, periodID)
	err := runner.Execute(context.Background(), run)

	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 1, run.PeriodIndex)
	assert.Nil(t, run.LastCompletedOperation)
	assert.Equal(t, []model.RunStatus{model.RunCompleted}, store.finalized)
	assert.Equal(t, 1, tw.outputCount)
}

func TestExecuteFailsOnLockedPeriod(t *testing.T) {
	inputID := ident.NewDatasetID()
	periodID := ident.PeriodID("2026-02")

	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{inputID: {ID: inputID, Status: model.DatasetActive}},
		periods: map[ident.PeriodID]*model.Period{
			periodID: {ID: periodID, Status: model.PeriodLocked},
		},
	}
	runner := newRunner(store, &fakeLoader{}, &fakeTraceWriter{})

	run := singlePeriodRun(inputID, periodID)
	err := runner.Execute(context.Background(), run)

	require.Error(t, err)
	var lockedErr *PeriodLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, model.RunFailed, run.Status)
	assert.Equal(t, []model.RunStatus{model.RunFailed}, store.finalized)
}

func TestExecuteRejectsConcurrentPeriod(t *testing.T) {
	inputID := ident.NewDatasetID()
	periodID := ident.PeriodID("2026-02")

	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{inputID: {ID: inputID, Status: model.DatasetActive}},
		periods: map[ident.PeriodID]*model.Period{
			periodID: {ID: periodID, Status: model.PeriodOpen},
		},
	}
	guard := NewMemoryGuard()
	runner := newRunner(store, &fakeLoader{}, &fakeTraceWriter{})
	runner.Guard = guard

	first := singlePeriodRun(inputID, periodID)
	lease, err := guard.Acquire(context.Background(), first.ProjectID, periodID)
	require.NoError(t, err)
	defer lease.Release()

	second := singlePeriodRun(inputID, periodID)
	second.ProjectID = first.ProjectID

	err = runner.Execute(context.Background(), second)
	require.Error(t, err)
	var guardErr *ConcurrencyGuardError
	require.ErrorAs(t, err, &guardErr)
	assert.Equal(t, model.RunFailed, second.Status)
}
