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

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

func seedSingleOutputRun(t *testing.T, f *Fixture) *model.Run {
	t.Helper()

	inputID := ident.NewDatasetID()
	periodID := ident.PeriodID("2026-02")

	f.Store.PutDataset(&model.Dataset{
		ID:      inputID,
		Version: 1,
		Status:  model.DatasetActive,
		MainTable: model.TableRef{
			LogicalName:  "gl",
			TemporalMode: model.Period,
			Columns:      []model.ColumnDef{{Name: "amount", Type: model.ColumnDecimal}},
		},
	})
	f.Store.PutPeriod(&model.Period{ID: periodID, Status: model.PeriodOpen})
	f.Store.PutResolver(&model.Resolver{
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
	}, true)

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

func TestNewFixtureRunsAnEndToEndPipeline(t *testing.T) {
	f, cleanup := NewFixture()
	defer cleanup()

	run := seedSingleOutputRun(t, f)
	err := f.Runner.Execute(context.Background(), run)

	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Len(t, f.Store.OutputTrace(run.ID), 1)
}

func TestWithChaosAtFullProbabilityFailsTheRun(t *testing.T) {
	f, cleanup := NewFixture(WithChaos(1))
	defer cleanup()

	run := seedSingleOutputRun(t, f)
	err := f.Runner.Execute(context.Background(), run)

	require.Error(t, err)
	assert.Equal(t, model.RunFailed, run.Status)
}

func TestWithSelectorsBuildsTheDSLEngine(t *testing.T) {
	f, cleanup := NewFixture(WithSelectors(map[string]string{"REGION": "EMEA"}))
	defer cleanup()

	assert.NotNil(t, f.DSL)
}

func TestDiagnosticsRegistersTheMemstoreCheck(t *testing.T) {
	f, cleanup := NewFixture()
	defer cleanup()

	assert.True(t, f.Diagnostics.Healthy(context.Background()))
}
