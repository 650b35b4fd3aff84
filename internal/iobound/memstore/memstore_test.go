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

package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

func TestGetDatasetDefaultsToLatestVersion(t *testing.T) {
	s := New()
	id := ident.NewDatasetID()
	s.PutDataset(&model.Dataset{ID: id, Version: 1, Status: model.DatasetActive})
	s.PutDataset(&model.Dataset{ID: id, Version: 2, Status: model.DatasetActive})

	got, err := s.GetDataset(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	pinned, err := s.GetDataset(context.Background(), id, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 1, pinned.Version)
}

func TestGetDatasetMissingVersionErrors(t *testing.T) {
	s := New()
	id := ident.NewDatasetID()
	s.PutDataset(&model.Dataset{ID: id, Version: 1})

	_, err := s.GetDataset(context.Background(), id, intPtr(9))
	require.Error(t, err)
}

func TestGetDefaultResolverReturnsNilNilWhenUnset(t *testing.T) {
	s := New()
	res, err := s.GetDefaultResolver(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestGetDefaultResolverReturnsMarkedResolver(t *testing.T) {
	s := New()
	r := &model.Resolver{ID: ident.NewResolverID(), Version: 1, Status: model.ResolverActive, IsDefault: true}
	s.PutResolver(r, true)

	got, err := s.GetDefaultResolver(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestListChildPeriodsFiltersByParent(t *testing.T) {
	s := New()
	parent := ident.PeriodID("2026")
	child1 := ident.PeriodID("2026-01")
	child2 := ident.PeriodID("2026-02")
	other := ident.PeriodID("2025-01")

	s.PutPeriod(&model.Period{ID: parent})
	s.PutPeriod(&model.Period{ID: child1, ParentID: &parent})
	s.PutPeriod(&model.Period{ID: child2, ParentID: &parent})
	s.PutPeriod(&model.Period{ID: other})

	children, err := s.ListChildPeriods(context.Background(), parent)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, child1, children[0].ID)
	assert.Equal(t, child2, children[1].ID)
}

func TestLoadRowsAndWriteRoundTrip(t *testing.T) {
	s := New()
	loc := resolver.ResolvedLocation{DataSourceID: "warehouse", Table: "gl"}

	rows, err := s.LoadRows(context.Background(), loc, model.Schema{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	row := model.Row{Business: map[ident.ColumnName]model.Value{}}
	require.NoError(t, s.Write(context.Background(), loc, model.Schema{}, []model.Row{row}))

	rows, err = s.LoadRows(context.Background(), loc, model.Schema{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRegisterDatasetIncrementsVersionForSameLogicalName(t *testing.T) {
	s := New()
	table := model.TableRef{LogicalName: "gl_out"}

	id1, v1, err := s.RegisterDataset(context.Background(), "gl_out", table)
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	id2, v2, err := s.RegisterDataset(context.Background(), "gl_out", table)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 2, v2)
}

func TestAdvanceRunThenFinalizeRunPersistSnapshots(t *testing.T) {
	s := New()
	run := &model.Run{ID: ident.NewRunID(), Status: model.RunRunning, PeriodIndex: 0}

	require.NoError(t, s.AdvanceRun(context.Background(), run))
	run.PeriodIndex = 1
	run.Status = model.RunCompleted
	require.NoError(t, s.FinalizeRun(context.Background(), run))

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, got.Status)
	assert.Equal(t, 1, got.PeriodIndex)
}

func intPtr(i int) *int { return &i }
