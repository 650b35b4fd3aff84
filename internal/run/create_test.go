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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

func TestNewRunPinsResolverSnapshotsForReachableDatasets(t *testing.T) {
	inputID := ident.NewDatasetID()
	joinID := ident.NewDatasetID()
	appendID := ident.NewDatasetID()

	inputResolver := ident.NewResolverID()
	joinResolver := ident.NewResolverID()

	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{
			inputID:  {ID: inputID, ResolverID: &inputResolver},
			joinID:   {ID: joinID, ResolverID: &joinResolver},
			appendID: {ID: appendID},
		},
		resolvers: map[ident.ResolverID]*model.Resolver{
			inputResolver: {ID: inputResolver, Version: 2},
			joinResolver:  {ID: joinResolver, Version: 5},
		},
		defaultRes: &model.Resolver{ID: ident.NewResolverID(), Version: 7},
	}

	engine := resolver.New(store)
	proj := &model.Project{
		ID:                  ident.NewProjectID(),
		Version:             1,
		InputDatasetID:      inputID,
		InputDatasetVersion: 1,
		Operations: []model.Operation{
			{
				Type: model.OpUpdate,
				Seq:  1,
				Update: &model.UpdateArgs{
					Joins: []model.RuntimeJoin{{Alias: "j", DatasetID: joinID, On: "TRUE"}},
				},
			},
			{
				Type: model.OpAppend,
				Seq:  2,
				Append: &model.AppendArgs{
					Source: model.DatasetRef{DatasetID: appendID},
				},
			},
		},
	}

	run, err := NewRun(context.Background(), engine, proj, []ident.PeriodID{"2026-01"}, model.TriggerManual, "operator")
	require.NoError(t, err)

	assert.Equal(t, model.ResolverSnapshot{ResolverID: inputResolver, Version: 2}, run.Snapshot.ResolverSnapshots[inputID])
	assert.Equal(t, model.ResolverSnapshot{ResolverID: joinResolver, Version: 5}, run.Snapshot.ResolverSnapshots[joinID])
	assert.Equal(t, model.ResolverSnapshot{ResolverID: store.defaultRes.ID, Version: 7}, run.Snapshot.ResolverSnapshots[appendID])
	assert.Equal(t, model.RunQueued, run.Status)
	assert.Equal(t, proj.ID, run.Snapshot.ProjectID)
}

func TestLoadTableUsesPinnedResolverSnapshotOverLiveDefault(t *testing.T) {
	inputID := ident.NewDatasetID()
	pinnedResolverID := ident.NewResolverID()

	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{
			inputID: {ID: inputID, MainTable: model.TableRef{LogicalName: "gl"}},
		},
		resolvers: map[ident.ResolverID]*model.Resolver{
			pinnedResolverID: {
				ID: pinnedResolverID, Version: 1,
				Rules: []model.ResolutionRule{
					{Name: "pinned", DataLevel: model.DataLevelAny, Strategy: model.ResolutionStrategy{Kind: model.StrategyTable, Table: "pinned_{table_name}"}},
				},
			},
		},
		defaultRes: &model.Resolver{
			ID: ident.NewResolverID(), Version: 9,
			Rules: []model.ResolutionRule{
				{Name: "live", DataLevel: model.DataLevelAny, Strategy: model.ResolutionStrategy{Kind: model.StrategyTable, Table: "live_{table_name}"}},
			},
		},
		periods: map[ident.PeriodID]*model.Period{
			"2026-01": {ID: "2026-01", Level: "month"},
		},
	}

	loader := &fakeLoader{}
	r := &Runner{ResolverEngine: resolver.New(store), Loader: loader}
	run := &model.Run{
		Snapshot: model.ProjectSnapshot{
			ProjectID: ident.NewProjectID(),
			ResolverSnapshots: map[ident.DatasetID]model.ResolverSnapshot{
				inputID: {ResolverID: pinnedResolverID, Version: 1},
			},
		},
	}

	_, err := r.loadTable(context.Background(), run, inputID, model.TableRef{LogicalName: "gl"}, model.Schema{}, model.Period{ID: "2026-01"})
	require.NoError(t, err)
	require.Len(t, loader.locs, 1)
	assert.Equal(t, "pinned_gl", loader.locs[0].Table, "loadTable must use the pinned snapshot resolver, not the live default")
}
