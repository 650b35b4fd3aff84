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
	"fmt"
	"time"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// NewRun assembles a queued Run for proj against periodIDs, capturing
// the immutable ProjectSnapshot: a copy of proj's operations,
// selectors, and materialization, proj's pinned input_dataset_version,
// and -- after running the resolver precedence chain once per
// reachable dataset -- the (ResolverID, Version) each currently
// resolves to, frozen into Snapshot.ResolverSnapshots. Every
// subsequent re-resolution performed over this Run's lifetime
// (loadTable here, runtimejoin.Build, append-source loading) targets
// that frozen version rather than whatever becomes active afterward.
func NewRun(
	ctx context.Context,
	engine *resolver.Engine,
	proj *model.Project,
	periodIDs []ident.PeriodID,
	trigger model.TriggerType,
	triggeredBy string,
) (*model.Run, error) {
	snapshots, err := pinResolverSnapshots(ctx, engine, proj)
	if err != nil {
		return nil, fmt.Errorf("run: pinning resolver snapshots: %w", err)
	}

	return &model.Run{
		ID:             ident.NewRunID(),
		ProjectID:      proj.ID,
		ProjectVersion: proj.Version,
		Snapshot: model.ProjectSnapshot{
			ProjectID:           proj.ID,
			ProjectVersion:      proj.Version,
			Operations:          proj.Operations,
			Selectors:           proj.Selectors,
			Materialization:     proj.Materialization,
			InputDatasetID:      proj.InputDatasetID,
			InputDatasetVersion: proj.InputDatasetVersion,
			ResolverSnapshots:   snapshots,
		},
		PeriodIDs:   periodIDs,
		Status:      model.RunQueued,
		TriggerType: trigger,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// pinResolverSnapshots runs SelectResolverForDataset once for the input
// dataset and every dataset reachable through a join or append source,
// pinning each to the (ResolverID, Version) it resolves to right now.
func pinResolverSnapshots(ctx context.Context, engine *resolver.Engine, proj *model.Project) (map[ident.DatasetID]model.ResolverSnapshot, error) {
	ids := reachableDatasetIDs(proj)
	snapshots := make(map[ident.DatasetID]model.ResolverSnapshot, len(ids))
	for _, id := range ids {
		resolverID, _, resv, err := engine.SelectResolverForDataset(ctx, id, &proj.ID)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", id, err)
		}
		snapshots[id] = model.ResolverSnapshot{ResolverID: resolverID, Version: resv.Version}
	}
	return snapshots, nil
}

// reachableDatasetIDs collects the input dataset plus every dataset
// referenced by a join or append source, deduplicated -- the same set
// activation.Validate walks for its own dry-run resolution checks.
func reachableDatasetIDs(proj *model.Project) []ident.DatasetID {
	seen := map[ident.DatasetID]bool{proj.InputDatasetID: true}
	ids := []ident.DatasetID{proj.InputDatasetID}
	add := func(id ident.DatasetID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, op := range proj.Operations {
		switch op.Type {
		case model.OpUpdate:
			if op.Update != nil {
				for _, j := range op.Update.Joins {
					add(j.DatasetID)
				}
			}
		case model.OpAppend:
			if op.Append != nil {
				add(op.Append.Source.DatasetID)
			}
		}
	}
	return ids
}
