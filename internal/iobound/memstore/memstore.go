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

// Package memstore is an in-memory MetadataStore/DataLoader/
// OutputWriter/DatasetRegistrar, the backend internal/testutil wires
// fixtures against instead of a real database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// Store holds every metadata entity and every physical table's rows in
// plain Go maps behind one mutex. Versioned entities (Project,
// Dataset, Resolver) key on (id, version); Get with a nil version
// returns the highest version on record, mirroring how a real
// metadata table's "latest" query would behave.
type Store struct {
	mu sync.RWMutex

	projects  map[ident.ProjectID]map[int]*model.Project
	datasets  map[ident.DatasetID]map[int]*model.Dataset
	resolvers map[ident.ResolverID]map[int]*model.Resolver
	defaultID *ident.ResolverID
	periods   map[ident.PeriodID]*model.Period
	calendars map[ident.CalendarID]*model.Calendar
	mappings  map[[2]ident.CalendarID]*model.CalendarMapping
	runs      map[ident.RunID]*model.Run

	tables map[string][]model.Row

	rowTrace    map[ident.RunID][]executor.RowEvent
	outputTrace map[ident.RunID][]executor.OutputEvent
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects:  map[ident.ProjectID]map[int]*model.Project{},
		datasets:  map[ident.DatasetID]map[int]*model.Dataset{},
		resolvers: map[ident.ResolverID]map[int]*model.Resolver{},
		periods:   map[ident.PeriodID]*model.Period{},
		calendars: map[ident.CalendarID]*model.Calendar{},
		mappings:  map[[2]ident.CalendarID]*model.CalendarMapping{},
		runs:      map[ident.RunID]*model.Run{},
		tables:    map[string][]model.Row{},
	}
}

// --- seeding helpers, called directly by tests/fixtures, never by the
// executor or resolver. ---

func (s *Store) PutProject(p *model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[p.ID] == nil {
		s.projects[p.ID] = map[int]*model.Project{}
	}
	s.projects[p.ID][p.Version] = p
}

func (s *Store) PutDataset(d *model.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.datasets[d.ID] == nil {
		s.datasets[d.ID] = map[int]*model.Dataset{}
	}
	s.datasets[d.ID][d.Version] = d
}

func (s *Store) PutResolver(r *model.Resolver, makeDefault bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolvers[r.ID] == nil {
		s.resolvers[r.ID] = map[int]*model.Resolver{}
	}
	s.resolvers[r.ID][r.Version] = r
	if makeDefault {
		id := r.ID
		s.defaultID = &id
	}
}

func (s *Store) PutPeriod(p *model.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[p.ID] = p
}

func (s *Store) PutCalendar(c *model.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[c.ID] = c
}

func (s *Store) PutCalendarMapping(m *model.CalendarMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[[2]ident.CalendarID{m.SourceCalendar, m.TargetCalendar}] = m
}

// PutTable seeds the physical rows behind a DataSourceID+table name
// pair, the same key LoadRows/Write address by.
func (s *Store) PutTable(dataSourceID ident.DataSourceID, table string, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tableKey(dataSourceID, table)] = rows
}

func (s *Store) Table(dataSourceID ident.DataSourceID, table string) []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Row(nil), s.tables[tableKey(dataSourceID, table)]...)
}

func tableKey(dataSourceID ident.DataSourceID, table string) string {
	return string(dataSourceID) + "/" + table
}

// --- resolver.Store ---

func (s *Store) GetProject(_ context.Context, id ident.ProjectID, version *int) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("memstore: project %s not found", id)
	}
	if version != nil {
		p, ok := versions[*version]
		if !ok {
			return nil, fmt.Errorf("memstore: project %s version %d not found", id, *version)
		}
		return p, nil
	}
	return latest(versions), nil
}

func (s *Store) GetDataset(_ context.Context, id ident.DatasetID, version *int) (*model.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("memstore: dataset %s not found", id)
	}
	if version != nil {
		d, ok := versions[*version]
		if !ok {
			return nil, fmt.Errorf("memstore: dataset %s version %d not found", id, *version)
		}
		return d, nil
	}
	return latest(versions), nil
}

func (s *Store) GetResolver(_ context.Context, id ident.ResolverID, version *int) (*model.Resolver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.resolvers[id]
	if !ok {
		return nil, fmt.Errorf("memstore: resolver %s not found", id)
	}
	if version != nil {
		r, ok := versions[*version]
		if !ok {
			return nil, fmt.Errorf("memstore: resolver %s version %d not found", id, *version)
		}
		return r, nil
	}
	return latest(versions), nil
}

func (s *Store) GetDefaultResolver(ctx context.Context) (*model.Resolver, error) {
	s.mu.RLock()
	id := s.defaultID
	s.mu.RUnlock()
	if id == nil {
		return nil, nil
	}
	return s.GetResolver(ctx, *id, nil)
}

func (s *Store) GetPeriod(_ context.Context, id ident.PeriodID) (*model.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, fmt.Errorf("memstore: period %s not found", id)
	}
	return p, nil
}

func (s *Store) GetCalendar(_ context.Context, id ident.CalendarID) (*model.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendars[id]
	if !ok {
		return nil, fmt.Errorf("memstore: calendar %s not found", id)
	}
	return c, nil
}

func (s *Store) ListChildPeriods(_ context.Context, parent ident.PeriodID) ([]model.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Period
	for _, p := range s.periods {
		if p.ParentID != nil && *p.ParentID == parent {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCalendarMapping(_ context.Context, source, target ident.CalendarID) (*model.CalendarMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[[2]ident.CalendarID{source, target}]
	if !ok {
		return nil, fmt.Errorf("memstore: no mapping from calendar %s to %s", source, target)
	}
	return m, nil
}

// --- run.Store ---

func (s *Store) AdvanceRun(_ context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) FinalizeRun(_ context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) GetRun(_ context.Context, id ident.RunID) (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("memstore: run %s not found", id)
	}
	return r, nil
}

// --- executor.DataLoader / OutputWriter / DatasetRegistrar ---

func (s *Store) LoadRows(_ context.Context, loc resolver.ResolvedLocation, _ model.Schema) ([]model.Row, error) {
	return s.Table(loc.DataSourceID, tableName(loc)), nil
}

func (s *Store) Write(_ context.Context, loc resolver.ResolvedLocation, _ model.Schema, rows []model.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tableKey(loc.DataSourceID, tableName(loc))
	s.tables[key] = append(append([]model.Row(nil), s.tables[key]...), rows...)
	return nil
}

func (s *Store) RegisterDataset(_ context.Context, name string, table model.TableRef) (ident.DatasetID, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ident.NewDatasetID()
	for existingID, versions := range s.datasets {
		for _, d := range versions {
			if string(d.MainTable.LogicalName) == name || string(d.MainTable.LogicalName) == string(table.LogicalName) {
				id = existingID
			}
		}
	}
	version := 1
	if versions, ok := s.datasets[id]; ok {
		version = len(versions) + 1
	} else {
		s.datasets[id] = map[int]*model.Dataset{}
	}
	s.datasets[id][version] = &model.Dataset{
		ID: id, Version: version, Status: model.DatasetActive, MainTable: table,
	}
	return id, version, nil
}

// --- trace.TraceWriter ---

// WriteRow records one row-level trace event, keyed by Run. Satisfies
// trace.TraceWriter structurally; memstore does not import the trace
// package to avoid callers who only need the metadata/data surface
// paying for it.
func (s *Store) WriteRow(_ context.Context, run ident.RunID, event executor.RowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rowTrace == nil {
		s.rowTrace = map[ident.RunID][]executor.RowEvent{}
	}
	s.rowTrace[run] = append(s.rowTrace[run], event)
	return nil
}

// WriteOutput records one output-level trace event.
func (s *Store) WriteOutput(_ context.Context, run ident.RunID, event executor.OutputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputTrace == nil {
		s.outputTrace = map[ident.RunID][]executor.OutputEvent{}
	}
	s.outputTrace[run] = append(s.outputTrace[run], event)
	return nil
}

// RowTrace returns the row-level trace events recorded for run, in
// the order WriteRow received them.
func (s *Store) RowTrace(run ident.RunID) []executor.RowEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]executor.RowEvent(nil), s.rowTrace[run]...)
}

// OutputTrace returns the output-level trace events recorded for run.
func (s *Store) OutputTrace(run ident.RunID) []executor.OutputEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]executor.OutputEvent(nil), s.outputTrace[run]...)
}

func tableName(loc resolver.ResolvedLocation) string {
	if loc.Table != "" {
		return loc.Table
	}
	return loc.Path
}

func latest[T any](versions map[int]*T) *T {
	best := -1
	var out *T
	for v, entry := range versions {
		if v > best {
			best = v
			out = entry
		}
	}
	return out
}
