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

// Package pgmeta is a Postgres-backed metadata store: every entity
// (Project, Dataset, Resolver, Period, Calendar, CalendarMapping, Run)
// is stored as a JSONB document keyed by its natural id, the same
// "one wide JSONB column plus a handful of indexed key columns for
// lookups" shape the teacher's resolved-timestamp tables use for
// anything that isn't mutation data itself.
package pgmeta

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// Store is a pgxpool-backed model.Project/Dataset/Resolver/Period/
// Calendar/CalendarMapping/Run reader-writer.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to connString, pinging until the server accepts
// connections or ctx is canceled, the same ping-until-ready shape
// stdpool.OpenMySQLAsTarget uses for its own target pool.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("pgmeta: opening pool: %w", err)
	}

	for {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		log.Info("pgmeta: waiting for database to become ready")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	s := &Store{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dobonomodo_projects (id UUID, version INT, doc JSONB NOT NULL, PRIMARY KEY (id, version))`,
		`CREATE TABLE IF NOT EXISTS dobonomodo_datasets (id UUID, version INT, doc JSONB NOT NULL, PRIMARY KEY (id, version))`,
		`CREATE TABLE IF NOT EXISTS dobonomodo_resolvers (id UUID, version INT, is_default BOOLEAN NOT NULL DEFAULT FALSE, doc JSONB NOT NULL, PRIMARY KEY (id, version))`,
		`CREATE TABLE IF NOT EXISTS dobonomodo_periods (id TEXT PRIMARY KEY, parent_id TEXT, doc JSONB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS dobonomodo_calendars (id UUID PRIMARY KEY, doc JSONB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS dobonomodo_calendar_mappings (source_id UUID, target_id UUID, doc JSONB NOT NULL, PRIMARY KEY (source_id, target_id))`,
		`CREATE TABLE IF NOT EXISTS dobonomodo_runs (id UUID PRIMARY KEY, doc JSONB NOT NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgmeta: preparing schema: %w", err)
		}
	}
	return nil
}

// --- resolver.Store ---

func (s *Store) GetProject(ctx context.Context, id ident.ProjectID, version *int) (*model.Project, error) {
	var row pgx.Row
	if version != nil {
		row = s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_projects WHERE id = $1 AND version = $2`, pgUUID(id), *version)
	} else {
		row = s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_projects WHERE id = $1 ORDER BY version DESC LIMIT 1`, pgUUID(id))
	}
	var p model.Project
	if err := scanJSON(row, &p); err != nil {
		return nil, fmt.Errorf("pgmeta: loading project %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) GetDataset(ctx context.Context, id ident.DatasetID, version *int) (*model.Dataset, error) {
	var row pgx.Row
	if version != nil {
		row = s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_datasets WHERE id = $1 AND version = $2`, pgUUID(id), *version)
	} else {
		row = s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_datasets WHERE id = $1 ORDER BY version DESC LIMIT 1`, pgUUID(id))
	}
	var d model.Dataset
	if err := scanJSON(row, &d); err != nil {
		return nil, fmt.Errorf("pgmeta: loading dataset %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) GetResolver(ctx context.Context, id ident.ResolverID, version *int) (*model.Resolver, error) {
	var row pgx.Row
	if version != nil {
		row = s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_resolvers WHERE id = $1 AND version = $2`, pgUUID(id), *version)
	} else {
		row = s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_resolvers WHERE id = $1 ORDER BY version DESC LIMIT 1`, pgUUID(id))
	}
	var r model.Resolver
	if err := scanJSON(row, &r); err != nil {
		return nil, fmt.Errorf("pgmeta: loading resolver %s: %w", id, err)
	}
	return &r, nil
}

func (s *Store) GetDefaultResolver(ctx context.Context) (*model.Resolver, error) {
	row := s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_resolvers WHERE is_default ORDER BY version DESC LIMIT 1`)
	var r model.Resolver
	if err := scanJSON(row, &r); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("pgmeta: loading default resolver: %w", err)
	}
	return &r, nil
}

func (s *Store) GetPeriod(ctx context.Context, id ident.PeriodID) (*model.Period, error) {
	row := s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_periods WHERE id = $1`, string(id))
	var p model.Period
	if err := scanJSON(row, &p); err != nil {
		return nil, fmt.Errorf("pgmeta: loading period %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) GetCalendar(ctx context.Context, id ident.CalendarID) (*model.Calendar, error) {
	row := s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_calendars WHERE id = $1`, pgUUID(id))
	var c model.Calendar
	if err := scanJSON(row, &c); err != nil {
		return nil, fmt.Errorf("pgmeta: loading calendar %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) ListChildPeriods(ctx context.Context, parent ident.PeriodID) ([]model.Period, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM dobonomodo_periods WHERE parent_id = $1 ORDER BY id`, string(parent))
	if err != nil {
		return nil, fmt.Errorf("pgmeta: listing children of %s: %w", parent, err)
	}
	defer rows.Close()

	var out []model.Period
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var p model.Period
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetCalendarMapping(ctx context.Context, source, target ident.CalendarID) (*model.CalendarMapping, error) {
	row := s.pool.QueryRow(ctx, `SELECT doc FROM dobonomodo_calendar_mappings WHERE source_id = $1 AND target_id = $2`, pgUUID(source), pgUUID(target))
	var m model.CalendarMapping
	if err := scanJSON(row, &m); err != nil {
		return nil, fmt.Errorf("pgmeta: loading mapping %s -> %s: %w", source, target, err)
	}
	return &m, nil
}

// --- run.Store ---

func (s *Store) AdvanceRun(ctx context.Context, run *model.Run) error {
	return s.upsertRun(ctx, run)
}

func (s *Store) FinalizeRun(ctx context.Context, run *model.Run) error {
	return s.upsertRun(ctx, run)
}

func (s *Store) upsertRun(ctx context.Context, run *model.Run) error {
	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("pgmeta: encoding run %s: %w", run.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dobonomodo_runs (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		pgUUID(run.ID), doc)
	if err != nil {
		return fmt.Errorf("pgmeta: persisting run %s: %w", run.ID, err)
	}
	return nil
}

func scanJSON(row pgx.Row, dest any) error {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// pgUUID renders an ident id in its canonical string form, without
// importing google/uuid here -- every ident type already implements
// fmt.Stringer, and pgx accepts a UUID's string form for its uuid
// OID parameters transparently.
func pgUUID(id fmt.Stringer) string { return id.String() }
