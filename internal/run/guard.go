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
	"sync"

	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// Lease is an exclusive, time-unbounded hold on one (project, period)
// pair, released exactly once its Run reaches a terminal state.
type Lease interface {
	// Context is canceled if the lease is forcibly revoked; Execute
	// never does this itself, but a caller wiring in external
	// supervision (e.g. an operator override) can.
	Context() context.Context
	Release()
}

// ConcurrencyGuardError reports that a Run was rejected because
// another Run for the same (project_id, period_id) is already queued
// or running, per the per-Project+Period guard.
type ConcurrencyGuardError struct {
	ProjectID ident.ProjectID
	PeriodID  ident.PeriodID
}

func (e *ConcurrencyGuardError) Error() string {
	return fmt.Sprintf("run: a Run for project %s period %s is already queued or running", e.ProjectID, e.PeriodID)
}

// Guard coordinates the per-(project_id, period_id) concurrency check:
// at most one Run may hold a Period of a Project at a time. Acquire
// returns *ConcurrencyGuardError when another Run already holds it.
type Guard interface {
	Acquire(ctx context.Context, projectID ident.ProjectID, periodID ident.PeriodID) (Lease, error)
}

// MemoryGuard is an in-process Guard backed by a held-pair set, the
// same exclusive-hold shape the pack's Leases interface describes, cut
// down to what a single Run orchestrator needs: no renewal, no
// cross-process coordination.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[key]struct{}
}

type key struct {
	project ident.ProjectID
	period  ident.PeriodID
}

// NewMemoryGuard returns a ready-to-use MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[key]struct{})}
}

func (g *MemoryGuard) Acquire(ctx context.Context, projectID ident.ProjectID, periodID ident.PeriodID) (Lease, error) {
	k := key{project: projectID, period: periodID}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.held[k]; held {
		return nil, &ConcurrencyGuardError{ProjectID: projectID, PeriodID: periodID}
	}
	g.held[k] = struct{}{}

	leaseCtx, cancel := context.WithCancel(ctx)
	return &memoryLease{guard: g, key: k, ctx: leaseCtx, cancel: cancel}, nil
}

type memoryLease struct {
	guard  *MemoryGuard
	key    key
	ctx    context.Context
	cancel context.CancelFunc

	once sync.Once
}

func (l *memoryLease) Context() context.Context { return l.ctx }

func (l *memoryLease) Release() {
	l.once.Do(func() {
		l.cancel()
		l.guard.mu.Lock()
		delete(l.guard.held, l.key)
		l.guard.mu.Unlock()
	})
}
