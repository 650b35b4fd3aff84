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

// Package diag is a registry of named health checks, the role the
// teacher's own internal/diag.Diagnostics plays for its connection
// pools and loops (referenced throughout internal/source/logical's
// provider wiring as a parameter every long-lived component accepts,
// never defined in the retrieved pack, so this is a fresh
// implementation of the same role rather than a port).
package diag

import (
	"context"
	"sync"
)

// Status is the outcome of one named check.
type Status struct {
	Name string
	Err  error
}

// OK reports whether the check succeeded.
func (s Status) OK() bool { return s.Err == nil }

// Diagnostics collects named health checks contributed by every
// long-lived component (a metadata store's connection pool, the run
// lifecycle's concurrency guard, a loaded DataSource) and runs them on
// demand, the same "many callers register, one place reports" shape
// `stdpool.WithDiagnostics` wires a pool's readiness into.
type Diagnostics struct {
	mu     sync.Mutex
	checks map[string]func(ctx context.Context) error
}

// New returns an empty Diagnostics registry.
func New() *Diagnostics {
	return &Diagnostics{checks: make(map[string]func(ctx context.Context) error)}
}

// Register adds a named check. Registering the same name twice
// replaces the previous check, so a component re-registering after a
// reconnect doesn't accumulate stale entries.
func (d *Diagnostics) Register(name string, check func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checks[name] = check
}

// Report runs every registered check and returns one Status per name,
// in no particular order.
func (d *Diagnostics) Report(ctx context.Context) []Status {
	d.mu.Lock()
	checks := make(map[string]func(ctx context.Context) error, len(d.checks))
	for name, check := range d.checks {
		checks[name] = check
	}
	d.mu.Unlock()

	out := make([]Status, 0, len(checks))
	for name, check := range checks {
		out = append(out, Status{Name: name, Err: check(ctx)})
	}
	return out
}

// Healthy reports whether every registered check currently passes.
func (d *Diagnostics) Healthy(ctx context.Context) bool {
	for _, s := range d.Report(ctx) {
		if !s.OK() {
			return false
		}
	}
	return true
}
