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

// Package testutil assembles a complete, in-memory set of services for
// tests elsewhere in the module, the same role the teacher's
// internal/sinktest/all.Fixture plays for its database-backed
// services. Where the teacher's Fixture dials a real CockroachDB
// cluster, this one wires entirely against internal/iobound/memstore,
// so callers get a working Runner without any external dependency.
//
// A Fixture's provider graph is small and stable enough to hand-write
// directly rather than generate; TestSet documents that graph as a
// wire.NewSet for anyone who later wants to fold it into a larger,
// generated graph, even though nothing in this module invokes
// `go generate` for it.
package testutil

import (
	"context"

	"github.com/google/wire"

	"github.com/bocacorazon/dobonomodo/internal/chaos"
	"github.com/bocacorazon/dobonomodo/internal/diag"
	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/iobound/memstore"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
	"github.com/bocacorazon/dobonomodo/internal/run"
)

// Fixture bundles a memstore.Store with every service a Run needs on
// top of it, ready to hand to run.Runner.Execute. Tests that need to
// seed metadata use the Store field's Put* methods directly; tests
// that need to exercise fault tolerance pass WithChaos to NewFixture.
type Fixture struct {
	Store       *memstore.Store
	Diagnostics *diag.Diagnostics
	DSL         *dsl.Engine
	Resolver    *resolver.Engine
	Runner      *run.Runner

	// ChaosProbability, if non-zero, wraps the Store's DataLoader,
	// OutputWriter, and DatasetRegistrar with internal/chaos before
	// they're wired into Runner.
	ChaosProbability float32

	// Selectors seeds the DSL engine's named selector set; most tests
	// leave this nil.
	Selectors map[string]string

	// TraceBufferSize sizes the Runner's trace.Engine channel; zero
	// uses trace.Engine's own default.
	TraceBufferSize int
}

// Option configures a Fixture before its services are wired together.
type Option func(*Fixture)

// WithChaos sets the probability internal/chaos injects faults into
// the Store-backed DataLoader, OutputWriter, and DatasetRegistrar.
func WithChaos(probability float32) Option {
	return func(f *Fixture) { f.ChaosProbability = probability }
}

// WithSelectors seeds the DSL engine's named selectors.
func WithSelectors(selectors map[string]string) Option {
	return func(f *Fixture) { f.Selectors = selectors }
}

// WithTraceBufferSize overrides the Runner's trace channel depth.
func WithTraceBufferSize(n int) Option {
	return func(f *Fixture) { f.TraceBufferSize = n }
}

// NewFixture wires a complete Fixture backed by a fresh memstore.Store.
// The returned cleanup function releases resources the Fixture
// acquired; callers should defer it even though the current
// implementation's cleanup is a no-op, so a future Fixture that opens
// a real connection doesn't require every call site to change.
func NewFixture(opts ...Option) (*Fixture, func()) {
	f := &Fixture{
		Store:       memstore.New(),
		Diagnostics: diag.New(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.DSL = dsl.NewEngine(f.Selectors)
	f.Resolver = resolver.New(f.Store)

	var loader executor.DataLoader = f.Store
	var writer executor.OutputWriter = f.Store
	var registrar executor.DatasetRegistrar = f.Store
	if f.ChaosProbability > 0 {
		loader = chaos.WithLoader(loader, f.ChaosProbability)
		writer = chaos.WithWriter(writer, f.ChaosProbability)
		registrar = chaos.WithRegistrar(registrar, f.ChaosProbability)
	}
	f.Diagnostics.Register("memstore", func(context.Context) error { return nil })

	f.Runner = &run.Runner{
		DSL:             f.DSL,
		ResolverEngine:  f.Resolver,
		Store:           f.Store,
		Loader:          loader,
		Writer:          writer,
		Registrar:       registrar,
		TraceWriter:     f.Store,
		Guard:           run.NewMemoryGuard(),
		TraceBufferSize: f.TraceBufferSize,
	}

	return f, func() {}
}

// TestSet lists the plain constructors among the providers NewFixture
// wires by hand (memstore, diag, resolver), for anyone assembling a
// larger generated graph; the DSL engine, chaos wrappers and Runner
// are not in it.
var TestSet = wire.NewSet(
	memstore.New,
	diag.New,
	resolver.New,
)
