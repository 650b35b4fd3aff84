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

// Package chaos wraps internal/executor's DataLoader and OutputWriter
// with probability-gated fault injection, so tests can exercise the
// executor's failure-preservation semantics (a failed operation leaves
// run.LastCompletedOperation pointing at the last op that actually
// committed) without relying on a flaky real backend to misbehave on
// cue.
package chaos

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// ErrChaos is the error injected by every wrapper in this package.
var ErrChaos = errors.New("chaos")

// WithLoader returns a DataLoader that fails LoadRows with probability
// prob before delegating. delegate is returned unwrapped when prob is
// zero or negative.
func WithLoader(delegate executor.DataLoader, prob float32) executor.DataLoader {
	if prob <= 0 {
		return delegate
	}
	return &chaosLoader{delegate: delegate, prob: prob}
}

type chaosLoader struct {
	delegate executor.DataLoader
	prob     float32
}

func (l *chaosLoader) LoadRows(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema) ([]model.Row, error) {
	if rand.Float32() < l.prob {
		return nil, doChaos("LoadRows")
	}
	return l.delegate.LoadRows(ctx, loc, schema)
}

// WithWriter returns an OutputWriter that fails Write with probability
// prob before delegating, and one that fails *after* delegating with
// the same probability -- an output op whose destination write actually
// landed but whose caller observed an error is the case
// LastCompletedOperation exists to make safe to retry.
func WithWriter(delegate executor.OutputWriter, prob float32) executor.OutputWriter {
	if prob <= 0 {
		return delegate
	}
	return &chaosWriter{delegate: delegate, prob: prob}
}

type chaosWriter struct {
	delegate executor.OutputWriter
	prob     float32
}

func (w *chaosWriter) Write(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema, rows []model.Row) error {
	if rand.Float32() < w.prob {
		return doChaos("Write:pre")
	}
	if err := w.delegate.Write(ctx, loc, schema, rows); err != nil {
		return err
	}
	if rand.Float32() < w.prob {
		return doChaos("Write:post")
	}
	return nil
}

// WithRegistrar returns a DatasetRegistrar that fails RegisterDataset
// with probability prob before delegating.
func WithRegistrar(delegate executor.DatasetRegistrar, prob float32) executor.DatasetRegistrar {
	if prob <= 0 {
		return delegate
	}
	return &chaosRegistrar{delegate: delegate, prob: prob}
}

type chaosRegistrar struct {
	delegate executor.DatasetRegistrar
	prob     float32
}

func (r *chaosRegistrar) RegisterDataset(ctx context.Context, name string, table model.TableRef) (ident.DatasetID, int, error) {
	if rand.Float32() < r.prob {
		return ident.DatasetID{}, 0, doChaos("RegisterDataset")
	}
	return r.delegate.RegisterDataset(ctx, name, table)
}

// doChaos is a convenient place to set a breakpoint.
func doChaos(msg string) error {
	return errors.WithMessage(ErrChaos, msg)
}
