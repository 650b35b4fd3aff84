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

package executor

import (
	"context"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

// DataLoader fetches the physical rows behind one resolved location.
// Its signature matches runtimejoin.Loader exactly, so a single
// internal/iobound adapter satisfies both without an explicit
// declaration.
type DataLoader interface {
	LoadRows(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema) ([]model.Row, error)
}

// OutputWriter materializes an output operation's rows at its resolved
// destination.
type OutputWriter interface {
	Write(ctx context.Context, loc resolver.ResolvedLocation, schema model.Schema, rows []model.Row) error
}

// DatasetRegistrar records an output operation's rows as a new Dataset,
// or a new version of an existing one, when register_as_dataset names
// it.
type DatasetRegistrar interface {
	RegisterDataset(ctx context.Context, name string, table model.TableRef) (ident.DatasetID, int, error)
}

// Store is the metadata surface the executor needs beyond what
// resolver.Store already provides: append's cross-calendar path (a
// source table declared against a different Calendar than the Run's
// bound Period) must find the single active CalendarMapping between
// the two. internal/iobound's MetadataStore satisfies this the same
// way it satisfies resolver.Store, structurally.
type Store interface {
	resolver.Store
	GetCalendarMapping(ctx context.Context, source, target ident.CalendarID) (*model.CalendarMapping, error)
}
