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

package resolver

import (
	"context"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// Store is the slice of the metadata store the resolution engine
// needs: reads only, no Run lifecycle methods. internal/iobound's
// MetadataStore adapters satisfy this directly.
type Store interface {
	GetProject(ctx context.Context, id ident.ProjectID, version *int) (*model.Project, error)
	GetDataset(ctx context.Context, id ident.DatasetID, version *int) (*model.Dataset, error)
	GetResolver(ctx context.Context, id ident.ResolverID, version *int) (*model.Resolver, error)
	GetDefaultResolver(ctx context.Context) (*model.Resolver, error)
	GetPeriod(ctx context.Context, id ident.PeriodID) (*model.Period, error)
	GetCalendar(ctx context.Context, id ident.CalendarID) (*model.Calendar, error)
	// ListChildPeriods returns every Period whose ParentID equals
	// parent, used to walk the Calendar hierarchy downward during
	// period expansion.
	ListChildPeriods(ctx context.Context, parent ident.PeriodID) ([]model.Period, error)
}
