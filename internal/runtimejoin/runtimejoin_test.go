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

package runtimejoin

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/dsl"
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
	"github.com/bocacorazon/dobonomodo/internal/resolver"
)

type fakeStore struct {
	datasets   map[ident.DatasetID]*model.Dataset
	defaultRes *model.Resolver
	periods    map[ident.PeriodID]*model.Period
}

func (f *fakeStore) GetProject(context.Context, ident.ProjectID, *int) (*model.Project, error) {
	return nil, assert.AnError
}

func (f *fakeStore) GetDataset(_ context.Context, id ident.DatasetID, _ *int) (*model.Dataset, error) {
	d, ok := f.datasets[id]
	if !ok {
		return nil, assert.AnError
	}
	return d, nil
}

func (f *fakeStore) GetResolver(context.Context, ident.ResolverID, *int) (*model.Resolver, error) {
	return nil, assert.AnError
}

func (f *fakeStore) GetDefaultResolver(context.Context) (*model.Resolver, error) {
	return f.defaultRes, nil
}

func (f *fakeStore) GetPeriod(_ context.Context, id ident.PeriodID) (*model.Period, error) {
	if p, ok := f.periods[id]; ok {
		return p, nil
	}
	return nil, assert.AnError
}

func (f *fakeStore) GetCalendar(context.Context, ident.CalendarID) (*model.Calendar, error) {
	return nil, assert.AnError
}

func (f *fakeStore) ListChildPeriods(context.Context, ident.PeriodID) ([]model.Period, error) {
	return nil, nil
}

type fakeLoader struct {
	rows []model.Row
}

func (f *fakeLoader) LoadRows(context.Context, resolver.ResolvedLocation, model.Schema) ([]model.Row, error) {
	return f.rows, nil
}

func decimalRow(periodFrom, currency string, rate float64, validFrom time.Time, validTo *time.Time) model.Row {
	return model.Row{
		System: model.SystemColumns{
			PeriodFrom: ident.PeriodID(periodFrom),
			ValidFrom:  validFrom,
			ValidTo:    validTo,
		},
		Business: map[ident.ColumnName]model.Value{
			"currency": model.StringValue(currency),
			"rate":     model.DecimalValue(big.NewFloat(rate)),
		},
	}
}

func TestBuildAndRowContextForFXJoin(t *testing.T) {
	fxDatasetID := ident.NewDatasetID()
	fxSchema := []model.ColumnDef{
		{Name: "currency", Type: model.ColumnString},
		{Name: "rate", Type: model.ColumnDecimal},
	}

	period := model.Period{ID: ident.PeriodID("2026-01"), StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{
			fxDatasetID: {
				ID: fxDatasetID,
				MainTable: model.TableRef{
					LogicalName:  "fx_rates",
					TemporalMode: model.Bitemporal,
					Columns:      fxSchema,
				},
			},
		},
		defaultRes: &model.Resolver{
			ID: ident.NewResolverID(),
			Rules: []model.ResolutionRule{
				{Name: "default", DataLevel: model.DataLevelAny, Strategy: model.ResolutionStrategy{Kind: model.StrategyTable, Table: "{table_name}"}},
			},
		},
		periods: map[ident.PeriodID]*model.Period{period.ID: &period},
	}

	closedAt2026 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &fakeLoader{rows: []model.Row{
		decimalRow("2000-01", "EUR", 1.0850, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &closedAt2026),
		decimalRow("2000-01", "EUR", 1.0920, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil),
		decimalRow("2000-01", "GBP", 1.2710, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil),
	}}

	eng := resolver.New(store)
	dslEngine := dsl.NewEngine(nil)

	workingSchema := model.Schema{Columns: []model.ColumnDef{
		{Name: "journal_id", Type: model.ColumnInteger},
		{Name: "currency", Type: model.ColumnString},
		{Name: "amount_local", Type: model.ColumnDecimal},
	}}

	joins := []model.RuntimeJoin{
		{Alias: "fx", DatasetID: fxDatasetID, On: `currency = fx.currency`},
	}

	set, err := Build(context.Background(), joins, workingSchema, "gl", period, nil, nil, store, eng, loader, dslEngine)
	require.NoError(t, err)

	eurRow := model.Row{Business: map[ident.ColumnName]model.Value{
		"journal_id":   model.IntValue(101),
		"currency":     model.StringValue("EUR"),
		"amount_local": model.DecimalValue(big.NewFloat(100)),
	}}
	rc := set.RowContextFor(eurRow, workingSchema)
	rate := rc.Column("fx", "rate")
	require.False(t, rate.Null)
	got, _ := rate.Decimal().Float64()
	assert.InDelta(t, 1.0920, got, 0.0001, "bitemporal asOf should pick the post-2026 EUR rate, not the closed one")

	jpyRow := model.Row{Business: map[ident.ColumnName]model.Value{
		"journal_id":   model.IntValue(103),
		"currency":     model.StringValue("JPY"),
		"amount_local": model.DecimalValue(big.NewFloat(1000)),
	}}
	rc2 := set.RowContextFor(jpyRow, workingSchema)
	assert.True(t, rc2.Column("fx", "rate").Null, "an unmatched alias must read as null, not error")
}

func TestBuildRejectsAliasCollisionWithWorkingLogicalName(t *testing.T) {
	// The collision check runs before any resolver/store lookup, so this
	// test never needs a registered period or dataset lookup to succeed.
	datasetID := ident.NewDatasetID()
	store := &fakeStore{
		datasets: map[ident.DatasetID]*model.Dataset{
			datasetID: {ID: datasetID, MainTable: model.TableRef{LogicalName: "gl", Columns: nil}},
		},
		defaultRes: &model.Resolver{ID: ident.NewResolverID(), Rules: []model.ResolutionRule{
			{Name: "default", DataLevel: model.DataLevelAny, Strategy: model.ResolutionStrategy{Kind: model.StrategyTable, Table: "x"}},
		}},
	}
	eng := resolver.New(store)
	dslEngine := dsl.NewEngine(nil)

	_, err := Build(context.Background(), []model.RuntimeJoin{
		{Alias: "gl", DatasetID: datasetID, On: "TRUE"},
	}, model.Schema{}, "gl", model.Period{}, nil, nil, store, eng, &fakeLoader{}, dslEngine)
	require.Error(t, err)
	var collide *AliasCollisionError
	require.ErrorAs(t, err, &collide)
}
