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

package periodfilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

func mkRow(deleted bool) model.Row {
	return model.Row{System: model.SystemColumns{Deleted: deleted}}
}

func TestBuildNonTemporalAlwaysMatches(t *testing.T) {
	p, err := Build(model.NonTemporal, model.Period{})
	require.NoError(t, err)
	assert.True(t, p.Matches(mkRow(false)))
	assert.True(t, p.Matches(mkRow(true)))
}

func TestBuildPeriodMatchesExactIdentifierAndExcludesDeleted(t *testing.T) {
	period := model.Period{ID: ident.PeriodID("2026-01")}
	p, err := Build(model.Period, period)
	require.NoError(t, err)

	matching := mkRow(false)
	matching.System.PeriodID = ident.PeriodID("2026-01")
	assert.True(t, p.Matches(matching))

	wrongPeriod := mkRow(false)
	wrongPeriod.System.PeriodID = ident.PeriodID("2026-02")
	assert.False(t, p.Matches(wrongPeriod))

	deleted := matching
	deleted.System.Deleted = true
	assert.False(t, p.Matches(deleted))
}

func TestBuildBitemporalAsOfSnapshot(t *testing.T) {
	period := model.Period{ID: ident.PeriodID("2026-Q1"), StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p, err := Build(model.Bitemporal, period)
	require.NoError(t, err)

	openEnded := mkRow(false)
	openEnded.System.PeriodFrom = ident.PeriodID("2025-Q4")
	openEnded.System.ValidFrom = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, p.Matches(openEnded), "open period_to/valid_to should pass the asOf snapshot")

	future := mkRow(false)
	future.System.PeriodFrom = ident.PeriodID("2026-Q2")
	future.System.ValidFrom = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, p.Matches(future), "a period_from after the requested period must be excluded")

	closedBefore := mkRow(false)
	closedBefore.System.PeriodFrom = ident.PeriodID("2025-Q1")
	closedTo := ident.PeriodID("2025-Q4")
	closedBefore.System.PeriodTo = &closedTo
	closedBefore.System.ValidFrom = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, p.Matches(closedBefore), "a row closed before the requested period must be excluded")

	validAfterAsOf := mkRow(false)
	validAfterAsOf.System.PeriodFrom = ident.PeriodID("2025-Q4")
	validAfterAsOf.System.ValidFrom = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, p.Matches(validAfterAsOf), "a correction not yet valid at asOf must be excluded")

	deletedRow := openEnded
	deletedRow.System.Deleted = true
	assert.False(t, p.Matches(deletedRow))
}
