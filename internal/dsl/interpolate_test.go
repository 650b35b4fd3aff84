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

package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateSubstitutesSelectors(t *testing.T) {
	out, err := Interpolate(`region = "{{TARGET_REGION}}"`, map[string]string{"TARGET_REGION": "us-east"})
	require.NoError(t, err)
	assert.Equal(t, `region = "us-east"`, out)
}

func TestInterpolateNested(t *testing.T) {
	out, err := Interpolate(`{{OUTER}}`, map[string]string{
		"OUTER": "prefix_{{INNER}}",
		"INNER": "value",
	})
	require.NoError(t, err)
	assert.Equal(t, "prefix_value", out)
}

func TestInterpolateUnresolved(t *testing.T) {
	_, err := Interpolate(`{{MISSING}}`, map[string]string{})
	require.Error(t, err)
	assert.IsType(t, &UnresolvedSelectorRefError{}, err)
}

func TestInterpolateCycleDetected(t *testing.T) {
	_, err := Interpolate(`{{A}}`, map[string]string{
		"A": "{{B}}",
		"B": "{{A}}",
	})
	require.Error(t, err)
	assert.IsType(t, &CycleDetectedError{}, err)
}

func TestInterpolateNoTokensPassesThrough(t *testing.T) {
	out, err := Interpolate(`amount > 10`, nil)
	require.NoError(t, err)
	assert.Equal(t, `amount > 10`, out)
}
