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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecodeProjectRejectsUnknownTopLevelField(t *testing.T) {
	doc := []byte(`
id: "11111111-1111-1111-1111-111111111111"
version: 1
status: draft
bogus_field: true
`)
	_, err := DecodeProject(doc)
	require.Error(t, err)
}

func TestDecodeProjectAcceptsOperationsByType(t *testing.T) {
	doc := []byte(`
id: "11111111-1111-1111-1111-111111111111"
version: 1
status: draft
input_dataset_id: "22222222-2222-2222-2222-222222222222"
input_dataset_version: 1
materialization: runtime
operations:
  - type: update
    seq: 1
    update:
      joins: []
      assignments: []
  - type: output
    seq: 2
    output:
      destination:
        logical_name: out
        temporal_mode: Period
        source:
          datasource_id: warehouse
`)
	p, err := DecodeProject(doc)
	require.NoError(t, err)
	require.Len(t, p.Operations, 2)
	assert.Equal(t, OpUpdate, p.Operations[0].Type)
	assert.NotNil(t, p.Operations[0].Update)
	assert.Equal(t, OpOutput, p.Operations[1].Type)
	assert.NotNil(t, p.Operations[1].Output)
}

func TestOperationUnmarshalYAMLRejectsMismatchedArgumentGroup(t *testing.T) {
	doc := []byte(`
type: update
seq: 1
aggregate:
  group_by: []
  aggregations: []
`)
	var op Operation
	err := yaml.Unmarshal(doc, &op)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate")
}

func TestResolutionStrategyUnmarshalYAMLAcceptsPathVariant(t *testing.T) {
	doc := []byte(`
type: path
datasource_id: warehouse
path: "{table_name}.parquet"
`)
	var s ResolutionStrategy
	require.NoError(t, yaml.Unmarshal(doc, &s))
	assert.Equal(t, StrategyPath, s.Kind)
	assert.Equal(t, "{table_name}.parquet", s.Path)
}

func TestResolutionStrategyUnmarshalYAMLRejectsCrossVariantFields(t *testing.T) {
	doc := []byte(`
type: path
datasource_id: warehouse
path: "{table_name}.parquet"
endpoint: "https://example.invalid/catalog"
`)
	var s ResolutionStrategy
	err := yaml.Unmarshal(doc, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}

func TestResolutionStrategyUnmarshalYAMLRejectsUnknownType(t *testing.T) {
	doc := []byte(`
type: made_up
`)
	var s ResolutionStrategy
	err := yaml.Unmarshal(doc, &s)
	require.Error(t, err)
}
