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

package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConfigBindSetsDefaults(t *testing.T) {
	var c RunConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.Bind(flags)

	assert.Equal(t, "postgres", c.Metadata.Driver)
	assert.Equal(t, 256, c.TraceBufferSize)
	assert.Equal(t, float32(0), c.ChaosProbability)
}

func TestRunConfigPreflightRejectsMissingMetadataURL(t *testing.T) {
	var c RunConfig
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.Bind(flags)
	require.NoError(t, flags.Parse(nil))

	err := c.Preflight()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadataURL")
}

func TestRunConfigPreflightRejectsBadChaosProbability(t *testing.T) {
	c := RunConfig{
		ChaosProbability:        1.5,
		TraceBufferSize:         1,
		InterpolationDepthLimit: 1,
		ExpressionCacheSize:     1,
	}
	c.Metadata = MetadataConfig{Driver: "postgres", ConnectionString: "x", ConnectTimeout: 1}

	err := c.Preflight()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chaosProbability")
}

func TestRunConfigPreflightAcceptsValidConfig(t *testing.T) {
	c := RunConfig{
		TraceBufferSize:         256,
		ChaosProbability:        0,
		InterpolationDepthLimit: 8,
		ExpressionCacheSize:     4096,
	}
	c.Metadata = MetadataConfig{Driver: "mysql", ConnectionString: "user:pass@tcp(localhost:3306)/db", ConnectTimeout: 30}

	require.NoError(t, c.Preflight())
}

func TestMetadataConfigPreflightRejectsUnknownDriver(t *testing.T) {
	c := MetadataConfig{Driver: "oracle", ConnectionString: "x", ConnectTimeout: 1}
	err := c.Preflight()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadataDriver")
}
