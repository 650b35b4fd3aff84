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

// Package config defines the pflag-bindable Config structs a CLI or
// server entry point wires up before constructing the rest of the
// module; nothing in this package parses os.Args itself.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// MetadataConfig names the Postgres or MySQL backend internal/iobound's
// metadata store and data adapters connect to.
type MetadataConfig struct {
	Driver            string
	ConnectionString  string
	ConnectTimeout    time.Duration
}

// Bind registers flags onto flags.
func (c *MetadataConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.Driver, "metadataDriver", "postgres",
		"the metadata and data backend to use: postgres or mysql")
	flags.StringVar(&c.ConnectionString, "metadataURL", "",
		"connection string for the metadata and data backend")
	flags.DurationVar(&c.ConnectTimeout, "metadataConnectTimeout", 30*time.Second,
		"how long to wait for the metadata backend to become reachable")
}

// Preflight validates c.
func (c *MetadataConfig) Preflight() error {
	switch c.Driver {
	case "postgres", "mysql":
	default:
		return errors.Errorf("metadataDriver must be postgres or mysql, got %q", c.Driver)
	}
	if c.ConnectionString == "" {
		return errors.New("metadataURL unset")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("metadataConnectTimeout must be positive")
	}
	return nil
}

// RunConfig tunes the run lifecycle: the trace engine's buffer size,
// the chaos fault probability, and DSL limits. InterpolationDepthLimit
// and ExpressionCacheSize are validated here but not read by the dsl
// package, which uses its own fixed interpolation depth bound of 16 and
// an expression cache that never evicts.
type RunConfig struct {
	Metadata MetadataConfig

	TraceBufferSize          int
	ChaosProbability         float32
	InterpolationDepthLimit  int
	ExpressionCacheSize      int
}

var _ interface {
	Bind(*pflag.FlagSet)
	Preflight() error
} = (*RunConfig)(nil)

// Bind registers flags, delegating to Metadata's own Bind the way
// Config.Bind delegates to CDC.Bind in the teacher.
func (c *RunConfig) Bind(flags *pflag.FlagSet) {
	c.Metadata.Bind(flags)

	flags.IntVar(&c.TraceBufferSize, "traceBufferSize", 256,
		"channel depth of a Run's trace event buffer before RecordRow/RecordOutput calls block")
	flags.Float32Var(&c.ChaosProbability, "chaosProbability", 0,
		"probability in [0,1] that internal/chaos injects a fault into IO calls; zero disables it")
	flags.IntVar(&c.InterpolationDepthLimit, "interpolationDepthLimit", 16,
		"maximum {{NAME}} interpolation recursion depth before a cycle is assumed")
	flags.IntVar(&c.ExpressionCacheSize, "expressionCacheSize", 4096,
		"size for the (expression, schema fingerprint) compiled-expression cache; must be positive, and the cache itself does not enforce it")
}

// Preflight validates c, including the embedded Metadata config.
func (c *RunConfig) Preflight() error {
	if err := c.Metadata.Preflight(); err != nil {
		return errors.Wrap(err, "metadata config")
	}
	if c.TraceBufferSize <= 0 {
		return errors.New("traceBufferSize must be positive")
	}
	if c.ChaosProbability < 0 || c.ChaosProbability > 1 {
		return errors.New("chaosProbability must be within [0,1]")
	}
	if c.InterpolationDepthLimit <= 0 {
		return errors.New("interpolationDepthLimit must be positive")
	}
	if c.ExpressionCacheSize <= 0 {
		return errors.New("expressionCacheSize must be positive")
	}
	return nil
}
