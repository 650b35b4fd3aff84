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
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// StrategyKind discriminates the three ResolutionStrategy variants.
type StrategyKind string

const (
	StrategyPath    StrategyKind = "path"
	StrategyTable   StrategyKind = "table"
	StrategyCatalog StrategyKind = "catalog"
)

// CatalogMethod is the HTTP verb used by a Catalog strategy.
type CatalogMethod string

const (
	CatalogGET  CatalogMethod = "GET"
	CatalogPOST CatalogMethod = "POST"
)

// ResolutionStrategy is a discriminated union describing how a matched
// rule renders a concrete physical location. Exactly one of the
// type-specific field groups is populated, selected by Kind.
type ResolutionStrategy struct {
	Kind StrategyKind `yaml:"type" json:"type"`

	// Path strategy fields.
	DataSourceID ident.DataSourceID `yaml:"datasource_id,omitempty" json:"datasource_id,omitempty"`
	Path         string             `yaml:"path,omitempty" json:"path,omitempty"`

	// Table strategy fields (DataSourceID is shared with Path).
	Table  string `yaml:"table,omitempty" json:"table,omitempty"`
	Schema string `yaml:"schema,omitempty" json:"schema,omitempty"`

	// Catalog strategy fields.
	Endpoint string            `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Method   CatalogMethod     `yaml:"method,omitempty" json:"method,omitempty"`
	Auth     string            `yaml:"auth,omitempty" json:"auth,omitempty"`
	Params   map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// DataLevelAny is the sentinel "any" data_level: a rule so marked skips
// period expansion entirely and resolves to a single location.
const DataLevelAny = "any"

// ResolutionRule is one entry of a Resolver's ordered rule list. A rule
// with an empty When always matches; by convention it is the last rule.
type ResolutionRule struct {
	Name      string             `yaml:"name" json:"name"`
	When      string             `yaml:"when,omitempty" json:"when,omitempty"`
	DataLevel string             `yaml:"data_level" json:"data_level"`
	Strategy  ResolutionStrategy `yaml:"strategy" json:"strategy"`
}

// ResolverStatus mirrors the generic active/disabled lifecycle.
type ResolverStatus string

const (
	ResolverActive   ResolverStatus = "active"
	ResolverDisabled ResolverStatus = "disabled"
)

// Resolver is a versioned, ordered list of ResolutionRules.
type Resolver struct {
	ID        ident.ResolverID `yaml:"id" json:"id"`
	Version   int              `yaml:"version" json:"version"`
	Status    ResolverStatus   `yaml:"status" json:"status"`
	IsDefault bool             `yaml:"is_default,omitempty" json:"is_default,omitempty"`
	Rules     []ResolutionRule `yaml:"rules" json:"rules"`
}
