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
	"github.com/bocacorazon/dobonomodo/internal/model"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// ResolverSource records which precedence step selected the resolver
// used for a resolution.
type ResolverSource string

const (
	SourceProjectOverride  ResolverSource = "ProjectOverride"
	SourceDatasetReference ResolverSource = "DatasetReference"
	SourceSystemDefault    ResolverSource = "SystemDefault"
	SourcePinnedSnapshot   ResolverSource = "PinnedSnapshot"
)

// Outcome is the terminal state of one resolution attempt.
type Outcome string

const (
	OutcomeSuccess             Outcome = "Success"
	OutcomeNoMatchingRule      Outcome = "NoMatchingRule"
	OutcomePeriodExpansionFail Outcome = "PeriodExpansionFailed"
	OutcomeTemplateRenderFail  Outcome = "TemplateRenderError"
)

// RuleEvaluation records the outcome of testing one rule's "when"
// clause against the resolution context.
type RuleEvaluation struct {
	RuleName            string
	Matched             bool
	Reason              string
	EvaluatedExpression string
}

// Diagnostic is the structured record of how a resolution reached its
// outcome, regardless of whether it succeeded.
type Diagnostic struct {
	ResolverID      ident.ResolverID
	ResolverSource  ResolverSource
	EvaluatedRules  []RuleEvaluation
	Outcome         Outcome
	ExpandedPeriods []model.Period
}

// ResolvedLocation is the rendered output of a successful resolution:
// a concrete location plus the traceability fields that produced it.
type ResolvedLocation struct {
	DataSourceID     ident.DataSourceID
	Path             string
	Schema           string
	Table            string
	CatalogEndpoint  string
	CatalogMethod    model.CatalogMethod
	CatalogParams    map[string]string
	CatalogHeaders   map[string]string
	PeriodIdentifier ident.PeriodID
	ResolverID       ident.ResolverID
	RuleName         string
}
