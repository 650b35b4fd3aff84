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

// Package resolver turns a (dataset, table, period) request into a
// concrete, templated physical location, following the chain of
// resolver selection, rule evaluation, period expansion, and template
// rendering.
package resolver

import "fmt"

// NotFoundError is returned when no resolver can be selected at any
// precedence step: neither a project override, a dataset reference,
// nor a system default with is_default=true exists.
type NotFoundError struct {
	DatasetID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolver: no resolver found for dataset %s", e.DatasetID)
}

// NoMatchingRuleError is returned when every rule's "when" clause
// evaluates to false (or errors) against the resolution context.
type NoMatchingRuleError struct {
	ResolverID string
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("resolver: no matching rule in resolver %s", e.ResolverID)
}

// PeriodExpansionError is returned when no path exists in the
// Calendar hierarchy from the requested Period's level down to the
// matched rule's data_level.
type PeriodExpansionError struct {
	FromLevel string
	ToLevel   string
}

func (e *PeriodExpansionError) Error() string {
	return fmt.Sprintf("resolver: no path from level %q to data_level %q", e.FromLevel, e.ToLevel)
}

// TemplateRenderError is returned when a strategy template references
// a token outside the closed set the engine understands.
type TemplateRenderError struct {
	Token string
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("resolver: unknown template token %q", e.Token)
}

// ConditionError wraps a failure evaluating a rule's "when" clause
// (bad syntax, unknown identifier, incompatible literal comparison).
type ConditionError struct {
	RuleName string
	Cause    error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("resolver: rule %q: %v", e.RuleName, e.Cause)
}

func (e *ConditionError) Unwrap() error { return e.Cause }
