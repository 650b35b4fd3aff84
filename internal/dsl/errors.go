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

// Package dsl implements the expression grammar: a recursive-descent
// parser producing a typed AST, a type-checker enforcing the type
// rules, and a compiler lowering the AST to the executor's lazy
// column-algebra closures.
package dsl

import "fmt"

// ParseError reports a lexical or grammatical failure at a source
// position within an expression's text.
type ParseError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d in %q: %s", e.Pos, e.Expr, e.Msg)
}

// UnresolvedColumnRefError is returned when an expression references a
// column absent from the working schema (and, inside joins, absent
// from every known alias schema).
type UnresolvedColumnRefError struct {
	Qualifier string
	Column    string
}

func (e *UnresolvedColumnRefError) Error() string {
	if e.Qualifier == "" {
		return fmt.Sprintf("unresolved column reference %q", e.Column)
	}
	return fmt.Sprintf("unresolved column reference %q.%q", e.Qualifier, e.Column)
}

// TypeMismatchError is returned when an operator or function is
// applied to operands whose types do not satisfy the grammar's type
// rules.
type TypeMismatchError struct {
	Context string
	Detail  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch in %s: %s", e.Context, e.Detail)
}

// UnresolvedSelectorRefError is returned when a {{NAME}} interpolation
// names a selector absent from Project.Selectors.
type UnresolvedSelectorRefError struct {
	Name string
}

func (e *UnresolvedSelectorRefError) Error() string {
	return fmt.Sprintf("unresolved named selector {{%s}}", e.Name)
}

// InvalidAggregateContextError is returned when an aggregate function
// appears outside an aggregate/append aggregation expression, or when
// a non-aggregate expression is supplied where a single aggregate call
// is required.
type InvalidAggregateContextError struct {
	Detail string
}

func (e *InvalidAggregateContextError) Error() string {
	return fmt.Sprintf("invalid aggregate context: %s", e.Detail)
}

// CycleDetectedError is returned when named-selector interpolation
// would recurse indefinitely.
type CycleDetectedError struct {
	Chain []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cyclic selector interpolation: %v", e.Chain)
}
