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
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeProject decodes one Project document strictly: a field not
// named by a `yaml:"..."` tag anywhere in the type graph fails the
// decode instead of being silently dropped, the same posture a
// hand-authored pipeline definition needs before it's ever handed to
// the activation package.
func DecodeProject(data []byte) (*Project, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Project
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}

// discriminant is the shared shape every Operation/ResolutionStrategy
// variant's wire form carries: a type tag, read in a first pass before
// the full variant is known.
type discriminant struct {
	Type string `yaml:"type"`
}

// strictNodeDecode re-renders node and decodes it with unknown-field
// rejection enabled. yaml.Node itself has no KnownFields option, so a
// node-scoped strict decode goes through a Marshal/Decoder round trip.
func strictNodeDecode(node *yaml.Node, out any) error {
	b, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// operationAlias has Operation's exact field layout; decoding into it
// rather than Operation itself avoids recursing back into
// Operation.UnmarshalYAML.
type operationAlias Operation

// UnmarshalYAML decodes one Operation in two passes: first its type
// discriminant, then the full document, rejecting an argument group
// that doesn't belong to the declared type -- an "update" operation
// with a stray "aggregate:" block fails here rather than being
// silently ignored by the executor's own type switch.
func (op *Operation) UnmarshalYAML(node *yaml.Node) error {
	var disc discriminant
	if err := node.Decode(&disc); err != nil {
		return fmt.Errorf("operation: %w", err)
	}

	var raw operationAlias
	if err := strictNodeDecode(node, &raw); err != nil {
		return fmt.Errorf("operation type %q: %w", disc.Type, err)
	}

	groups := map[OperationType]bool{
		OpUpdate:    raw.Update != nil,
		OpAggregate: raw.Aggregate != nil,
		OpAppend:    raw.Append != nil,
		OpDelete:    raw.Delete != nil,
		OpOutput:    raw.Output != nil,
	}
	for t, set := range groups {
		if set && t != raw.Type {
			return fmt.Errorf("operation type %q must not set %q arguments", raw.Type, t)
		}
	}

	*op = Operation(raw)
	return nil
}

// resolutionStrategyAlias has ResolutionStrategy's exact field layout.
type resolutionStrategyAlias ResolutionStrategy

// UnmarshalYAML decodes one ResolutionStrategy in two passes: the
// shared "type" discriminant first, then the full document, rejecting
// fields outside the variant Kind selects (a "path" strategy carrying
// "endpoint:" is a document error, not a silently-ignored field).
func (s *ResolutionStrategy) UnmarshalYAML(node *yaml.Node) error {
	var disc discriminant
	if err := node.Decode(&disc); err != nil {
		return fmt.Errorf("resolution strategy: %w", err)
	}

	var raw resolutionStrategyAlias
	if err := strictNodeDecode(node, &raw); err != nil {
		return fmt.Errorf("resolution strategy type %q: %w", disc.Type, err)
	}

	catalogSet := raw.Endpoint != "" || raw.Method != "" || raw.Auth != "" || len(raw.Params) > 0 || len(raw.Headers) > 0
	switch raw.Kind {
	case StrategyPath:
		if raw.Table != "" || raw.Schema != "" || catalogSet {
			return fmt.Errorf("resolution strategy type %q must not set table/schema/catalog fields", raw.Kind)
		}
	case StrategyTable:
		if raw.Path != "" || catalogSet {
			return fmt.Errorf("resolution strategy type %q must not set path/catalog fields", raw.Kind)
		}
	case StrategyCatalog:
		if raw.Path != "" || raw.Table != "" || raw.Schema != "" {
			return fmt.Errorf("resolution strategy type %q must not set path/table fields", raw.Kind)
		}
	default:
		return fmt.Errorf("resolution strategy: unknown type %q", raw.Kind)
	}

	*s = ResolutionStrategy(raw)
	return nil
}
