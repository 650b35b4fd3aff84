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

import "strings"

// maxInterpolationDepth bounds recursive selector expansion. A selector
// value that itself contains {{...}} tokens is expanded again, up to
// this many passes, after which further unexpanded tokens are left as
// an error rather than looping forever.
const maxInterpolationDepth = 16

// Interpolate substitutes every {{NAME}} token in src with the value of
// selectors[NAME], re-scanning the result for newly exposed tokens up
// to maxInterpolationDepth times. It reports CycleDetectedError if a
// selector's own expansion chain revisits a name still being expanded,
// and UnresolvedSelectorRefError if a referenced name is absent from
// selectors.
func Interpolate(src string, selectors map[string]string) (string, error) {
	return interpolate(src, selectors, nil, 0)
}

func interpolate(src string, selectors map[string]string, active []string, depth int) (string, error) {
	if !strings.Contains(src, "{{") {
		return src, nil
	}
	if depth >= maxInterpolationDepth {
		return "", &CycleDetectedError{Chain: active}
	}

	var out strings.Builder
	rest := src
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		remainder := rest[start+2:]
		end := strings.Index(remainder, "}}")
		if end < 0 {
			return "", &ParseError{Expr: src, Pos: len(src) - len(remainder), Msg: "unterminated {{ selector reference"}
		}
		name := strings.TrimSpace(remainder[:end])
		for _, a := range active {
			if a == name {
				return "", &CycleDetectedError{Chain: append(append([]string{}, active...), name)}
			}
		}
		val, ok := selectors[name]
		if !ok {
			return "", &UnresolvedSelectorRefError{Name: name}
		}
		expanded, err := interpolate(val, selectors, append(active, name), depth+1)
		if err != nil {
			return "", err
		}
		out.WriteString(expanded)
		rest = remainder[end+2:]
	}

	result := out.String()
	if strings.Contains(result, "{{") {
		return interpolate(result, selectors, active, depth+1)
	}
	return result, nil
}
