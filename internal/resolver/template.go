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
	"fmt"
	"strconv"
	"strings"

	"github.com/bocacorazon/dobonomodo/internal/model"
)

// renderTemplate substitutes the closed token set against one resolved
// Period and the request's table name. Unknown {tokens} are rejected
// rather than passed through, so a typo in a resolver definition fails
// loudly at resolution time instead of producing a silently wrong
// path.
func renderTemplate(tpl string, period model.Period, tableName string) (string, error) {
	var out strings.Builder
	rest := tpl
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:start])
		remainder := rest[start+1:]
		end := strings.IndexByte(remainder, '}')
		if end < 0 {
			return "", fmt.Errorf("resolver: unterminated token in template %q", tpl)
		}
		token := remainder[:end]
		value, err := tokenValue(token, period, tableName)
		if err != nil {
			return "", err
		}
		out.WriteString(value)
		rest = remainder[end+1:]
	}
}

func tokenValue(token string, period model.Period, tableName string) (string, error) {
	switch token {
	case "year":
		return strconv.Itoa(period.Year), nil
	case "identifier":
		return string(period.ID), nil
	case "sequence":
		return fmt.Sprintf("%02d", period.Sequence), nil
	case "table_name":
		return tableName, nil
	case "MM":
		if period.Level != "month" {
			return "", &TemplateRenderError{Token: token}
		}
		return fmt.Sprintf("%02d", period.Sequence), nil
	case "QQ":
		if period.Level != "quarter" {
			return "", &TemplateRenderError{Token: token}
		}
		return fmt.Sprintf("%02d", period.Sequence), nil
	}
	return "", &TemplateRenderError{Token: token}
}
