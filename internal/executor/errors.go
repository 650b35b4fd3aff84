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

package executor

import (
	"fmt"

	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

// AppendSchemaMismatchError is returned when an "append" source row
// carries a column absent from the working dataset's schema.
type AppendSchemaMismatchError struct {
	Column ident.ColumnName
}

func (e *AppendSchemaMismatchError) Error() string {
	return fmt.Sprintf("executor: append source column %q is not present on the working dataset", e.Column)
}

// DestinationUnresolvedError is returned when an output operation's
// destination TableRef carries neither an inline Location nor a
// (datasource, table) binding.
type DestinationUnresolvedError struct {
	Table ident.LogicalTable
}

func (e *DestinationUnresolvedError) Error() string {
	return fmt.Sprintf("executor: destination table %q has no resolvable location", e.Table)
}

// MalformedOperationError is returned when an Operation's declared Type
// does not match the *Args field actually populated. Project
// activation validation is expected to catch this before a Run ever
// reaches the executor; this is the executor's own defense against a
// corrupted or hand-edited snapshot.
type MalformedOperationError struct {
	Seq  int
	Type string
}

func (e *MalformedOperationError) Error() string {
	return fmt.Sprintf("executor: operation seq %d declares type %q but its arguments are missing or mistyped", e.Seq, e.Type)
}

// UnknownOperationTypeError is returned when an Operation's Type is
// outside the closed five-variant set.
type UnknownOperationTypeError struct {
	Seq  int
	Type string
}

func (e *UnknownOperationTypeError) Error() string {
	return fmt.Sprintf("executor: operation seq %d has unknown type %q", e.Seq, e.Type)
}
