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

package trace

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

type recordingWriter struct {
	mu      sync.Mutex
	rows    []executor.RowEvent
	outputs []executor.OutputEvent
}

func (w *recordingWriter) WriteRow(_ context.Context, _ ident.RunID, event executor.RowEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, event)
	return nil
}

func (w *recordingWriter) WriteOutput(_ context.Context, _ ident.RunID, event executor.OutputEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outputs = append(w.outputs, event)
	return nil
}

func TestEngineDrainsToWriter(t *testing.T) {
	writer := &recordingWriter{}
	e := New(context.Background(), ident.NewRunID(), writer, 4)

	for i := 0; i < 3; i++ {
		e.RecordRow(executor.RowEvent{OperationOrder: i, ChangeType: executor.ChangeUpdated})
	}
	e.RecordOutput(executor.OutputEvent{OperationOrder: 4, RowCount: 10})

	require.NoError(t, e.Close())

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Len(t, writer.rows, 3)
	assert.Len(t, writer.outputs, 1)
}

func TestEngineReportsFirstWriteError(t *testing.T) {
	writer := &failingWriter{failAfter: 1}
	e := New(context.Background(), ident.NewRunID(), writer, 4)

	e.RecordRow(executor.RowEvent{OperationOrder: 1, ChangeType: executor.ChangeCreated})
	e.RecordRow(executor.RowEvent{OperationOrder: 2, ChangeType: executor.ChangeCreated})

	err := e.Close()
	require.Error(t, err)
}

type failingWriter struct {
	mu        sync.Mutex
	calls     int
	failAfter int
}

func (w *failingWriter) WriteRow(context.Context, ident.RunID, executor.RowEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls > w.failAfter {
		return assert.AnError
	}
	return nil
}

func (w *failingWriter) WriteOutput(context.Context, ident.RunID, executor.OutputEvent) error {
	return nil
}
