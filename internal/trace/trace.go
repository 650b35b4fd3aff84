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

// Package trace streams the executor's row- and output-level trace
// events to a durable TraceWriter, decoupling the pace of the pipeline
// from the pace of whatever persists its audit trail.
package trace

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bocacorazon/dobonomodo/internal/executor"
	"github.com/bocacorazon/dobonomodo/internal/model/ident"
)

var eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dobonomodo_trace_events_total",
	Help: "the number of trace events handed to a TraceWriter, by change type",
}, []string{"change_type"})

// TraceWriter persists one Run's trace events durably. Defined here,
// at the consumer, the same direction as executor.Recorder: the
// concrete storage adapter (internal/iobound) implements this against
// the Engine's needs rather than the Engine importing a storage
// package.
type TraceWriter interface {
	WriteRow(ctx context.Context, run ident.RunID, event executor.RowEvent) error
	WriteOutput(ctx context.Context, run ident.RunID, event executor.OutputEvent) error
}

type message struct {
	row    *executor.RowEvent
	output *executor.OutputEvent
}

// Engine implements executor.Recorder by buffering events onto a
// bounded channel and draining them to a TraceWriter on a background
// goroutine, so a slow writer applies backpressure to the pipeline
// (the producer blocks once the channel fills) instead of the pipeline
// ever losing an event.
type Engine struct {
	run    ident.RunID
	writer TraceWriter
	ch     chan message
	drained Var[int]

	once sync.Once
	done chan struct{}
	err  error
	mu   sync.Mutex
}

// New starts an Engine draining into writer for one Run. Callers must
// call Close when the Run finishes, to flush and observe any write
// error encountered along the way.
func New(ctx context.Context, run ident.RunID, writer TraceWriter, bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	e := &Engine{
		run:    run,
		writer: writer,
		ch:     make(chan message, bufferSize),
		done:   make(chan struct{}),
	}
	go e.pump(ctx)
	return e
}

func (e *Engine) pump(ctx context.Context) {
	defer close(e.done)
	count := 0
	for msg := range e.ch {
		var err error
		switch {
		case msg.row != nil:
			err = e.writer.WriteRow(ctx, e.run, *msg.row)
			eventsEmitted.WithLabelValues(string(msg.row.ChangeType)).Inc()
		case msg.output != nil:
			err = e.writer.WriteOutput(ctx, e.run, *msg.output)
			eventsEmitted.WithLabelValues("output").Inc()
		}
		if err != nil {
			log.WithError(err).WithField("run_id", e.run.String()).Warn("trace: failed to persist event")
			e.mu.Lock()
			if e.err == nil {
				e.err = err
			}
			e.mu.Unlock()
		}
		count++
		e.drained.Set(count)
	}
}

// RecordRow implements executor.Recorder.
func (e *Engine) RecordRow(ev executor.RowEvent) {
	e.ch <- message{row: &ev}
}

// RecordOutput implements executor.Recorder.
func (e *Engine) RecordOutput(ev executor.OutputEvent) {
	e.ch <- message{output: &ev}
}

// Drained exposes the count of events written so far, and a channel
// that closes on the next write -- used by tests and diagnostics that
// need to wait for the pump to catch up without polling.
func (e *Engine) Drained() (int, <-chan struct{}) {
	return e.drained.Get()
}

// Close stops accepting new events, waits for the pump to drain the
// channel, and returns the first write error it encountered, if any.
func (e *Engine) Close() error {
	e.once.Do(func() { close(e.ch) })
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

var _ executor.Recorder = (*Engine)(nil)
