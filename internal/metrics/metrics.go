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

// Package metrics holds the engine's Prometheus collectors. The run
// lifecycle records RunsStarted and RunsFailed; the Operation*
// collectors and RunDurations are registered but no package records
// them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets covers sub-millisecond row evaluation up to
// multi-minute full-dataset operations.
var LatencyBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 15, 60, 300}

// OperationLabels tags a metric with the operation's type; the
// operation's seq within its Run is not a label.
var OperationLabels = []string{"op_type"}

// RunLabels tags a metric with the Run's trigger type.
var RunLabels = []string{"trigger_type"}

var (
	OperationDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dobonomodo_operation_duration_seconds",
		Help:    "the length of time it took to execute one pipeline operation",
		Buckets: LatencyBuckets,
	}, OperationLabels)
	OperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dobonomodo_operation_errors_total",
		Help: "the number of operations that failed during execution",
	}, OperationLabels)
	OperationRowsOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dobonomodo_operation_rows_total",
		Help: "the number of rows an operation left in the working dataset",
	}, OperationLabels)

	RunsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dobonomodo_runs_started_total",
		Help: "the number of Runs that began executing",
	}, RunLabels)
	RunsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dobonomodo_runs_failed_total",
		Help: "the number of Runs that ended in a failed status",
	}, RunLabels)
	RunDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dobonomodo_run_duration_seconds",
		Help:    "the wall-clock duration of a Run from start to terminal status",
		Buckets: LatencyBuckets,
	}, RunLabels)
)
