// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes prometheus collectors for pipeline execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "postpipe",
		Subsystem: "pipeline",
		Name:      "step_duration_seconds",
		Help:      "Duration of pipeline step executions.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"step", "status"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postpipe",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Completed pipeline runs by terminal publish status.",
	}, []string{"status"})
)

// ObserveStep records one step execution; wired into the executor as its
// Observer.
func ObserveStep(step, status string, d time.Duration) {
	stepDuration.WithLabelValues(step, status).Observe(d.Seconds())
}

// ObserveRun records a finished run's terminal publish status.
func ObserveRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}
