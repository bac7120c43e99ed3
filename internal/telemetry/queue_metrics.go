// Copyright 2026 The dflow Authors
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

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics are the direct github.com/prometheus/client_golang gauges
// and counters the scheduler records against, separate from the OTel
// metric pipeline above: queue depth and message age are point-in-time
// backend facts, not span- or instrument-scoped measurements, so they are
// recorded the same way the teacher's controller/backend code uses
// client_golang directly alongside OTel for this kind of gauge.
type QueueMetrics struct {
	depth        *prometheus.GaugeVec
	messageAge   *prometheus.HistogramVec
	dispatched   *prometheus.CounterVec
	handlerError *prometheus.CounterVec
}

// NewQueueMetrics registers the scheduler's gauges/counters against reg. Pass
// prometheus.DefaultRegisterer to share the registry the OTel Prometheus
// exporter and /metrics handler already use.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	m := &QueueMetrics{
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dflow",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Approximate number of undelivered messages per queue.",
		}, []string{"queue"}),
		messageAge: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dflow",
			Subsystem: "queue",
			Name:      "message_age_seconds",
			Help:      "Age of a message at the time a worker received it.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dflow",
			Subsystem: "scheduler",
			Name:      "intents_dispatched_total",
			Help:      "Intents dispatched by the scheduler, by intent type.",
		}, []string{"intent_type"}),
		handlerError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dflow",
			Subsystem: "scheduler",
			Name:      "handler_errors_total",
			Help:      "Errors returned while handling a workflow or step message.",
		}, []string{"queue"}),
	}
	reg.MustRegister(m.depth, m.messageAge, m.dispatched, m.handlerError)
	return m
}

// SetDepth records queue's current approximate backlog.
func (m *QueueMetrics) SetDepth(queue string, depth int) {
	m.depth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveMessageAge records how old a message was when a worker received it.
func (m *QueueMetrics) ObserveMessageAge(queue string, age time.Duration) {
	m.messageAge.WithLabelValues(queue).Observe(age.Seconds())
}

// IncDispatched records one intent dispatched of the given type
// ("step", "hook", or "wait").
func (m *QueueMetrics) IncDispatched(intentType string) {
	m.dispatched.WithLabelValues(intentType).Inc()
}

// IncHandlerError records one failed workflow/step message handling pass.
func (m *QueueMetrics) IncHandlerError(queue string) {
	m.handlerError.WithLabelValues(queue).Inc()
}
