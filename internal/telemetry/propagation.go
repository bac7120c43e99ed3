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
	"context"

	"go.opentelemetry.io/otel/propagation"
)

// propagator is the W3C Trace Context + Baggage propagator every carrier
// round-trip uses, matching internal/tracing.W3CPropagator.
func propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// InjectCarrier extracts ctx's current span into a plain map[string]string,
// the shape scheduler.WorkflowMessage.TraceCarrier stores on the queue
// (spec.md §6). Dispatch calls this every time it enqueues a workflow
// message, so a worker that later receives it can continue the same trace.
func InjectCarrier(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	propagator().Inject(ctx, carrier)
	return carrier
}

// ExtractCarrier rehydrates a context carrying the trace described by
// carrier, or returns ctx unchanged if carrier is empty (e.g. telemetry was
// disabled when the message was enqueued).
func ExtractCarrier(ctx context.Context, carrier map[string]string) context.Context {
	if len(carrier) == 0 {
		return ctx
	}
	return propagator().Extract(ctx, propagation.MapCarrier(carrier))
}
