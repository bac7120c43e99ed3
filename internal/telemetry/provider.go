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

// Package telemetry wires the scheduler and queue to OpenTelemetry tracing
// and Prometheus metrics (spec.md §6, §9), adapted from
// pkg/observability/provider.go and internal/tracing's OTel wiring.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls whether and how a Provider is built.
type Config struct {
	// Enabled controls whether a real OTel SDK is installed. When false,
	// NewProvider returns a Provider backed by OTel's no-op implementations,
	// so instrumented code never has to branch on whether telemetry is on.
	Enabled bool
	// ServiceName identifies this process in exported traces.
	ServiceName string
	// ServiceVersion is the running build's version string.
	ServiceVersion string
	// Registerer is where the Prometheus exporter (and NewQueueMetrics)
	// register their collectors. Defaults to promclient.DefaultRegisterer;
	// tests pass a fresh promclient.NewRegistry() to avoid cross-test
	// collisions on the process-wide default registry.
	Registerer promclient.Registerer
}

// Provider owns the process-wide tracer and meter providers and their
// Prometheus metrics endpoint.
type Provider struct {
	tp  *sdktrace.TracerProvider
	mp  *metric.MeterProvider
	cfg Config
}

// NewProvider builds a Provider. When cfg.Enabled is false it still returns
// a usable Provider, just one whose Tracer delegates to OTel's global tracer
// provider (a no-op unless an enabled Provider has installed one), so callers
// never need a separate disabled code path.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{cfg: cfg}, nil
	}
	if cfg.Registerer == nil {
		cfg.Registerer = promclient.DefaultRegisterer
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	promExporter, err := promexporter.New(promexporter.WithRegisterer(cfg.Registerer))
	if err != nil {
		return nil, fmt.Errorf("building prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(promExporter),
	)
	otel.SetMeterProvider(mp)

	return &Provider{tp: tp, mp: mp, cfg: cfg}, nil
}

// Tracer returns a tracer for the given instrumentation scope, e.g.
// "dflow.scheduler" or "dflow.replay".
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tp == nil {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// MetricsHandler exposes the Prometheus exporter's scrape endpoint. The
// OTel Prometheus exporter and github.com/prometheus/client_golang's direct
// gauges (queue_metrics.go) share the default registry when
// Config.Registerer is left unset, so one handler serves both; collectors
// registered on a custom Registerer are not served by this handler.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes and releases the tracer/meter providers. Safe to call on
// a disabled Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.mp != nil {
		return p.mp.Shutdown(ctx)
	}
	return nil
}
