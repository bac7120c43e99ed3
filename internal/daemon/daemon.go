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

// Package daemon wires a dflow deployment's runtime dependencies
// (storage, queue, telemetry, scheduler) into a single process with a
// Start/Shutdown lifecycle, grounded on the teacher's internal/daemon
// package: a struct holding every injected dependency (daemon.go),
// trimmed of everything specific
// to the teacher's domain (LLM providers, MCP, the public HTTP API,
// postgres/auth/leader-election) that this module has no equivalent of.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	promclient "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/config"
	"github.com/dflow-run/dflow/internal/crypto"
	"github.com/dflow-run/dflow/internal/eventlog"
	eventlogmemory "github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/eventlog/sqlite"
	"github.com/dflow-run/dflow/internal/hooks"
	dflowlog "github.com/dflow-run/dflow/internal/log"
	"github.com/dflow-run/dflow/internal/manifest"
	"github.com/dflow-run/dflow/internal/queue"
	queuememory "github.com/dflow-run/dflow/internal/queue/memory"
	"github.com/dflow-run/dflow/internal/replay"
	"github.com/dflow-run/dflow/internal/scheduler"
	"github.com/dflow-run/dflow/internal/steps"
	"github.com/dflow-run/dflow/internal/telemetry"
)

// Options carries build-time version information (injected via ldflags),
// mirroring the teacher's daemon.Options.
type Options struct {
	Version   string
	Commit    string
	BuildDate string
}

// Daemon owns the process's storage, queue, and telemetry resources and
// drives the scheduler's queue-consumer workers against a caller-supplied
// workflow/step manifest.
type Daemon struct {
	cfg      *config.Config
	opts     Options
	logger   *slog.Logger
	store    eventlog.Store
	q        queue.Queue
	tel      *telemetry.Provider
	sched    *scheduler.Scheduler
	manifest *manifest.Registry

	workflowNames []string
	stepNames     []string
}

// New builds a Daemon from cfg. reg must already have every workflow and
// step the deployment runs registered (spec.md §5: "process-wide,
// initialised once from the manifest before the scheduler starts accepting
// work") — registration is the SDK caller's responsibility, not the
// daemon's, since workflow/step functions are Go code the daemon package
// cannot discover on its own.
func New(cfg *config.Config, reg *manifest.Registry, workflowNames, stepNames []string, opts Options) (*Daemon, error) {
	logger := dflowlog.New(dflowlog.FromEnv()).With(slog.String("component", "daemon"))

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}

	q := queuememory.New()

	tel, err := telemetry.NewProvider(telemetry.Config{
		Enabled:        true,
		ServiceName:    "dflowd",
		ServiceVersion: opts.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("building telemetry provider: %w", err)
	}

	keyBytes, err := cfg.DecodeKey()
	if err != nil {
		return nil, err
	}
	material, err := crypto.NewKeyMaterial(cfg.Deployment.ProjectID, keyBytes)
	if err != nil {
		return nil, fmt.Errorf("building key material: %w", err)
	}
	enc := crypto.New(material)
	c := codec.New()

	engine := replay.NewEngine(c, enc)
	runner := steps.New(c, enc, reg.StepHandlers())

	// hooks.Registry needs a Dispatcher at construction, and the Scheduler
	// (the only Dispatcher this module has) needs the Registry at its own
	// construction — schedRef breaks the cycle by forwarding to whichever
	// *scheduler.Scheduler is assigned to it once both exist.
	schedRef := &schedulerDispatcher{}
	hookRegistry := hooks.New(store, c, enc, schedRef)

	sched := scheduler.New(q, store, engine, runner, hookRegistry, reg, scheduler.Config{
		WorkerCount: cfg.Queue.WorkerCount,
		Visibility:  cfg.Queue.Visibility,
		Lifetime: queue.LifetimeConfig{
			MaxLifetime: cfg.Queue.MessageLifetime,
			SafeBuffer:  cfg.Queue.LifetimeBuffer,
		},
		Metrics: telemetry.NewQueueMetrics(promclient.DefaultRegisterer),
	}, logger)
	schedRef.sched = sched

	return &Daemon{
		cfg:           cfg,
		opts:          opts,
		logger:        logger,
		store:         store,
		q:             q,
		tel:           tel,
		sched:         sched,
		manifest:      reg,
		workflowNames: workflowNames,
		stepNames:     stepNames,
	}, nil
}

// Start runs the scheduler's queue-consumer workers until ctx is cancelled
// or a worker returns a non-nil error.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Info("starting scheduler",
		slog.Any("workflows", d.workflowNames),
		slog.Any("steps", d.stepNames),
		slog.Int("worker_count", d.cfg.Queue.WorkerCount))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.sched.Run(ctx, d.workflowNames, d.stepNames) })
	return g.Wait()
}

// Shutdown releases the daemon's resources. It is safe to call even if
// Start returned an error.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.logger.Info("shutting down")
	if err := d.tel.Shutdown(ctx); err != nil {
		d.logger.Error("telemetry shutdown failed", dflowlog.Error(err))
	}
	if err := d.q.Close(); err != nil {
		d.logger.Error("queue close failed", dflowlog.Error(err))
	}
	return d.store.Close()
}

func openStore(cfg *config.Config) (eventlog.Store, error) {
	switch cfg.Deployment.TargetWorld {
	case config.WorldSQLite:
		return sqlite.Open(context.Background(), sqlite.Config{Path: cfg.Storage.Path, WAL: cfg.Storage.WAL})
	default:
		return eventlogmemory.New(), nil
	}
}

// schedulerDispatcher implements hooks.Dispatcher by forwarding to sched,
// assigned after construction to break the New/New cycle between
// hooks.Registry and scheduler.Scheduler (each needs the other to exist
// first).
type schedulerDispatcher struct {
	sched *scheduler.Scheduler
}

func (d *schedulerDispatcher) Dispatch(ctx context.Context, runID, workflowName string) error {
	return d.sched.Dispatch(ctx, runID, workflowName)
}
