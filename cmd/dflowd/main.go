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

// Command dflowd is the worker daemon: it starts the scheduler's
// queue-consumer workers against a deployment's config and a manifest of
// registered workflows/steps. Grounded on the teacher's cmd/conductord/
// main.go: flag parsing, structured logging from the environment, then a
// signal-driven Start/Shutdown lifecycle.
//
// A manifest.Registry's workflows and steps are Go functions, so this
// binary cannot discover them on its own the way the teacher's daemon
// discovers workflow YAML files on disk — a real deployment imports this
// wiring into its own main package, registers its workflows/steps on the
// manifest.Registry before calling daemon.New, and passes their names via
// --workflow/--step (repeatable) so the scheduler knows which queues to
// consume.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dflow-run/dflow/internal/config"
	"github.com/dflow-run/dflow/internal/daemon"
	dflowlog "github.com/dflow-run/dflow/internal/log"
	"github.com/dflow-run/dflow/internal/manifest"
)

// Version information (injected via ldflags at build time).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type stringList []string

func (s *stringList) String() string     { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file")
		workflows   stringList
		steps       stringList
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Var(&workflows, "workflow", "Workflow name to consume (repeatable)")
	flag.Var(&steps, "step", "Step name to consume (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dflowd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	logger := dflowlog.New(dflowlog.FromEnv())
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", dflowlog.Error(err))
		os.Exit(1)
	}

	reg := manifest.New()

	d, err := daemon.New(cfg, reg, workflows, steps, daemon.Options{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err != nil {
		logger.Error("failed to create daemon", dflowlog.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	select {
	case <-ctx.Done():
		fmt.Println("\nshutting down...")
		if err := d.Shutdown(context.Background()); err != nil {
			logger.Error("error during shutdown", dflowlog.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("daemon error", dflowlog.Error(err))
			os.Exit(1)
		}
	}
}
