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

// Command dflowctl inspects and controls runs of a dflow deployment:
// listing and fetching run state, resuming suspended hooks, and inspecting
// queue depth. Grounded on the teacher's cmd/conductor/main.go wiring shape,
// trimmed to this module's much smaller command tree.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/dflow-run/dflow/internal/cli"
	"github.com/dflow-run/dflow/internal/cli/shared"
	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/commands/hook"
	queuecmd "github.com/dflow-run/dflow/internal/commands/queue"
	"github.com/dflow-run/dflow/internal/commands/run"
	"github.com/dflow-run/dflow/internal/config"
	"github.com/dflow-run/dflow/internal/crypto"
	"github.com/dflow-run/dflow/internal/eventlog"
	eventlogmemory "github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/eventlog/sqlite"
	"github.com/dflow-run/dflow/internal/hooks"
	"github.com/dflow-run/dflow/internal/queue"
	queuememory "github.com/dflow-run/dflow/internal/queue/memory"
	"github.com/dflow-run/dflow/internal/scheduler"
)

func main() {
	// --config is resolved ahead of cobra's own flag parsing, the way the
	// teacher pre-scans os.Args for --controller-child in cmd/conductor:
	// every dependency below is built once, before the command tree exists.
	configPath := preScanConfigFlag(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		shared.HandleExitError(shared.NewInvalidInputError("loading config", err))
		return
	}

	store, err := openStore(cfg)
	if err != nil {
		shared.HandleExitError(shared.NewInvalidInputError("opening event store", err))
		return
	}
	defer store.Close()

	q := queuememory.New()
	defer q.Close()

	keyBytes, err := cfg.DecodeKey()
	if err != nil {
		shared.HandleExitError(err)
		return
	}
	material, err := crypto.NewKeyMaterial(cfg.Deployment.ProjectID, keyBytes)
	if err != nil {
		shared.HandleExitError(shared.NewInvalidInputError("building key material", err))
		return
	}
	enc := crypto.New(material)
	hookRegistry := hooks.New(store, codec.New(), enc, queueDispatcher{q: q})

	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(run.NewCommand(store))
	rootCmd.AddCommand(hook.NewCommand(hookRegistry))
	rootCmd.AddCommand(queuecmd.NewCommand(q))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}

// preScanConfigFlag looks for --config (either "--config=path" or
// "--config path") in args, returning "" if absent. dflowctl needs the
// config path before it can build the stores cobra's own subcommands
// depend on, so this runs ahead of cobra.Command.Execute.
func preScanConfigFlag(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config" && i+1 < len(args):
			return args[i+1]
		case len(arg) > len("--config=") && arg[:len("--config=")] == "--config=":
			return arg[len("--config="):]
		}
	}
	return ""
}

// queueDispatcher implements hooks.Dispatcher by enqueueing a workflow
// message directly, the way scheduler.Scheduler.Dispatch does, without
// constructing a full Scheduler (dflowctl has no replay engine or step
// runner to drive).
type queueDispatcher struct {
	q queue.Queue
}

func (d queueDispatcher) Dispatch(ctx context.Context, runID, workflowName string) error {
	payload, err := json.Marshal(scheduler.WorkflowMessage{RunID: runID})
	if err != nil {
		return err
	}
	_, err = d.q.Enqueue(ctx, scheduler.WorkflowQueueName(workflowName), payload, queue.EnqueueOptions{})
	return err
}

func openStore(cfg *config.Config) (eventlog.Store, error) {
	switch cfg.Deployment.TargetWorld {
	case config.WorldSQLite:
		return sqlite.Open(context.Background(), sqlite.Config{Path: cfg.Storage.Path, WAL: cfg.Storage.WAL})
	default:
		return eventlogmemory.New(), nil
	}
}
