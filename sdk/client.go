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

package sdk

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/crypto"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/hooks"
	"github.com/dflow-run/dflow/internal/replay"
)

// Dispatcher re-enqueues a run's orchestrator for its first (or next)
// replay. scheduler.Scheduler and dflowctl's CLI wiring both implement
// this — Client doesn't need to know which.
type Dispatcher = hooks.Dispatcher

// Client starts and cancels runs from outside a workflow: the entry point
// application code (an HTTP handler, a CLI command, a cron trigger) uses
// to kick off durable execution, as opposed to the Context capabilities a
// workflow uses once it's already running.
type Client struct {
	store      eventlog.Store
	engine     *replay.Engine
	dispatcher Dispatcher
}

// NewClient builds a Client against store, using c/enc for the same
// codec+encryption pipeline the replay engine seals step and hook
// payloads with, so a run's input is readable by exactly the run that
// created it.
func NewClient(store eventlog.Store, c *codec.Codec, enc *crypto.Encryptor, dispatcher Dispatcher) *Client {
	return &Client{store: store, engine: replay.NewEngine(c, enc), dispatcher: dispatcher}
}

// StartRun appends run_created for a freshly generated run id and
// dispatches the workflow's first replay attempt, returning the run id the
// caller can poll or cancel.
func (cl *Client) StartRun(ctx context.Context, workflowName string, input any) (runID string, err error) {
	runID = uuid.NewString()

	data, err := cl.engine.EncodeValue(runID, input)
	if err != nil {
		return "", fmt.Errorf("encoding run input: %w", err)
	}

	if _, err := cl.store.Append(ctx, runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated,
		Meta: eventlog.EventMeta{WorkflowName: workflowName, Input: data},
	}, eventlog.AppendOptions{}); err != nil {
		return "", fmt.Errorf("appending run_created: %w", err)
	}

	if err := cl.dispatcher.Dispatch(ctx, runID, workflowName); err != nil {
		return "", fmt.Errorf("dispatching first replay: %w", err)
	}
	return runID, nil
}

// CancelRun appends run_cancelled for runID. The next replay attempt
// observes it at the top of the log and terminates the orchestrator before
// running further user code (spec.md §4.7, "Cancellation").
func (cl *Client) CancelRun(ctx context.Context, runID string) error {
	_, err := cl.store.Append(ctx, runID, eventlog.NewEvent{
		Type: eventlog.EventRunCancelled,
	}, eventlog.AppendOptions{})
	return err
}

// GetRun returns runID's current materialized state.
func (cl *Client) GetRun(ctx context.Context, runID string) (*eventlog.Run, error) {
	return cl.store.GetRun(ctx, runID)
}
