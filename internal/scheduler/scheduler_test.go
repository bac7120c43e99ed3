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

package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/hooks"
	"github.com/dflow-run/dflow/internal/manifest"
	queuemem "github.com/dflow-run/dflow/internal/queue/memory"
	"github.com/dflow-run/dflow/internal/replay"
	"github.com/dflow-run/dflow/internal/scheduler"
	"github.com/dflow-run/dflow/internal/steps"
)

func waitForStatus(t *testing.T, store eventlog.Store, runID string, want eventlog.RunStatus, timeout time.Duration) *eventlog.Run {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		run, err := store.GetRun(context.Background(), runID)
		require.NoError(t, err)
		if run.Status == want {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach status %s in time", runID, want)
	return nil
}

func createRun(t *testing.T, store eventlog.Store, c *codec.Codec, runID, workflowName string, input any) {
	t.Helper()
	data, err := c.Encode(input)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated,
		Meta: eventlog.EventMeta{WorkflowName: workflowName, Input: data},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

func TestWorkflowCompletesThroughStepDispatch(t *testing.T) {
	store := memory.New()
	q := queuemem.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)

	reg := manifest.New()
	reg.Register("adder", func(ctx *replay.Context, input any) (any, error) {
		args := input.(map[string]any)
		result, err := ctx.Step("add", args)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	reg.RegisterStep("add", func(ctx context.Context, args any) (any, error) {
		m := args.(map[string]any)
		return m["a"].(float64) + m["b"].(float64), nil
	})

	runner := steps.New(c, nil, reg.StepHandlers())
	hookReg := hooks.New(store, c, nil, nil)

	sched := scheduler.New(q, store, engine, runner, hookReg, reg, scheduler.Config{WorkerCount: 1}, nil)

	runID := "run_1"
	createRun(t, store, c, runID, "adder", map[string]any{"a": 2.0, "b": 3.0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx, []string{"adder"}, []string{"add"}) }()

	require.NoError(t, sched.Dispatch(context.Background(), runID, "adder"))

	run := waitForStatus(t, store, runID, eventlog.RunCompleted, 2*time.Second)
	decoded, err := c.Decode(run.Output)
	require.NoError(t, err)
	require.Equal(t, 5.0, decoded)

	cancel()
	<-done
}

func TestHookIntentCreatesHookAndResumeCompletesRun(t *testing.T) {
	store := memory.New()
	q := queuemem.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)

	reg := manifest.New()
	reg.Register("approval", func(ctx *replay.Context, input any) (any, error) {
		result, err := ctx.Hook("approve")
		if err != nil {
			return nil, err
		}
		return result, nil
	})

	runner := steps.New(c, nil, reg.StepHandlers())

	var sched *scheduler.Scheduler
	hookReg := hooks.New(store, c, nil, dispatcherFunc(func(ctx context.Context, runID, workflowName string) error {
		return sched.Dispatch(ctx, runID, workflowName)
	}))
	sched = scheduler.New(q, store, engine, runner, hookReg, reg, scheduler.Config{WorkerCount: 1}, nil)

	runID := "run_2"
	createRun(t, store, c, runID, "approval", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx, []string{"approval"}, nil) }()

	require.NoError(t, sched.Dispatch(context.Background(), runID, "approval"))

	var token string
	deadline := time.Now().Add(2 * time.Second)
	for token == "" && time.Now().Before(deadline) {
		events, err := store.ListEvents(context.Background(), runID, eventlog.Page{})
		require.NoError(t, err)
		for _, ev := range events {
			if ev.Type == eventlog.EventHookCreated {
				h, err := store.GetHook(context.Background(), runID, ev.CorrelationID)
				require.NoError(t, err)
				token = h.Token
				break
			}
		}
		if token == "" {
			time.Sleep(5 * time.Millisecond)
		}
	}
	require.NotEmpty(t, token)

	require.NoError(t, hookReg.ResumeHook(context.Background(), token, "approved"))

	run := waitForStatus(t, store, runID, eventlog.RunCompleted, 2*time.Second)
	decoded, err := c.Decode(run.Output)
	require.NoError(t, err)
	require.Equal(t, "approved", decoded)

	cancel()
	<-done
}

type dispatcherFunc func(ctx context.Context, runID, workflowName string) error

func (f dispatcherFunc) Dispatch(ctx context.Context, runID, workflowName string) error {
	return f(ctx, runID, workflowName)
}
