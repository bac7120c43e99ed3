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

package replay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/replay"
	"github.com/dflow-run/dflow/internal/sandbox"
)

func newRun(t *testing.T, store eventlog.Store, runID string) {
	t.Helper()
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated,
		Meta: eventlog.EventMeta{WorkflowName: "test"},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

func appendStepCompleted(t *testing.T, c *codec.Codec, store eventlog.Store, runID, cid string, output any) {
	t.Helper()
	data, err := c.Encode(output)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), runID, eventlog.NewEvent{
		Type:          eventlog.EventStepCompleted,
		CorrelationID: cid,
		Data:          data,
		Meta:          eventlog.EventMeta{Output: data},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

func appendStepStarted(t *testing.T, store eventlog.Store, runID, cid string) {
	t.Helper()
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type:          eventlog.EventStepStarted,
		CorrelationID: cid,
		Meta:          eventlog.EventMeta{Attempt: 1},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

// linearWorkflow is scenario 1 from spec.md §8: add(a,b) then multiply(a,b),
// returning {sum, product, combined}.
func linearWorkflow(c *replay.Context, input any) (any, error) {
	args := input.(map[string]any)
	a, b := args["a"], args["b"]

	sum, err := c.Step("add", map[string]any{"a": a, "b": b})
	if err != nil {
		return nil, err
	}
	product, err := c.Step("multiply", map[string]any{"a": a, "b": b})
	if err != nil {
		return nil, err
	}

	sumF := sum.(float64)
	productF := product.(float64)
	return map[string]any{"sum": sumF, "product": productF, "combined": sumF + productF}, nil
}

func TestLinearWorkflowSuspendsOnFirstUnresolvedStep(t *testing.T) {
	store := memory.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)
	runID := "run_1"
	newRun(t, store, runID)

	outcome, err := engine.Replay(context.Background(), store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)
	require.True(t, outcome.Suspended)
	require.Len(t, outcome.Intents, 1)
	require.Equal(t, sandbox.IntentStep, outcome.Intents[0].Type)
	require.Equal(t, "add", outcome.Intents[0].Name)
}

func TestLinearWorkflowCompletesAcrossReplaysAsStepsResolve(t *testing.T) {
	store := memory.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)
	runID := "run_1"
	newRun(t, store, runID)
	ctx := context.Background()

	// First replay: suspends wanting "add".
	outcome, err := engine.Replay(ctx, store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)
	require.True(t, outcome.Suspended)
	addCID := outcome.Intents[0].CorrelationID
	appendStepStarted(t, store, runID, addCID)
	appendStepCompleted(t, c, store, runID, addCID, 9.0)

	// Second replay: "add" resolves in-line, suspends wanting "multiply".
	outcome, err = engine.Replay(ctx, store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)
	require.True(t, outcome.Suspended)
	require.Equal(t, "multiply", outcome.Intents[0].Name)
	multiplyCID := outcome.Intents[0].CorrelationID
	require.NotEqual(t, addCID, multiplyCID)
	appendStepStarted(t, store, runID, multiplyCID)
	appendStepCompleted(t, c, store, runID, multiplyCID, 14.0)

	// Third replay: both steps resolve in-line, orchestrator returns.
	outcome, err = engine.Replay(ctx, store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)
	require.False(t, outcome.Suspended)
	result := outcome.Result.(map[string]any)
	require.Equal(t, 9.0, result["sum"])
	require.Equal(t, 14.0, result["product"])
	require.Equal(t, 23.0, result["combined"])

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, eventlog.RunCompleted, run.Status)
}

// TestLinearWorkflowResolvesStepsAlreadyCompleteOnFirstReplay covers the
// single-pass case of the Step fix directly: both steps' full
// [step_started, step_completed] lifecycles are already in the log before
// Replay is ever called, so Step must scan each correlation id's whole
// event slice for the terminal event rather than suspending on the first
// step_started it sees.
func TestLinearWorkflowResolvesStepsAlreadyCompleteOnFirstReplay(t *testing.T) {
	store := memory.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)
	runID := "run_preresolved"
	newRun(t, store, runID)
	ctx := context.Background()

	addCID := sandbox.CorrelationID(runID, "step:add", 0)
	appendStepStarted(t, store, runID, addCID)
	appendStepCompleted(t, c, store, runID, addCID, 9.0)

	multiplyCID := sandbox.CorrelationID(runID, "step:multiply", 0)
	appendStepStarted(t, store, runID, multiplyCID)
	appendStepCompleted(t, c, store, runID, multiplyCID, 14.0)

	outcome, err := engine.Replay(ctx, store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)
	require.False(t, outcome.Suspended)
	result := outcome.Result.(map[string]any)
	require.Equal(t, 9.0, result["sum"])
	require.Equal(t, 14.0, result["product"])
}

// hookWorkflow is scenario 2 from spec.md §8: await a hook after init().
func hookWorkflow(c *replay.Context, input any) (any, error) {
	if _, err := c.Step("init", nil); err != nil {
		return nil, err
	}
	payload, err := c.Hook("resume")
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func TestSuspensionOnHookThenResume(t *testing.T) {
	store := memory.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)
	runID := "run_2"
	newRun(t, store, runID)
	ctx := context.Background()

	outcome, err := engine.Replay(ctx, store, runID, hookWorkflow, nil)
	require.NoError(t, err)
	require.True(t, outcome.Suspended)
	initCID := outcome.Intents[0].CorrelationID
	appendStepStarted(t, store, runID, initCID)
	appendStepCompleted(t, c, store, runID, initCID, "ok")

	outcome, err = engine.Replay(ctx, store, runID, hookWorkflow, nil)
	require.NoError(t, err)
	require.True(t, outcome.Suspended)
	require.Equal(t, sandbox.IntentHook, outcome.Intents[0].Type)
	hookCID := outcome.Intents[0].CorrelationID

	data, err := c.Encode(map[string]any{"x": 1.0})
	require.NoError(t, err)
	_, err = store.Append(ctx, runID, eventlog.NewEvent{
		Type:          eventlog.EventHookReceived,
		CorrelationID: hookCID,
		Data:          data,
	}, eventlog.AppendOptions{})
	require.NoError(t, err)

	outcome, err = engine.Replay(ctx, store, runID, hookWorkflow, nil)
	require.NoError(t, err)
	require.False(t, outcome.Suspended)
	require.Equal(t, map[string]any{"x": 1.0}, outcome.Result)
}

// TestReplayFromSamePrefixEmitsIdenticalIntents is testable property 5 from
// spec.md §8: two replays started from the same event prefix with the same
// input produce the same intent sequence.
func TestReplayFromSamePrefixEmitsIdenticalIntents(t *testing.T) {
	store := memory.New()
	c := codec.New()
	engine := replay.NewEngine(c, nil)
	runID := "run_3"
	newRun(t, store, runID)
	ctx := context.Background()

	first, err := engine.Replay(ctx, store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)
	second, err := engine.Replay(ctx, store, runID, linearWorkflow, map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)

	require.Equal(t, first.Intents, second.Intents)
}
