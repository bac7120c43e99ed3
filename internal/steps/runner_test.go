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

package steps_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/steps"
)

func newRun(t *testing.T, store eventlog.Store, runID string) {
	t.Helper()
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated,
		Meta: eventlog.EventMeta{WorkflowName: "test"},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

type transientError struct{ msg string }

func (e *transientError) Error() string    { return e.msg }
func (e *transientError) IsTransient() bool { return true }

func TestInvokeCommitsStepCompleted(t *testing.T) {
	store := memory.New()
	runID := "run_1"
	newRun(t, store, runID)
	c := codec.New()

	args, err := c.Encode(map[string]any{"a": 2.0, "b": 7.0})
	require.NoError(t, err)

	handlers := map[string]steps.Handler{
		"add": func(ctx context.Context, args any) (any, error) {
			m := args.(map[string]any)
			return m["a"].(float64) + m["b"].(float64), nil
		},
	}
	runner := steps.New(c, nil, handlers)

	outcome, err := runner.Invoke(context.Background(), store, steps.Invocation{
		RunID: runID, CorrelationID: "cid_1", StepName: "add", Args: args, Attempt: 1,
	})
	require.NoError(t, err)
	require.True(t, outcome.Terminal)

	step, err := store.GetStep(context.Background(), runID, "cid_1")
	require.NoError(t, err)
	require.Equal(t, eventlog.StepCompleted, step.Status)

	decoded, err := c.Decode(step.Output)
	require.NoError(t, err)
	require.Equal(t, 9.0, decoded)
}

func TestInvokeIsIdempotentOnDuplicateDelivery(t *testing.T) {
	store := memory.New()
	runID := "run_1"
	newRun(t, store, runID)
	c := codec.New()

	args, err := c.Encode(nil)
	require.NoError(t, err)

	var calls int32
	handlers := map[string]steps.Handler{
		"noop": func(ctx context.Context, args any) (any, error) {
			atomic.AddInt32(&calls, 1)
			return "ok", nil
		},
	}
	runner := steps.New(c, nil, handlers)
	inv := steps.Invocation{RunID: runID, CorrelationID: "cid_1", StepName: "noop", Args: args, Attempt: 1}

	_, err = runner.Invoke(context.Background(), store, inv)
	require.NoError(t, err)
	outcome, err := runner.Invoke(context.Background(), store, inv)
	require.NoError(t, err)
	require.True(t, outcome.Terminal)
	require.Equal(t, int32(1), calls)
}

func TestInvokeRetriesTransientFailure(t *testing.T) {
	store := memory.New()
	runID := "run_1"
	newRun(t, store, runID)
	c := codec.New()

	args, err := c.Encode(nil)
	require.NoError(t, err)

	handlers := map[string]steps.Handler{
		"flaky": func(ctx context.Context, args any) (any, error) {
			return nil, &transientError{msg: "upstream unavailable"}
		},
	}
	runner := steps.New(c, nil, handlers)

	outcome, err := runner.Invoke(context.Background(), store, steps.Invocation{
		RunID: runID, CorrelationID: "cid_1", StepName: "flaky", Args: args, Attempt: 1,
	})
	require.NoError(t, err)
	require.False(t, outcome.Terminal)
	require.Greater(t, outcome.RetryAfter.Nanoseconds(), int64(0))

	step, err := store.GetStep(context.Background(), runID, "cid_1")
	require.NoError(t, err)
	require.Equal(t, eventlog.StepPending, step.Status)
	require.Equal(t, 2, step.Attempt)
}

func TestInvokeFailsFatalErrorImmediately(t *testing.T) {
	store := memory.New()
	runID := "run_1"
	newRun(t, store, runID)
	c := codec.New()

	args, err := c.Encode(nil)
	require.NoError(t, err)

	handlers := map[string]steps.Handler{
		"broken": func(ctx context.Context, args any) (any, error) {
			return nil, errors.New("permanent failure")
		},
	}
	runner := steps.New(c, nil, handlers)

	outcome, err := runner.Invoke(context.Background(), store, steps.Invocation{
		RunID: runID, CorrelationID: "cid_1", StepName: "broken", Args: args, Attempt: 1,
	})
	require.NoError(t, err)
	require.True(t, outcome.Terminal)

	step, err := store.GetStep(context.Background(), runID, "cid_1")
	require.NoError(t, err)
	require.Equal(t, eventlog.StepFailed, step.Status)
}
