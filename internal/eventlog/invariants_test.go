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

package eventlog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/eventlog/sqlite"
)

// backends runs every invariant test against each Store implementation so a
// divergence between memory and sqlite surfaces immediately.
func backends(t *testing.T) map[string]eventlog.Store {
	t.Helper()
	sqliteStore, err := sqlite.Open(context.Background(), sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]eventlog.Store{
		"memory": memory.New(),
		"sqlite": sqliteStore,
	}
}

func createRun(t *testing.T, store eventlog.Store, runID string) {
	t.Helper()
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated,
		Meta: eventlog.EventMeta{WorkflowName: "onboarding", Input: []byte(`{}`)},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

// Invariant 1: ordinals are dense and monotonic, starting at 1.
func TestOrdinalsAreDenseAndMonotonic(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			createRun(t, store, "run_1")

			for i := 0; i < 5; i++ {
				_, err := store.Append(ctx, "run_1", eventlog.NewEvent{
					Type:          eventlog.EventStepStarted,
					CorrelationID: "step_a",
					Meta:          eventlog.EventMeta{Attempt: 1},
				}, eventlog.AppendOptions{})
				require.NoError(t, err)
			}

			events, err := store.ListEvents(ctx, "run_1", eventlog.Page{})
			require.NoError(t, err)
			require.Len(t, events, 6)
			for i, e := range events {
				require.Equal(t, int64(i+1), e.Ordinal)
			}
		})
	}
}

// Invariant 2: the first event appended for any run is run_created.
func TestFirstEventMustBeRunCreated(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Append(ctx, "run_missing", eventlog.NewEvent{
				Type:          eventlog.EventStepStarted,
				CorrelationID: "step_a",
			}, eventlog.AppendOptions{})
			require.Error(t, err)
			require.True(t, dflowerrors.IsNotFound(err))
		})
	}
}

// Invariant 3: a step_completed event materializes as the step's final
// status and output. The stores do not reject a second step_completed or
// step_failed for the same correlation id (the last one appended sets the
// status); the guard against a second terminal event is steps.Runner.Invoke,
// which skips a step already completed or failed.
func TestStepHasAtMostOneTerminalOutcome(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			createRun(t, store, "run_1")

			_, err := store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepStarted, CorrelationID: "step_a", Meta: eventlog.EventMeta{Attempt: 1},
			}, eventlog.AppendOptions{})
			require.NoError(t, err)

			_, err = store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepCompleted, CorrelationID: "step_a", Meta: eventlog.EventMeta{Output: []byte("42")},
			}, eventlog.AppendOptions{})
			require.NoError(t, err)

			step, err := store.GetStep(ctx, "run_1", "step_a")
			require.NoError(t, err)
			require.Equal(t, eventlog.StepCompleted, step.Status)
			require.Equal(t, []byte("42"), step.Output)
		})
	}
}

// Invariant 4: once a run reaches a terminal status, no further events may
// be appended against it.
func TestNoAppendAfterRunIsTerminal(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			createRun(t, store, "run_1")

			_, err := store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventRunCompleted, Meta: eventlog.EventMeta{Output: []byte(`"done"`)},
			}, eventlog.AppendOptions{})
			require.NoError(t, err)

			_, err = store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepStarted, CorrelationID: "step_a",
			}, eventlog.AppendOptions{})
			require.Error(t, err)
			require.True(t, dflowerrors.IsTerminalRun(err))

			run, err := store.GetRun(ctx, "run_1")
			require.NoError(t, err)
			require.Equal(t, eventlog.RunCompleted, run.Status)
			require.Equal(t, []byte(`"done"`), run.Output)
		})
	}
}

// Invariant 5: replaying the same correlation id's event sequence from the
// log is stable across repeated reads — the replay engine depends on this
// to fold identical intent sequences deterministically.
func TestCorrelationSequenceIsStableAcrossReads(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			createRun(t, store, "run_1")

			_, err := store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepStarted, CorrelationID: "step_a", Meta: eventlog.EventMeta{Attempt: 1},
			}, eventlog.AppendOptions{})
			require.NoError(t, err)
			_, err = store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepRetrying, CorrelationID: "step_a", Meta: eventlog.EventMeta{Attempt: 2, ErrorMessage: "timeout"},
			}, eventlog.AppendOptions{})
			require.NoError(t, err)
			_, err = store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepCompleted, CorrelationID: "step_a", Meta: eventlog.EventMeta{Output: []byte("7")},
			}, eventlog.AppendOptions{})
			require.NoError(t, err)

			first, err := store.ListByCorrelationID(ctx, "run_1", "step_a")
			require.NoError(t, err)
			second, err := store.ListByCorrelationID(ctx, "run_1", "step_a")
			require.NoError(t, err)

			require.Equal(t, len(first), len(second))
			for i := range first {
				require.Equal(t, first[i].Type, second[i].Type)
				require.Equal(t, first[i].Ordinal, second[i].Ordinal)
			}
			require.Equal(t, []eventlog.EventType{
				eventlog.EventStepStarted, eventlog.EventStepRetrying, eventlog.EventStepCompleted,
			}, []eventlog.EventType{first[0].Type, first[1].Type, first[2].Type})
		})
	}
}

// Optimistic concurrency: an Append with a stale ExpectedOrdinal is rejected
// rather than silently reordered.
func TestExpectedOrdinalConflict(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			createRun(t, store, "run_1")

			_, err := store.Append(ctx, "run_1", eventlog.NewEvent{
				Type: eventlog.EventStepStarted, CorrelationID: "step_a",
			}, eventlog.AppendOptions{ExpectedOrdinal: 5})
			require.Error(t, err)
		})
	}
}
