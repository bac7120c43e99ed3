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

package manifest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/manifest"
	"github.com/dflow-run/dflow/internal/sandbox"
)

func appendStep(t *testing.T, store eventlog.Store, runID, site string, n uint64, status eventlog.EventType) {
	t.Helper()
	cid := sandbox.CorrelationID(runID, site, n)
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: status, CorrelationID: cid, Meta: eventlog.EventMeta{Attempt: 1},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
}

func TestCheckStepSequenceSkipsUndeclaredWorkflows(t *testing.T) {
	r := manifest.New()
	err := r.CheckStepSequence(nil, "run_1", "unregistered_workflow")
	require.NoError(t, err)
}

func TestCheckStepSequenceAcceptsMatchingPrefix(t *testing.T) {
	r := manifest.New()
	r.SetStepSequence("wf", []string{"fetch", "transform"})

	store := memory.New()
	runID := "run_1"
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated, Meta: eventlog.EventMeta{WorkflowName: "wf"},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
	appendStep(t, store, runID, "step:fetch", 0, eventlog.EventStepStarted)

	events, err := store.ListEvents(context.Background(), runID, eventlog.Page{})
	require.NoError(t, err)

	require.NoError(t, r.CheckStepSequence(events, runID, "wf"))
}

func TestCheckStepSequenceRejectsReorderedSteps(t *testing.T) {
	r := manifest.New()
	r.SetStepSequence("wf", []string{"transform", "fetch"})

	store := memory.New()
	runID := "run_1"
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated, Meta: eventlog.EventMeta{WorkflowName: "wf"},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
	appendStep(t, store, runID, "step:fetch", 0, eventlog.EventStepStarted)

	events, err := store.ListEvents(context.Background(), runID, eventlog.Page{})
	require.NoError(t, err)

	err = r.CheckStepSequence(events, runID, "wf")
	require.Error(t, err)
}

func TestCheckStepSequenceRejectsMoreStepsThanDeclared(t *testing.T) {
	r := manifest.New()
	r.SetStepSequence("wf", []string{"fetch"})

	store := memory.New()
	runID := "run_1"
	_, err := store.Append(context.Background(), runID, eventlog.NewEvent{
		Type: eventlog.EventRunCreated, Meta: eventlog.EventMeta{WorkflowName: "wf"},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)
	appendStep(t, store, runID, "step:fetch", 0, eventlog.EventStepStarted)
	appendStep(t, store, runID, "step:transform", 0, eventlog.EventStepStarted)

	events, err := store.ListEvents(context.Background(), runID, eventlog.Page{})
	require.NoError(t, err)

	err = r.CheckStepSequence(events, runID, "wf")
	require.Error(t, err)
}
