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

	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/eventlog/memory"
	"github.com/dflow-run/dflow/internal/replay"
)

func TestEstimateReplaySplitsSkippedAndPendingByStepStatus(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	runID := "run_estimate"
	newRun(t, store, runID)

	appendStepStarted(t, store, runID, "cid-completed")
	_, err := store.Append(ctx, runID, eventlog.NewEvent{
		Type:          eventlog.EventStepCompleted,
		CorrelationID: "cid-completed",
		Meta:          eventlog.EventMeta{Output: []byte("done")},
	}, eventlog.AppendOptions{})
	require.NoError(t, err)

	appendStepStarted(t, store, runID, "cid-pending")

	est, err := replay.EstimateReplay(ctx, store, runID)
	require.NoError(t, err)
	require.Equal(t, []string{"cid-completed"}, est.Skipped)
	require.Equal(t, []string{"cid-pending"}, est.Pending)
}
