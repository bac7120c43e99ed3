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

package replay

import (
	"context"

	"github.com/dflow-run/dflow/internal/eventlog"
)

// Estimate reports which of a run's in-flight correlation ids will be
// served from the event log on the next replay (Skipped) versus newly
// invoked (Pending) — a diagnostic for operators deciding whether to
// resume a suspended run, adapted from the teacher's EstimateReplayCost
// (internal/controller/runner/replay.go). This domain's steps carry no
// cost figure, so the report is a skip/pending split by correlation id
// rather than a dollar estimate.
type Estimate struct {
	Skipped []string
	Pending []string
}

// EstimateReplay computes the report for runID's current step log.
func EstimateReplay(ctx context.Context, store eventlog.Store, runID string) (*Estimate, error) {
	steps, err := store.ListSteps(ctx, runID)
	if err != nil {
		return nil, err
	}

	est := &Estimate{}
	for _, s := range steps {
		switch s.Status {
		case eventlog.StepCompleted, eventlog.StepFailed:
			est.Skipped = append(est.Skipped, s.CorrelationID)
		default:
			est.Pending = append(est.Pending, s.CorrelationID)
		}
	}
	return est, nil
}
