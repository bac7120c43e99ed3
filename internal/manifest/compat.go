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

package manifest

import (
	"fmt"

	"github.com/dflow-run/dflow/internal/eventlog"
)

// CheckStepSequence diagnoses whether workflowName's currently registered
// step sequence is still compatible with runID's history, adapted from the
// teacher's ValidateCachedOutputs (internal/controller/runner/replay.go):
// rather than comparing a YAML workflow definition's step list by index, it
// recomputes the correlation ids the declared sequence would produce (see
// expectedCorrelationIDs) and checks that the run's already-observed step
// correlation ids are a prefix of that sequence, in order. A suspended run
// resumed against a workflow whose steps were added, removed, or reordered
// diverges at the first mismatching position; this reports it instead of
// letting replay silently misinterpret the existing event log.
//
// Workflows with no declared step sequence (SetStepSequence never called)
// are not checked: this is opt-in metadata, not a required registration.
func (r *Registry) CheckStepSequence(events []eventlog.Event, runID, workflowName string) error {
	declared, ok := r.StepSequence(workflowName)
	if !ok {
		return nil
	}
	expected := expectedCorrelationIDs(runID, declared)

	observed := observedStepCorrelationIDs(events)

	if len(observed) > len(expected) {
		return fmt.Errorf("workflow %q structure changed: run %s already invoked %d steps, current registration declares only %d",
			workflowName, runID, len(observed), len(expected))
	}
	for i, cid := range observed {
		if cid != expected[i] {
			return fmt.Errorf("workflow %q structure changed: run %s's step %d does not match the current registration (replay blocked)",
				workflowName, runID, i+1)
		}
	}
	return nil
}

// observedStepCorrelationIDs returns the distinct step correlation ids a
// run's event log has seen so far, in the order each first appears —
// eventlog.Event carries no step name, only a correlation id, so this is
// the only order-preserving signal available to compare against
// expectedCorrelationIDs.
func observedStepCorrelationIDs(events []eventlog.Event) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, ev := range events {
		switch ev.Type {
		case eventlog.EventStepStarted, eventlog.EventStepCompleted, eventlog.EventStepFailed, eventlog.EventStepRetrying:
			if !seen[ev.CorrelationID] {
				seen[ev.CorrelationID] = true
				ids = append(ids, ev.CorrelationID)
			}
		}
	}
	return ids
}
