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

package scheduler

import (
	"context"
	"log/slog"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/queue"
	"github.com/dflow-run/dflow/internal/telemetry"
)

// handleWorkflowMessage drives one workflow-queue delivery through the
// replay engine (spec.md §4.7), dispatching whatever the resulting
// suspension's intents require, and loops back into another Replay pass
// without waiting for redelivery whenever an intent resolves synchronously
// (an explicit wait whose deadline had already elapsed).
func (s *Scheduler) handleWorkflowMessage(ctx context.Context, workflowName string, msg *queue.Message) error {
	var wm WorkflowMessage
	if err := unmarshalJSON(msg.Payload, &wm); err != nil {
		s.logger.Error("malformed workflow message, dropping", slog.Any("error", err))
		return s.q.Delete(ctx, msg.ReceiptHandle)
	}

	fn, ok := s.manifest.Workflow(workflowName)
	if !ok {
		return &dflowerrors.NotFoundError{Resource: "workflow", ID: workflowName}
	}

	ctx = telemetry.ExtractCarrier(ctx, wm.TraceCarrier)

	for {
		run, err := s.store.GetRun(ctx, wm.RunID)
		if err != nil {
			return err
		}
		if run.Status.Terminal() {
			return s.finishRun(ctx, msg, wm.RunID)
		}

		events, err := s.store.ListEvents(ctx, wm.RunID, eventlog.Page{})
		if err != nil {
			return err
		}
		if err := s.manifest.CheckStepSequence(events, wm.RunID, workflowName); err != nil {
			s.logger.Error("workflow step sequence diverged, blocking replay",
				slog.String("run_id", wm.RunID), slog.Any("error", err))
			return s.q.Delete(ctx, msg.ReceiptHandle)
		}

		input, err := s.engine.DecodeInput(wm.RunID, run.Input)
		if err != nil {
			return err
		}

		outcome, err := s.engine.Replay(ctx, s.store, wm.RunID, fn, input)
		if err != nil {
			return err
		}

		if !outcome.Suspended {
			return s.finishRun(ctx, msg, wm.RunID)
		}

		progressed := false
		for _, intent := range outcome.Intents {
			res, err := s.dispatchIntent(ctx, msg, wm.RunID, intent)
			if err != nil {
				return err
			}
			if res.messageConsumed {
				return nil
			}
			if res.progressed {
				progressed = true
			}
		}
		if progressed {
			continue
		}
		return s.q.Delete(ctx, msg.ReceiptHandle)
	}
}

// finishRun disposes every hook belonging to runID (spec.md §4.9, hooks
// auto-dispose when their owning run reaches a terminal state) and
// acknowledges the in-flight workflow message.
func (s *Scheduler) finishRun(ctx context.Context, msg *queue.Message, runID string) error {
	events, err := s.store.ListEvents(ctx, runID, eventlog.Page{})
	if err != nil {
		return err
	}
	var hookCorrelationIDs []string
	for _, ev := range events {
		if ev.Type == eventlog.EventHookCreated {
			hookCorrelationIDs = append(hookCorrelationIDs, ev.CorrelationID)
		}
	}
	if len(hookCorrelationIDs) > 0 {
		if err := s.hooks.DisposeAllForRun(ctx, runID, hookCorrelationIDs); err != nil {
			return err
		}
	}
	return s.q.Delete(ctx, msg.ReceiptHandle)
}
