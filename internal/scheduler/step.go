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
	"github.com/dflow-run/dflow/internal/queue"
	"github.com/dflow-run/dflow/internal/steps"
)

// handleStepMessage drives one step-queue delivery through the step runner
// (spec.md §4.8). A terminal outcome re-enqueues the owning workflow so its
// next replay pass observes the committed step_completed/step_failed; a
// transient retry reschedules this same message via the queue-lifetime
// manager rather than the runner's caller re-deriving a delay itself.
func (s *Scheduler) handleStepMessage(ctx context.Context, stepName string, msg *queue.Message) error {
	var sm StepMessage
	if err := unmarshalJSON(msg.Payload, &sm); err != nil {
		s.logger.Error("malformed step message, dropping", slog.Any("error", err))
		return s.q.Delete(ctx, msg.ReceiptHandle)
	}

	attempt := sm.Attempt
	if step, err := s.store.GetStep(ctx, sm.RunID, sm.StepID); err == nil {
		attempt = step.Attempt
	} else if !dflowerrors.IsNotFound(err) {
		return err
	}

	outcome, err := s.runner.Invoke(ctx, s.store, steps.Invocation{
		RunID: sm.RunID, CorrelationID: sm.StepID, StepName: sm.StepName,
		Args: sm.Args, Attempt: attempt,
	})
	if err != nil {
		return err
	}

	if !outcome.Terminal {
		return queue.ApplyLongDelay(ctx, s.q, msg, outcome.RetryAfter, s.cfg.Lifetime)
	}

	run, err := s.store.GetRun(ctx, sm.RunID)
	if err != nil {
		return err
	}
	if err := s.Dispatch(ctx, sm.RunID, run.WorkflowName); err != nil {
		return err
	}
	return s.q.Delete(ctx, msg.ReceiptHandle)
}
