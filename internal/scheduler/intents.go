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
	"fmt"
	"time"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/queue"
	"github.com/dflow-run/dflow/internal/sandbox"
)

// intentResult tells handleWorkflowMessage what to do with the in-flight
// workflow message after dispatching one suspension intent.
type intentResult struct {
	// progressed means a capability resolved synchronously (an explicit
	// wait whose deadline had already passed) — the caller should re-Replay
	// immediately against the same message rather than waiting for an
	// external redelivery.
	progressed bool
	// messageConsumed means this dispatch already decided the in-flight
	// message's fate (extended its visibility or re-enqueued+deleted it
	// via queue.ApplyLongDelay) — the caller must not also delete it.
	messageConsumed bool
}

func (s *Scheduler) dispatchIntent(ctx context.Context, msg *queue.Message, runID string, intent sandbox.Intent) (intentResult, error) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncDispatched(string(intent.Type))
	}
	switch intent.Type {
	case sandbox.IntentStep:
		return intentResult{}, s.dispatchStepIntent(ctx, runID, intent)
	case sandbox.IntentHook:
		return intentResult{}, s.dispatchHookIntent(ctx, runID, intent)
	case sandbox.IntentWait:
		return s.dispatchWaitIntent(ctx, msg, runID, intent)
	default:
		return intentResult{}, fmt.Errorf("scheduler: unknown intent type %q", intent.Type)
	}
}

// dispatchStepIntent enqueues a step invocation. It is idempotent against
// redelivery of the same workflow message: if a step view already exists
// for this correlation id, the step was already dispatched (or has already
// resolved), so this is a no-op.
func (s *Scheduler) dispatchStepIntent(ctx context.Context, runID string, intent sandbox.Intent) error {
	if _, err := s.store.GetStep(ctx, runID, intent.CorrelationID); err == nil {
		return nil
	} else if !dflowerrors.IsNotFound(err) {
		return err
	}

	args, err := s.engine.EncodeValue(runID, intent.Args)
	if err != nil {
		return err
	}
	payload, err := marshalJSON(StepMessage{
		RunID: runID, StepID: intent.CorrelationID, StepName: intent.Name,
		Args: args, Attempt: 1,
	})
	if err != nil {
		return err
	}
	_, err = s.q.Enqueue(ctx, StepQueueName(intent.Name), payload, queue.EnqueueOptions{
		IdempotencyKey: runID + ":" + intent.CorrelationID,
	})
	return err
}

// dispatchHookIntent creates the hook a workflow is awaiting, if it
// doesn't already exist. The resulting token is the bearer credential an
// external caller later presents to hooks.Registry.ResumeHook/ResumeWebhook;
// handing it to that caller is outside this package. The token is recorded
// in hook_created's metadata and on the hook view eventlog.Store.GetHook
// returns; neither cmd/dflowctl nor the SDK client surfaces it.
func (s *Scheduler) dispatchHookIntent(ctx context.Context, runID string, intent sandbox.Intent) error {
	if _, err := s.store.GetHook(ctx, runID, intent.CorrelationID); err == nil {
		return nil
	} else if !dflowerrors.IsNotFound(err) {
		return err
	}
	_, err := s.hooks.Create(ctx, runID, intent.CorrelationID)
	return err
}

// dispatchWaitIntent realizes an explicit wait (spec.md §4.10's "Timeouts"
// note: "Implemented via explicit wait_created + the queue-lifetime
// manager"). The deadline is persisted in wait_created's event data (codec-
// encoded, since eventlog.EventMeta has no generic field for it) so any
// worker — not just the one that first observed the wait — can recompute
// the remaining delay from storage, per queue.ApplyLongDelay's re-enqueue
// contract.
func (s *Scheduler) dispatchWaitIntent(ctx context.Context, msg *queue.Message, runID string, intent sandbox.Intent) (intentResult, error) {
	events, err := s.store.ListByCorrelationID(ctx, runID, intent.CorrelationID)
	if err != nil {
		return intentResult{}, err
	}

	var created *eventlog.Event
	for i := range events {
		switch events[i].Type {
		case eventlog.EventWaitCreated:
			created = &events[i]
		case eventlog.EventWaitExpired:
			// Context already resolves this on its next pass; nothing to do.
			return intentResult{progressed: true}, nil
		}
	}

	if created == nil {
		delay, _ := intent.Args.(time.Duration)
		deadline := time.Now().Add(delay)
		data, err := s.engine.EncodeValue(runID, deadline)
		if err != nil {
			return intentResult{}, err
		}
		if _, err := s.store.Append(ctx, runID, eventlog.NewEvent{
			Type: eventlog.EventWaitCreated, CorrelationID: intent.CorrelationID, Data: data,
		}, eventlog.AppendOptions{}); err != nil {
			return intentResult{}, err
		}
		if err := queue.ApplyLongDelay(ctx, s.q, msg, delay, s.cfg.Lifetime); err != nil {
			return intentResult{}, err
		}
		return intentResult{messageConsumed: true}, nil
	}

	decoded, err := s.engine.DecodeInput(runID, created.Data)
	if err != nil {
		return intentResult{}, err
	}
	deadline, _ := decoded.(time.Time)
	remaining := time.Until(deadline)

	if remaining <= 0 {
		if _, err := s.store.Append(ctx, runID, eventlog.NewEvent{
			Type: eventlog.EventWaitExpired, CorrelationID: intent.CorrelationID,
		}, eventlog.AppendOptions{}); err != nil {
			return intentResult{}, err
		}
		return intentResult{progressed: true}, nil
	}

	if err := queue.ApplyLongDelay(ctx, s.q, msg, remaining, s.cfg.Lifetime); err != nil {
		return intentResult{}, err
	}
	return intentResult{messageConsumed: true}, nil
}
