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

package queue

import (
	"context"
	"fmt"
	"time"
)

// LifetimeConfig bounds a queue backend's message lifetime: MaxLifetime (L)
// is the longest a single message may remain undelivered-and-undeleted, and
// SafeBuffer (B) is the margin kept before that limit to leave room for
// clock skew and handler latency.
type LifetimeConfig struct {
	MaxLifetime time.Duration
	SafeBuffer  time.Duration
}

// Action is the lifetime manager's decision for realizing a requested delay.
type Action int

const (
	// ActionClamp extends the current message's visibility timeout to the
	// requested delay (or less, if that would exceed the safe remaining
	// lifetime).
	ActionClamp Action = iota
	// ActionReenqueue sends a fresh message carrying the same payload and
	// deletes the current one, because the requested delay (or even an
	// immediate redelivery) would exceed what's left of the message's
	// lifetime.
	ActionReenqueue
)

// Resolve decides how to realize a handler's requested wait of `requested`
// given a message already `age` old, per spec.md §4.4: clamp when there's
// still headroom under L−B, otherwise re-enqueue. delay is the visibility
// timeout to set (clamp case) — it is always <= requested.
func Resolve(age, requested time.Duration, cfg LifetimeConfig) (action Action, delay time.Duration) {
	headroom := cfg.MaxLifetime - cfg.SafeBuffer - age
	if headroom > 0 {
		if requested < headroom {
			return ActionClamp, requested
		}
		return ActionClamp, headroom
	}
	return ActionReenqueue, 0
}

// ApplyLongDelay realizes a handler's HandlerResult.RequeueAfter against q,
// choosing clamp or re-enqueue per Resolve. On the re-enqueue path the fresh
// message fires immediately; callers are expected to have already persisted
// the real remaining delay (step.retryAfter or a wait_created event) so the
// handler recomputes it from storage on that immediate redelivery rather
// than re-deriving it from the message itself.
func ApplyLongDelay(ctx context.Context, q Queue, msg *Message, requested time.Duration, cfg LifetimeConfig) error {
	action, delay := Resolve(msg.Age(), requested, cfg)

	switch action {
	case ActionClamp:
		if err := q.ChangeVisibility(ctx, msg.ReceiptHandle, delay); err != nil {
			return fmt.Errorf("clamping visibility for message %s: %w", msg.ID, err)
		}
		return nil

	case ActionReenqueue:
		if _, err := q.Enqueue(ctx, msg.Name, msg.Payload, EnqueueOptions{DeploymentID: msg.DeploymentID}); err != nil {
			return fmt.Errorf("re-enqueuing message %s: %w", msg.ID, err)
		}
		if err := q.Delete(ctx, msg.ReceiptHandle); err != nil {
			return fmt.Errorf("deleting re-enqueued message %s: %w", msg.ID, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown lifetime action for message %s", msg.ID)
	}
}
