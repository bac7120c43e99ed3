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

// Package steps implements the step runner (spec.md §4.8): hydrates a
// step invocation's arguments, invokes the registered handler, and commits
// the outcome to the event log idempotently, scheduling a backoff-computed
// retry on transient failure.
package steps

import (
	"context"
	"errors"
	"time"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/crypto"
	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/stream"
)

// Handler is a registered step implementation. Unlike orchestrator code,
// handlers may perform arbitrary I/O — their return value is the durable
// fact the event log records (spec.md §4.8, "determinism boundary").
type Handler func(ctx context.Context, args any) (any, error)

// Invocation is what the scheduler delivers to the step runner for one
// queue message (spec.md §4.8, "Receives {runId, stepId, correlationId,
// args, attempt}").
type Invocation struct {
	RunID         string
	CorrelationID string
	StepName      string
	Args          []byte // codec-framed, possibly encrypted
	Attempt       int
}

// Outcome reports what the runner did with one invocation, so the
// scheduler knows whether to schedule a delayed redelivery.
type Outcome struct {
	Terminal   bool // step_completed or step_failed was appended
	RetryAfter time.Duration
}

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 2 * time.Second
	defaultMaxDelay    = 5 * time.Minute
)

// Runner invokes step handlers and commits their outcomes.
type Runner struct {
	codec       *codec.Codec
	enc         *crypto.Encryptor
	handlers    map[string]Handler
	retry       *stream.RetryPolicy
	maxAttempts int
}

// New returns a Runner backed by the given handler registry.
func New(c *codec.Codec, enc *crypto.Encryptor, handlers map[string]Handler) *Runner {
	return &Runner{
		codec:       c,
		enc:         enc,
		handlers:    handlers,
		retry:       stream.NewRetryPolicy(defaultBaseDelay, defaultMaxDelay, defaultMaxAttempts),
		maxAttempts: defaultMaxAttempts,
	}
}

// Invoke hydrates args, runs the handler, and commits the result. Delivery
// is idempotent: if a terminal event already exists for inv.CorrelationID,
// Invoke is a no-op (spec.md §4.8, "the commit is guarded").
func (r *Runner) Invoke(ctx context.Context, store eventlog.Store, inv Invocation) (*Outcome, error) {
	existing, err := store.GetStep(ctx, inv.RunID, inv.CorrelationID)
	if err != nil && !dflowerrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && (existing.Status == eventlog.StepCompleted || existing.Status == eventlog.StepFailed) {
		return &Outcome{Terminal: true}, nil
	}

	handler, ok := r.handlers[inv.StepName]
	if !ok {
		return nil, &dflowerrors.NotFoundError{Resource: "step", ID: inv.StepName}
	}

	if _, err := store.Append(ctx, inv.RunID, eventlog.NewEvent{
		Type:          eventlog.EventStepStarted,
		CorrelationID: inv.CorrelationID,
		Meta:          eventlog.EventMeta{Attempt: inv.Attempt},
	}, eventlog.AppendOptions{}); err != nil {
		return nil, err
	}

	args, err := r.decodeValue(inv.RunID, inv.Args)
	if err != nil {
		return nil, err
	}

	result, handlerErr := handler(ctx, args)
	if handlerErr == nil {
		data, err := r.encodeValue(inv.RunID, result)
		if err != nil {
			return nil, err
		}
		if _, err := store.Append(ctx, inv.RunID, eventlog.NewEvent{
			Type:          eventlog.EventStepCompleted,
			CorrelationID: inv.CorrelationID,
			Data:          data,
			Meta:          eventlog.EventMeta{Output: data},
		}, eventlog.AppendOptions{}); err != nil {
			return nil, err
		}
		return &Outcome{Terminal: true}, nil
	}

	if dflowerrors.IsTransient(handlerErr) && inv.Attempt < r.maxAttempts {
		retryAfter := r.retry.Delay(inv.Attempt, retryAfterHint(handlerErr))
		next := time.Now().Add(retryAfter)
		if _, err := store.Append(ctx, inv.RunID, eventlog.NewEvent{
			Type:          eventlog.EventStepRetrying,
			CorrelationID: inv.CorrelationID,
			Meta: eventlog.EventMeta{
				Attempt:      inv.Attempt + 1,
				RetryAfter:   &next,
				ErrorMessage: handlerErr.Error(),
			},
		}, eventlog.AppendOptions{}); err != nil {
			return nil, err
		}
		return &Outcome{Terminal: false, RetryAfter: retryAfter}, nil
	}

	data, err := r.encodeValue(inv.RunID, handlerErr.Error())
	if err != nil {
		return nil, err
	}
	if _, err := store.Append(ctx, inv.RunID, eventlog.NewEvent{
		Type:          eventlog.EventStepFailed,
		CorrelationID: inv.CorrelationID,
		Data:          data,
		Meta:          eventlog.EventMeta{ErrorMessage: handlerErr.Error()},
	}, eventlog.AppendOptions{}); err != nil {
		return nil, err
	}
	return &Outcome{Terminal: true}, nil
}

// retryAfterSignal is implemented by handler errors that carry an
// upstream-provided Retry-After hint (spec.md §4.8, "honors upstream
// Retry-After").
type retryAfterSignal interface {
	RetryAfter() time.Duration
}

// retryAfterHint extracts a server-signalled Retry-After duration from a
// handler error, or 0 if it carries none — meaning "compute our own
// backoff".
func retryAfterHint(err error) time.Duration {
	var signal retryAfterSignal
	if errors.As(err, &signal) {
		return signal.RetryAfter()
	}
	return 0
}

func (r *Runner) decodeValue(runID string, data []byte) (any, error) {
	plain, err := r.enc.Decrypt(data, runID)
	if err != nil {
		return nil, err
	}
	return r.codec.Decode(plain)
}

func (r *Runner) encodeValue(runID string, v any) ([]byte, error) {
	framed, err := r.codec.Encode(v)
	if err != nil {
		return nil, err
	}
	return r.enc.Encrypt(framed, runID)
}
