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

// Package replay implements the deterministic replay engine (spec.md §4.7):
// given a run's event log and an orchestrator function, it re-executes the
// orchestrator so that any previously committed outcome appears in-line at
// the point it originally occurred, and the first unresolved capability
// produces a recorded intent plus suspension.
package replay

import (
	"context"
	"time"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/crypto"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/sandbox"
)

// WorkflowFunc is an orchestrator's entry point. It runs inside the sandbox
// this package installs: no ambient I/O, only the capabilities exposed
// through Context.
type WorkflowFunc func(c *Context, input any) (any, error)

// Outcome is what one replay pass produces: either a suspension with the
// set of intents the caller (the scheduler) must dispatch, or a terminal
// result already committed to the event log as run_completed/run_failed/
// run_cancelled.
type Outcome struct {
	Suspended bool
	Intents   []sandbox.Intent
	Result    any
	Err       error
	Cancelled bool
}

// Engine replays orchestrators against a codec+encryptor pair shared across
// runs; it holds no per-run state itself (that lives in Context), so one
// Engine serves every concurrent replay.
type Engine struct {
	codec *codec.Codec
	enc   *crypto.Encryptor
}

// NewEngine binds a replay engine to the codec and (optional, nil-safe)
// encryptor used to hydrate step/hook payloads and seal the final result.
func NewEngine(c *codec.Codec, enc *crypto.Encryptor) *Engine {
	return &Engine{codec: c, enc: enc}
}

// Replay fetches runID's current event log, installs the deterministic
// sandbox, and invokes fn. It is the single entry point the scheduler calls
// both for a run's first invocation and every subsequent re-entry after a
// capability resolves.
func (e *Engine) Replay(ctx context.Context, store eventlog.Store, runID string, fn WorkflowFunc, input any) (*Outcome, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	// run_cancelled is appended externally, outside the orchestrator's
	// control (spec.md §4.7, "Cancellation"). A replay that observes it
	// already materialized terminates before running any user code, rather
	// than invoking fn and risking it proceed past where cancellation took
	// effect.
	if run.Status == eventlog.RunCancelled {
		return &Outcome{Cancelled: true}, nil
	}

	events, err := store.ListEvents(ctx, runID, eventlog.Page{})
	if err != nil {
		return nil, err
	}

	rc := &Context{
		engine:       e,
		runID:        runID,
		index:        indexByCorrelation(events),
		globals:      sandbox.NewGlobals(sandbox.NewClock(time.Unix(0, 0).UTC()), sandbox.NewIDSequence(runID)),
		siteCounters: make(map[string]int),
	}

	return e.invoke(ctx, store, runID, rc, fn, input)
}

func (e *Engine) invoke(ctx context.Context, store eventlog.Store, runID string, rc *Context, fn WorkflowFunc, input any) (*Outcome, error) {
	var (
		suspension *sandbox.Suspension
		result     any
		workflowErr error
	)

	func() {
		defer func() {
			if s, ok := sandbox.AsSuspension(recover()); ok {
				suspension = s
			}
		}()
		result, workflowErr = fn(rc, input)
	}()

	if suspension != nil {
		return &Outcome{Suspended: true, Intents: dedupeIntents(suspension.Intents)}, nil
	}

	if workflowErr != nil {
		data, encErr := e.encodeValue(runID, workflowErr.Error())
		if encErr != nil {
			return nil, encErr
		}
		if _, err := store.Append(ctx, runID, eventlog.NewEvent{
			Type: eventlog.EventRunFailed,
			Data: data,
			Meta: eventlog.EventMeta{ErrorMessage: workflowErr.Error()},
		}, eventlog.AppendOptions{}); err != nil {
			return nil, err
		}
		return &Outcome{Err: workflowErr}, nil
	}

	data, err := e.encodeValue(runID, result)
	if err != nil {
		return nil, err
	}
	if _, err := store.Append(ctx, runID, eventlog.NewEvent{
		Type: eventlog.EventRunCompleted,
		Data: data,
		Meta: eventlog.EventMeta{Output: data},
	}, eventlog.AppendOptions{}); err != nil {
		return nil, err
	}
	return &Outcome{Result: result}, nil
}

// DecodeInput decrypts and decodes a run's stored input (eventlog.Run.Input)
// into the Go value a WorkflowFunc expects as its input argument. The
// scheduler calls this once before every Replay, since Replay itself takes
// an already-decoded input rather than raw event-log bytes. It is also the
// general-purpose decoder the scheduler uses for any other encrypted,
// codec-framed value it stores outside of a capability outcome (e.g. an
// explicit wait's persisted deadline).
func (e *Engine) DecodeInput(runID string, data []byte) (any, error) {
	return e.decodeValue(runID, data)
}

// EncodeValue encodes and encrypts v under runID's key, the same pipeline
// Replay uses to seal a run's final result. The scheduler uses this to
// prepare a step intent's Args for the step queue, and to persist an
// explicit wait's deadline.
func (e *Engine) EncodeValue(runID string, v any) ([]byte, error) {
	return e.encodeValue(runID, v)
}

func (e *Engine) decodeValue(runID string, data []byte) (any, error) {
	plain, err := e.enc.Decrypt(data, runID)
	if err != nil {
		return nil, err
	}
	return e.codec.Decode(plain)
}

func (e *Engine) encodeValue(runID string, v any) ([]byte, error) {
	framed, err := e.codec.Encode(v)
	if err != nil {
		return nil, err
	}
	return e.enc.Encrypt(framed, runID)
}

func indexByCorrelation(events []eventlog.Event) map[string][]eventlog.Event {
	idx := make(map[string][]eventlog.Event)
	for _, ev := range events {
		if ev.CorrelationID == "" {
			continue
		}
		idx[ev.CorrelationID] = append(idx[ev.CorrelationID], ev)
	}
	return idx
}

func dedupeIntents(intents []sandbox.Intent) []sandbox.Intent {
	seen := make(map[string]bool, len(intents))
	out := make([]sandbox.Intent, 0, len(intents))
	for _, in := range intents {
		if seen[in.CorrelationID] {
			continue
		}
		seen[in.CorrelationID] = true
		out = append(out, in)
	}
	return out
}
