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

// Package hooks implements the token-addressed hook registry (spec.md
// §4.9): external rendezvous points a run can await, resumed by a bearer
// token delivered out of band (a webhook call, a human action).
package hooks

import (
	"context"

	"github.com/dflow-run/dflow/internal/codec"
	"github.com/dflow-run/dflow/internal/crypto"
	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/sandbox"
	"github.com/dflow-run/dflow/internal/stream"
)

// Dispatcher re-enqueues a run's orchestrator for replay on the queue that
// owns its workflow and deployment — the only mechanism by which external
// input drives further work on a run (spec.md §4.9).
type Dispatcher interface {
	Dispatch(ctx context.Context, runID, workflowName string) error
}

// Registry creates and resolves hooks against the event log.
type Registry struct {
	store      eventlog.Store
	codec      *codec.Codec
	enc        *crypto.Encryptor
	dispatcher Dispatcher
}

// New binds a hook registry to its event log, codec+encryptor pair, and
// dispatcher.
func New(store eventlog.Store, c *codec.Codec, enc *crypto.Encryptor, dispatcher Dispatcher) *Registry {
	return &Registry{store: store, codec: c, enc: enc, dispatcher: dispatcher}
}

// Create issues a fresh token for correlationID and appends hook_created.
// A hook belongs to exactly one run (spec.md §4.9).
func (r *Registry) Create(ctx context.Context, runID, correlationID string) (token string, err error) {
	token, err = GenerateToken()
	if err != nil {
		return "", err
	}
	if _, err := r.store.Append(ctx, runID, eventlog.NewEvent{
		Type:          eventlog.EventHookCreated,
		CorrelationID: correlationID,
		Meta:          eventlog.EventMeta{Token: token},
	}, eventlog.AppendOptions{}); err != nil {
		return "", err
	}
	return token, nil
}

// ResumeHook resolves the hook owning token, re-encrypts payload under the
// target run's key, appends hook_received, and re-enqueues the
// orchestrator (spec.md §4.9).
func (r *Registry) ResumeHook(ctx context.Context, token string, payload any) error {
	hook, err := r.store.GetHookByToken(ctx, token)
	if err != nil {
		return err
	}
	if hook.Disposed {
		return &dflowerrors.ValidationError{Field: "token", Message: "hook already disposed"}
	}

	framed, err := r.codec.Encode(payload)
	if err != nil {
		return err
	}
	data, err := r.enc.Encrypt(framed, hook.RunID)
	if err != nil {
		return err
	}

	correlationID, err := r.findCorrelationID(ctx, hook)
	if err != nil {
		return err
	}
	if _, err := r.store.Append(ctx, hook.RunID, eventlog.NewEvent{
		Type:          eventlog.EventHookReceived,
		CorrelationID: correlationID,
		Data:          data,
	}, eventlog.AppendOptions{}); err != nil {
		return err
	}

	run, err := r.store.GetRun(ctx, hook.RunID)
	if err != nil {
		return err
	}
	return r.dispatcher.Dispatch(ctx, hook.RunID, run.WorkflowName)
}

// ResumeWebhook behaves like ResumeHook but additionally opens a writable
// response stream, so the orchestrator can push an eventual HTTP response
// back through the hook (spec.md §4.9). It returns the stream name the
// orchestrator's Response capability writes to.
func (r *Registry) ResumeWebhook(ctx context.Context, token string, req *sandbox.Request, streams stream.Store) (responseStream string, err error) {
	if err := r.ResumeHook(ctx, token, req); err != nil {
		return "", err
	}
	hook, err := r.store.GetHookByToken(ctx, token)
	if err != nil {
		return "", err
	}
	name := "webhook-response:" + token
	if err := streams.WriteMulti(ctx, name, hook.RunID, nil); err != nil {
		return "", err
	}
	return name, nil
}

// Dispose appends hook_disposed for runID/correlationID ahead of the
// owning run reaching a terminal state. Hooks otherwise auto-dispose when
// their run terminates (the scheduler calls DisposeAllForRun as part of
// committing a terminal run event).
func (r *Registry) Dispose(ctx context.Context, runID, correlationID string) error {
	_, err := r.store.Append(ctx, runID, eventlog.NewEvent{
		Type:          eventlog.EventHookDisposed,
		CorrelationID: correlationID,
	}, eventlog.AppendOptions{})
	return err
}

// DisposeAllForRun disposes every non-disposed hook belonging to runID,
// called once a run reaches a terminal state (spec.md §4.9, "Hooks
// auto-dispose when the owning run reaches a terminal state").
func (r *Registry) DisposeAllForRun(ctx context.Context, runID string, correlationIDs []string) error {
	for _, cid := range correlationIDs {
		hook, err := r.store.GetHook(ctx, runID, cid)
		if err != nil {
			if dflowerrors.IsNotFound(err) {
				continue
			}
			return err
		}
		if hook.Disposed {
			continue
		}
		if err := r.Dispose(ctx, runID, cid); err != nil {
			return err
		}
	}
	return nil
}

// findCorrelationID recovers the correlation id a hook was created under —
// GetHookByToken returns the materialized Hook view, which does not carry
// its own correlation id, so this lists the run's events and scans them
// once for the matching hook_created event.
func (r *Registry) findCorrelationID(ctx context.Context, hook *eventlog.Hook) (string, error) {
	events, err := r.store.ListEvents(ctx, hook.RunID, eventlog.Page{})
	if err != nil {
		return "", err
	}
	for _, ev := range events {
		if ev.Type == eventlog.EventHookCreated && ev.EventID == hook.HookID {
			return ev.CorrelationID, nil
		}
	}
	return "", &dflowerrors.NotFoundError{Resource: "hook_created event", ID: hook.HookID}
}
