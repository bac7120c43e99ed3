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

// Package memory provides an in-memory eventlog.Store, used by tests and by
// single-process deployments that don't need durability across restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
)

// Compile-time interface assertions, mirroring the segregated contract.
var (
	_ eventlog.EventAppender = (*Store)(nil)
	_ eventlog.EventReader   = (*Store)(nil)
	_ eventlog.RunStore      = (*Store)(nil)
	_ eventlog.RunLister     = (*Store)(nil)
	_ eventlog.StepStore     = (*Store)(nil)
	_ eventlog.HookStore     = (*Store)(nil)
	_ eventlog.Store         = (*Store)(nil)
)

// Store is a mutex-guarded in-memory implementation of eventlog.Store.
type Store struct {
	mu          sync.RWMutex
	events      map[string][]eventlog.Event         // runID -> ordinal-ordered events
	runs        map[string]*eventlog.Run            // runID -> materialized run
	steps       map[string]map[string]*eventlog.Step // runID -> correlationID -> step
	hooks       map[string]map[string]*eventlog.Hook // runID -> correlationID -> hook
	hooksByTok  map[string]string                    // token -> runID:correlationID key
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		events:     make(map[string][]eventlog.Event),
		runs:       make(map[string]*eventlog.Run),
		steps:      make(map[string]map[string]*eventlog.Step),
		hooks:      make(map[string]map[string]*eventlog.Hook),
		hooksByTok: make(map[string]string),
	}
}

func hookKey(runID, correlationID string) string { return runID + ":" + correlationID }

// Append implements eventlog.EventAppender.
func (s *Store) Append(ctx context.Context, runID string, in eventlog.NewEvent, opts eventlog.AppendOptions) (*eventlog.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[runID]
	if in.Type == eventlog.EventRunCreated {
		if exists {
			return nil, &dflowerrors.ValidationError{Field: "run_id", Message: "run already exists: " + runID}
		}
	} else {
		if !exists {
			return nil, &dflowerrors.NotFoundError{Resource: "run", ID: runID}
		}
		if run.Status.Terminal() {
			return nil, &dflowerrors.TerminalRunError{RunID: runID, Status: string(run.Status)}
		}
	}

	nextOrdinal := int64(len(s.events[runID])) + 1
	if opts.ExpectedOrdinal != 0 && opts.ExpectedOrdinal != nextOrdinal {
		return nil, &dflowerrors.ValidationError{
			Field:   "expected_ordinal",
			Message: "optimistic concurrency conflict on run " + runID,
		}
	}

	now := time.Now()
	event := eventlog.Event{
		EventID:       uuid.NewString(),
		RunID:         runID,
		Ordinal:       nextOrdinal,
		Type:          in.Type,
		CorrelationID: in.CorrelationID,
		Data:          in.Data,
		SpecVersion:   eventlog.SpecVersion,
		CreatedAt:     now,
	}

	entity, err := s.apply(runID, event, in.Meta, now)
	if err != nil {
		return nil, err
	}

	s.events[runID] = append(s.events[runID], event)
	return &eventlog.AppendResult{Event: event, Entity: entity}, nil
}

// apply folds event into the materialized Run/Step/Hook views. Callers hold
// s.mu for writing.
func (s *Store) apply(runID string, event eventlog.Event, meta eventlog.EventMeta, now time.Time) (any, error) {
	switch event.Type {
	case eventlog.EventRunCreated:
		run := &eventlog.Run{
			RunID:        runID,
			WorkflowName: meta.WorkflowName,
			Status:       eventlog.RunPending,
			Input:        meta.Input,
			CreatedAt:    now,
		}
		s.runs[runID] = run
		return run, nil

	case eventlog.EventRunStarted:
		run := s.runs[runID]
		run.Status = eventlog.RunRunning
		started := now
		run.StartedAt = &started
		return run, nil

	case eventlog.EventRunCompleted:
		run := s.runs[runID]
		run.Status = eventlog.RunCompleted
		run.Output = meta.Output
		completed := now
		run.CompletedAt = &completed
		return run, nil

	case eventlog.EventRunFailed:
		run := s.runs[runID]
		run.Status = eventlog.RunFailed
		run.Error = []byte(meta.ErrorMessage)
		completed := now
		run.CompletedAt = &completed
		return run, nil

	case eventlog.EventRunCancelled:
		run := s.runs[runID]
		run.Status = eventlog.RunCancelled
		completed := now
		run.CompletedAt = &completed
		return run, nil

	case eventlog.EventStepStarted:
		step := s.stepFor(runID, event.CorrelationID, now)
		step.Status = eventlog.StepRunning
		step.Attempt = meta.Attempt
		step.UpdatedAt = now
		return step, nil

	case eventlog.EventStepRetrying:
		step := s.stepFor(runID, event.CorrelationID, now)
		step.Status = eventlog.StepPending
		step.Attempt = meta.Attempt
		step.RetryAfter = meta.RetryAfter
		step.LastError = meta.ErrorMessage
		step.UpdatedAt = now
		return step, nil

	case eventlog.EventStepCompleted:
		step := s.stepFor(runID, event.CorrelationID, now)
		step.Status = eventlog.StepCompleted
		step.Output = meta.Output
		step.RetryAfter = nil
		step.UpdatedAt = now
		return step, nil

	case eventlog.EventStepFailed:
		step := s.stepFor(runID, event.CorrelationID, now)
		step.Status = eventlog.StepFailed
		step.LastError = meta.ErrorMessage
		step.RetryAfter = nil
		step.UpdatedAt = now
		return step, nil

	case eventlog.EventHookCreated:
		hook := &eventlog.Hook{
			HookID:    event.EventID,
			RunID:     runID,
			Token:     meta.Token,
			CreatedAt: now,
		}
		if s.hooks[runID] == nil {
			s.hooks[runID] = make(map[string]*eventlog.Hook)
		}
		s.hooks[runID][event.CorrelationID] = hook
		s.hooksByTok[meta.Token] = hookKey(runID, event.CorrelationID)
		return hook, nil

	case eventlog.EventHookReceived:
		hook := s.hooks[runID][event.CorrelationID]
		return hook, nil

	case eventlog.EventHookDisposed:
		hook := s.hooks[runID][event.CorrelationID]
		hook.Disposed = true
		delete(s.hooksByTok, hook.Token)
		return hook, nil

	case eventlog.EventWaitCreated, eventlog.EventWaitExpired:
		return nil, nil

	default:
		return nil, &dflowerrors.ValidationError{Field: "type", Message: "unknown event type: " + string(event.Type)}
	}
}

func (s *Store) stepFor(runID, correlationID string, now time.Time) *eventlog.Step {
	if s.steps[runID] == nil {
		s.steps[runID] = make(map[string]*eventlog.Step)
	}
	step, ok := s.steps[runID][correlationID]
	if !ok {
		step = &eventlog.Step{
			StepID:        correlationID,
			RunID:         runID,
			CorrelationID: correlationID,
			Status:        eventlog.StepPending,
			Attempt:       1,
			StartedAt:     now,
		}
		s.steps[runID][correlationID] = step
	}
	return step
}

// ListEvents implements eventlog.EventReader.
func (s *Store) ListEvents(ctx context.Context, runID string, page eventlog.Page) ([]eventlog.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.events[runID]
	return paginate(all, page), nil
}

// ListByCorrelationID implements eventlog.EventReader.
func (s *Store) ListByCorrelationID(ctx context.Context, runID, correlationID string) ([]eventlog.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []eventlog.Event
	for _, e := range s.events[runID] {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func paginate(events []eventlog.Event, page eventlog.Page) []eventlog.Event {
	offset := page.Offset
	if offset < 0 || offset > len(events) {
		offset = len(events)
	}
	rest := events[offset:]
	if page.Limit > 0 && len(rest) > page.Limit {
		rest = rest[:page.Limit]
	}
	out := make([]eventlog.Event, len(rest))
	copy(out, rest)
	return out
}

// GetRun implements eventlog.RunStore.
func (s *Store) GetRun(ctx context.Context, runID string) (*eventlog.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, &dflowerrors.NotFoundError{Resource: "run", ID: runID}
	}
	cp := *run
	return &cp, nil
}

// ListRuns implements eventlog.RunLister.
func (s *Store) ListRuns(ctx context.Context, filter eventlog.RunFilter) ([]*eventlog.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*eventlog.Run
	for _, run := range s.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if filter.WorkflowName != "" && run.WorkflowName != filter.WorkflowName {
			continue
		}
		cp := *run
		matched = append(matched, &cp)
	}

	offset := filter.Page.Offset
	if offset < 0 || offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if filter.Page.Limit > 0 && len(matched) > filter.Page.Limit {
		matched = matched[:filter.Page.Limit]
	}
	return matched, nil
}

// GetStep implements eventlog.StepStore.
func (s *Store) GetStep(ctx context.Context, runID, correlationID string) (*eventlog.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	step, ok := s.steps[runID][correlationID]
	if !ok {
		return nil, &dflowerrors.NotFoundError{Resource: "step", ID: correlationID}
	}
	cp := *step
	return &cp, nil
}

// ListSteps implements eventlog.StepStore.
func (s *Store) ListSteps(ctx context.Context, runID string) ([]*eventlog.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*eventlog.Step, 0, len(s.steps[runID]))
	for _, step := range s.steps[runID] {
		cp := *step
		out = append(out, &cp)
	}
	return out, nil
}

// GetHook implements eventlog.HookStore.
func (s *Store) GetHook(ctx context.Context, runID, correlationID string) (*eventlog.Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hook, ok := s.hooks[runID][correlationID]
	if !ok {
		return nil, &dflowerrors.NotFoundError{Resource: "hook", ID: correlationID}
	}
	cp := *hook
	return &cp, nil
}

// GetHookByToken implements eventlog.HookStore.
func (s *Store) GetHookByToken(ctx context.Context, token string) (*eventlog.Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.hooksByTok[token]
	if !ok {
		return nil, &dflowerrors.NotFoundError{Resource: "hook", ID: token}
	}
	for runID, byCorr := range s.hooks {
		for corr, hook := range byCorr {
			if hookKey(runID, corr) == key {
				cp := *hook
				return &cp, nil
			}
		}
	}
	return nil, &dflowerrors.NotFoundError{Resource: "hook", ID: token}
}

// Close implements io.Closer; the in-memory store owns no external
// resources.
func (s *Store) Close() error { return nil }
