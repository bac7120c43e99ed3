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

package eventlog

import (
	"context"
	"io"
)

// AppendOptions carries the mutator-level requirements events.create must
// enforce (spec.md §4.3): the run must not already be terminal, and if
// ExpectedOrdinal is non-zero the append is rejected unless it would land on
// that exact ordinal (optimistic concurrency for concurrent replay guards).
type AppendOptions struct {
	ExpectedOrdinal int64
}

// AppendResult is what events.create returns: the event as committed, plus
// whatever materialized entity it affected (a *Run, *Step, or *Hook,
// depending on Type), so callers never need a second round-trip.
type AppendResult struct {
	Event  Event
	Entity any
}

// EventAppender is the sole mutator of the log. Every state change in the
// system — run creation, step transitions, hook delivery — goes through
// Append so the event stream remains the single source of truth that the
// materialized Run/Step/Hook views are derived from.
type EventAppender interface {
	// Append assigns the event the next dense ordinal for runID, persists
	// it, and atomically updates the corresponding materialized view. It
	// returns a *dflowerrors.TerminalRunError if the run has already reached
	// a terminal status.
	Append(ctx context.Context, runID string, event NewEvent, opts AppendOptions) (*AppendResult, error)
}

// Page bounds a paginated query. Limit <= 0 means "backend default".
type Page struct {
	Limit  int
	Offset int
}

// EventReader is the read side of the log. Events come back with Data as
// stored (codec-framed, possibly encrypted); these methods take no option
// to decode Data or to leave it out, so decoding is the caller's job.
type EventReader interface {
	// ListEvents returns runID's events in ordinal order.
	ListEvents(ctx context.Context, runID string, page Page) ([]Event, error)

	// ListByCorrelationID returns the events sharing a correlation id within
	// a run, in ordinal order — the sequence the replay engine folds to
	// decide whether a capability invocation already has a resolved outcome.
	ListByCorrelationID(ctx context.Context, runID, correlationID string) ([]Event, error)
}

// RunStore is the minimal run-view contract: get the current materialized
// state of a run. Runs are only ever created and updated via Append; there
// is deliberately no CreateRun/UpdateRun here.
type RunStore interface {
	GetRun(ctx context.Context, runID string) (*Run, error)
}

// RunLister is an optional extension for operator tooling (dflowctl) that
// needs to enumerate runs rather than look one up by id.
type RunLister interface {
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Status       RunStatus
	WorkflowName string
	Page         Page
}

// StepStore is the minimal step-view contract.
type StepStore interface {
	GetStep(ctx context.Context, runID, correlationID string) (*Step, error)
	ListSteps(ctx context.Context, runID string) ([]*Step, error)
}

// HookStore is the minimal hook-view contract. GetHookByToken is the lookup
// the inbound webhook handler performs on every request, so backends are
// expected to index it directly rather than scan.
type HookStore interface {
	GetHook(ctx context.Context, runID, correlationID string) (*Hook, error)
	GetHookByToken(ctx context.Context, token string) (*Hook, error)
}

// Store composes every segregated contract into the full storage backend
// that the scheduler and replay engine are built against. Backends (memory,
// sqlite) implement all of it; callers that only need a slice — e.g. a
// reporting job that only lists runs — can depend on the narrower
// interfaces instead.
type Store interface {
	EventAppender
	EventReader
	RunStore
	RunLister
	StepStore
	HookStore
	io.Closer
}
