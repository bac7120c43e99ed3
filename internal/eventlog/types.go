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

// Package eventlog defines the durable execution event log: the append-only
// record of everything that has happened in a run, and the materialized
// run/step/hook views derived from it (spec.md §3, §4.3).
package eventlog

import "time"

// EventType enumerates the closed set of event types the log may contain.
type EventType string

const (
	EventRunCreated    EventType = "run_created"
	EventRunStarted    EventType = "run_started"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
	EventRunCancelled  EventType = "run_cancelled"
	EventStepStarted   EventType = "step_started"
	EventStepRetrying  EventType = "step_retrying"
	EventStepCompleted EventType = "step_completed"
	EventStepFailed    EventType = "step_failed"
	EventHookCreated   EventType = "hook_created"
	EventHookReceived  EventType = "hook_received"
	EventHookDisposed  EventType = "hook_disposed"
	EventWaitCreated   EventType = "wait_created"
	EventWaitExpired   EventType = "wait_expired"
)

// SpecVersion is the current event payload schema version, stamped on every
// appended event so future decoders can negotiate format changes.
const SpecVersion = 1

// Event is a single immutable entry in a run's log.
type Event struct {
	EventID       string
	RunID         string
	Ordinal       int64 // monotonic, dense, starts at 1
	Type          EventType
	CorrelationID string // empty for run_* events
	Data          []byte // codec-framed payload; may be encrypted
	SpecVersion   int
	CreatedAt     time.Time
}

// NewEvent is the caller-supplied shape for Store.Append; the store assigns
// EventID, Ordinal, SpecVersion and CreatedAt.
type NewEvent struct {
	Type          EventType
	CorrelationID string
	Data          []byte // full codec-framed payload, opaque to this package
	Meta          EventMeta
}

// EventMeta carries the handful of fields the materialized Run/Step/Hook
// views need pulled out of Data so the store can maintain them without
// depending on the codec to decode opaque payloads. Which fields apply
// depends on Type; unused fields are left zero.
type EventMeta struct {
	WorkflowName string     // run_created
	Input        []byte     // run_created
	Output       []byte     // run_completed, step_completed
	ErrorMessage string     // run_failed, step_failed
	Attempt      int        // step_started, step_retrying
	RetryAfter   *time.Time // step_retrying
	Token        string     // hook_created
}

// RunStatus is the derived lifecycle state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether status is one of the absorbing states.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// Run is the materialized view of a workflow run.
type Run struct {
	RunID        string
	WorkflowName string
	Status       RunStatus
	Input        []byte
	Output       []byte // set only when Status == RunCompleted
	Error        []byte // set only when Status == RunFailed; never both with Output
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// StepStatus is the derived lifecycle state of a step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepCancelled StepStatus = "cancelled"
)

// Step is the materialized view of one step invocation, keyed by its
// correlation id within a run.
type Step struct {
	StepID        string
	RunID         string
	CorrelationID string
	Status        StepStatus
	Attempt       int // >= 1
	RetryAfter    *time.Time
	LastError     string
	Output        []byte
	StartedAt     time.Time
	UpdatedAt     time.Time
}

// Hook is the materialized view of an external rendezvous point.
type Hook struct {
	HookID    string
	RunID     string
	Token     string
	Disposed  bool
	CreatedAt time.Time
}
