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

// Package manifest is the process-wide registry of workflow, step, and
// class constructors (spec.md §5 "Workflow/step/class registries are
// process-wide, initialised once from the manifest before the scheduler
// starts accepting work"). The scheduler looks up a run's WorkflowFunc and
// a step's Handler here by name before dispatching a queue message.
package manifest

import (
	"sync"

	"github.com/dflow-run/dflow/internal/replay"
	"github.com/dflow-run/dflow/internal/sandbox"
	"github.com/dflow-run/dflow/internal/steps"
)

// ClassConstructor builds a fresh instance of a registered orchestrator
// class — the struct-based alternative to a bare WorkflowFunc for
// orchestrators that group related workflows/steps as methods on a type.
type ClassConstructor func() any

// Registry holds every workflow, step, and class constructor known to this
// process. It is safe for concurrent use; the scheduler reads it from
// multiple worker goroutines while the owning process registers entries
// once at startup.
type Registry struct {
	mu            sync.RWMutex
	workflows     map[string]replay.WorkflowFunc
	steps         map[string]steps.Handler
	classes       map[string]ClassConstructor
	stepSequences map[string][]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		workflows:     make(map[string]replay.WorkflowFunc),
		steps:         make(map[string]steps.Handler),
		classes:       make(map[string]ClassConstructor),
		stepSequences: make(map[string][]string),
	}
}

// Register binds a workflow orchestrator function to name.
func (r *Registry) Register(workflowName string, fn replay.WorkflowFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[workflowName] = fn
}

// RegisterStep binds a step handler to name.
func (r *Registry) RegisterStep(name string, h steps.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[name] = h
}

// RegisterClass binds a class constructor to name.
func (r *Registry) RegisterClass(name string, ctor ClassConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = ctor
}

// SetStepSequence records the ordered step names workflowName is expected
// to invoke, in call order including repeats. This is optional metadata a
// workflow author declares alongside Register; compat.go uses it to detect
// when a later deployment's step sequence has diverged from a suspended
// run's history. Workflows that never call SetStepSequence are not checked.
func (r *Registry) SetStepSequence(workflowName string, stepNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepSequences[workflowName] = append([]string(nil), stepNames...)
}

// Workflow looks up a registered workflow function by name.
func (r *Registry) Workflow(name string) (replay.WorkflowFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.workflows[name]
	return fn, ok
}

// Step looks up a registered step handler by name.
func (r *Registry) Step(name string) (steps.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.steps[name]
	return h, ok
}

// Class looks up a registered class constructor by name.
func (r *Registry) Class(name string) (ClassConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.classes[name]
	return ctor, ok
}

// StepSequence returns workflowName's declared step sequence, if any.
func (r *Registry) StepSequence(workflowName string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seq, ok := r.stepSequences[workflowName]
	return seq, ok
}

// StepHandlers returns a snapshot of every registered step handler, the
// shape steps.New expects at construction time.
func (r *Registry) StepHandlers() map[string]steps.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string]steps.Handler, len(r.steps))
	for name, h := range r.steps {
		snapshot[name] = h
	}
	return snapshot
}

// expectedCorrelationIDs replays declaredSteps through the same site/counter
// derivation sandbox.Context uses, producing the correlation ids a
// replay would visit in order if the orchestrator called exactly this
// sequence of steps (see compat.go).
func expectedCorrelationIDs(runID string, declaredSteps []string) []string {
	counters := make(map[string]int, len(declaredSteps))
	ids := make([]string, len(declaredSteps))
	for i, name := range declaredSteps {
		site := "step:" + name
		n := counters[site]
		counters[site] = n + 1
		ids[i] = sandbox.CorrelationID(runID, site, uint64(n))
	}
	return ids
}
