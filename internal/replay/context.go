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

package replay

import (
	"fmt"
	"time"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
	"github.com/dflow-run/dflow/internal/sandbox"
)

// Context is the capability surface a WorkflowFunc runs against — the Go
// shape of spec.md §4.6's sandbox: step calls, hook awaits, and explicit
// waits, each identified by a correlationId derived from call site and a
// per-site counter rather than wall time.
//
// A straight-line Go function can only block on one capability at a time,
// so unlike the spec's promise-based "outstanding set of intents", Context
// always suspends with exactly one intent — the first capability the
// orchestrator can't yet resolve. This still satisfies the spec's guarantee
// (a deterministic, non-empty intent set on suspension); concurrent
// multi-capability awaits would need a goroutine-fan-out orchestrator
// pushing onto a shared intent slice before a final barrier suspend, which
// no seed scenario in spec.md §8 requires.
type Context struct {
	engine       *Engine
	runID        string
	index        map[string][]eventlog.Event
	globals      *sandbox.Globals
	siteCounters map[string]int
}

// Globals exposes this replay's scoped capability-constructor bag.
func (c *Context) Globals() *sandbox.Globals { return c.globals }

func (c *Context) nextCorrelationID(site string) string {
	n := c.siteCounters[site]
	c.siteCounters[site] = n + 1
	return sandbox.CorrelationID(c.runID, site, uint64(n))
}

func (c *Context) suspend(intent sandbox.Intent) {
	(&sandbox.Suspension{Intents: []sandbox.Intent{intent}, Global: c.globals}).Panic()
}

// Step invokes a named step capability (spec.md §4.7 step 3, "Step call").
// A terminal outcome (step_completed/step_failed) can appear anywhere in
// cid's event slice after step_started/step_retrying, so the whole slice is
// scanned for a terminal event before deciding whether to suspend — any
// earlier suspend-on-sight would panic on step_started and never see the
// step_completed/step_failed that follows it in the log.
func (c *Context) Step(name string, args any) (any, error) {
	cid := c.nextCorrelationID("step:" + name)
	inFlight := false
	for _, ev := range c.index[cid] {
		switch ev.Type {
		case eventlog.EventStepCompleted:
			return c.engine.decodeValue(c.runID, ev.Data)
		case eventlog.EventStepFailed:
			msg, err := c.engine.decodeValue(c.runID, ev.Data)
			if err != nil {
				return nil, err
			}
			return nil, &dflowerrors.RuntimeError{Message: fmt.Sprint(msg)}
		case eventlog.EventStepStarted, eventlog.EventStepRetrying:
			inFlight = true
		}
	}
	if inFlight {
		c.suspend(sandbox.Intent{Type: sandbox.IntentStep, CorrelationID: cid})
	}
	c.suspend(sandbox.Intent{Type: sandbox.IntentStep, CorrelationID: cid, Name: name, Args: args})
	panic("unreachable")
}

// Hook awaits a named hook capability (spec.md §4.7 step 3, "Hook await").
func (c *Context) Hook(name string) (any, error) {
	cid := c.nextCorrelationID("hook:" + name)
	for _, ev := range c.index[cid] {
		if ev.Type == eventlog.EventHookReceived {
			return c.engine.decodeValue(c.runID, ev.Data)
		}
	}
	c.suspend(sandbox.Intent{Type: sandbox.IntentHook, CorrelationID: cid, Name: name})
	panic("unreachable")
}

// Wait requests an explicit delay capability (spec.md §4.7 step 3,
// "Explicit wait"). delay is only meaningful the first time this site is
// reached — once wait_created exists, the lifetime manager owns when it
// next fires.
func (c *Context) Wait(name string, delay time.Duration) error {
	cid := c.nextCorrelationID("wait:" + name)
	for _, ev := range c.index[cid] {
		if ev.Type == eventlog.EventWaitExpired {
			return nil
		}
	}
	c.suspend(sandbox.Intent{Type: sandbox.IntentWait, CorrelationID: cid, Name: name, Args: delay})
	panic("unreachable")
}
