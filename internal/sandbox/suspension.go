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

package sandbox

// IntentType distinguishes the three capability kinds the replay engine
// can suspend on (spec.md §4.7 step 2).
type IntentType string

const (
	IntentStep IntentType = "step"
	IntentHook IntentType = "hook"
	IntentWait IntentType = "wait"
)

// Intent is an outstanding capability request the orchestrator is blocked
// on when the sandbox suspends. CorrelationID is the key the replay engine
// uses to suppress duplicate emission across replays.
type Intent struct {
	Type          IntentType
	CorrelationID string
	Name          string // step, hook or wait name from the call site; empty when a step already in flight suspends again
	Args          any
}

// Suspension is the distinguished control-flow signal the sandbox raises
// to terminate the current replay pass once the orchestrator blocks on a
// capability that cannot yet resolve (spec.md §4.6, §4.7 step 4). It is
// not an orchestrator-visible error — the replay engine recovers it at the
// top of the replay loop via recover(), never via errors.As.
type Suspension struct {
	Intents []Intent
	Global  *Globals
}

// Panic raises s as a Go panic, the Go analogue of the spec's "distinguished
// exception kind" — recovered by the replay engine, not by orchestrator code.
func (s *Suspension) Panic() { panic(s) }

// AsSuspension interprets the value returned by a direct, in-place call to
// the builtin recover() at the top of a replay invocation:
//
//	defer func() {
//		if susp, ok := sandbox.AsSuspension(recover()); ok {
//			// handle susp
//		}
//	}()
//
// recover() only stops a panic when called directly by the deferred
// function itself, so this helper deliberately takes the already-recovered
// value rather than calling recover() on the caller's behalf. r == nil
// means there was nothing to recover. A non-nil r that isn't a *Suspension
// is a genuine orchestrator panic, not a suspension, and AsSuspension
// re-panics it so it keeps propagating.
func AsSuspension(r any) (s *Suspension, ok bool) {
	if r == nil {
		return nil, false
	}
	susp, ok := r.(*Suspension)
	if !ok {
		panic(r)
	}
	return susp, true
}
