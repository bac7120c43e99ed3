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

// Package sdk is the orchestrator-facing API: the generic, typed surface
// workflow and step authors import, built on top of internal/replay's
// any-typed Context, internal/manifest's registry, and internal/hooks'
// resume path. Grounded on the teacher's workflow-authoring ergonomics
// (pkg/workflow's typed step/tool helpers layered over an any-typed
// executor) adapted to this module's replay/suspension model instead of
// the teacher's LLM-step execution model.
package sdk

import (
	"fmt"
	"time"

	"github.com/dflow-run/dflow/internal/replay"
)

// Context is the capability surface a workflow function runs against.
// It is internal/replay.Context verbatim — workflow authors never
// construct one themselves, the engine supplies it — aliased here so
// orchestrator code only ever imports this package, not internal/replay.
type Context = replay.Context

// Step invokes the step registered as name with typed args A, returning
// its typed result R once the event log holds a resolved outcome for this
// call site. It panics via Context's suspension mechanism (caught by the
// replay engine, never by orchestrator code) if the outcome isn't known
// yet — the same as the untyped Context.Step.
func Step[A, R any](ctx *Context, name string, args A) (R, error) {
	var zero R
	result, err := ctx.Step(name, args)
	if err != nil {
		return zero, err
	}
	return assert[R](result)
}

// Hook awaits the hook registered as name, returning its typed payload R
// once resumed.
func Hook[R any](ctx *Context, name string) (R, error) {
	var zero R
	result, err := ctx.Hook(name)
	if err != nil {
		return zero, err
	}
	return assert[R](result)
}

// Wait suspends the orchestrator for delay the first time this call site
// is reached, resolving once the event log records the wait's expiry.
func Wait(ctx *Context, name string, delay time.Duration) error {
	return ctx.Wait(name, delay)
}

func assert[R any](v any) (R, error) {
	typed, ok := v.(R)
	if !ok {
		var zero R
		return zero, fmt.Errorf("sdk: capability result is %T, not %T", v, zero)
	}
	return typed, nil
}
