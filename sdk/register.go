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

package sdk

import (
	"context"
	"fmt"

	"github.com/dflow-run/dflow/internal/manifest"
	"github.com/dflow-run/dflow/internal/replay"
	"github.com/dflow-run/dflow/internal/steps"
)

// RegisterWorkflow binds a typed workflow function to name on reg, the way
// a manifest.Registry.Register call does for the untyped
// replay.WorkflowFunc it actually stores. Every run of workflowName must
// have been started with an input the codec round-trips to I, or the
// orchestrator fails with a type-assertion error on its very first replay.
func RegisterWorkflow[I, O any](reg *manifest.Registry, name string, fn func(*Context, I) (O, error)) {
	reg.Register(name, func(ctx *replay.Context, input any) (any, error) {
		typedInput, err := assert[I](input)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", name, err)
		}
		return fn(ctx, typedInput)
	})
}

// RegisterStep binds a typed step handler to name on reg. Step handlers run
// outside the sandbox and may perform arbitrary I/O (spec.md §4.8); ctx
// here is a plain context.Context, not a *Context.
func RegisterStep[A, R any](reg *manifest.Registry, name string, fn func(context.Context, A) (R, error)) {
	reg.RegisterStep(name, steps.Handler(func(ctx context.Context, args any) (any, error) {
		typedArgs, err := assert[A](args)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", name, err)
		}
		return fn(ctx, typedArgs)
	}))
}
