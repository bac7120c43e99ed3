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

package manifest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/manifest"
	"github.com/dflow-run/dflow/internal/replay"
	"github.com/dflow-run/dflow/internal/steps"
)

func TestRegisterAndLookupWorkflow(t *testing.T) {
	r := manifest.New()
	fn := func(c *replay.Context, input any) (any, error) { return input, nil }
	r.Register("my_workflow", fn)

	got, ok := r.Workflow("my_workflow")
	require.True(t, ok)
	require.NotNil(t, got)

	_, ok = r.Workflow("missing")
	require.False(t, ok)
}

func TestRegisterStepAndSnapshotHandlers(t *testing.T) {
	r := manifest.New()
	h := func(ctx context.Context, args any) (any, error) { return nil, nil }
	r.RegisterStep("send_email", h)

	got, ok := r.Step("send_email")
	require.True(t, ok)
	require.NotNil(t, got)

	snapshot := r.StepHandlers()
	require.Contains(t, snapshot, "send_email")

	var _ steps.Handler = h
}

func TestRegisterClass(t *testing.T) {
	r := manifest.New()
	type myClass struct{ name string }
	r.RegisterClass("my_class", func() any { return &myClass{name: "x"} })

	ctor, ok := r.Class("my_class")
	require.True(t, ok)
	instance := ctor().(*myClass)
	require.Equal(t, "x", instance.name)
}
