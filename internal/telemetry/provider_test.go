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

package telemetry_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/telemetry"
)

func TestNewProviderDisabledIsUsable(t *testing.T) {
	p, err := telemetry.NewProvider(telemetry.Config{Enabled: false})
	require.NoError(t, err)

	tracer := p.Tracer("dflow.test")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "noop-span")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderEnabledBuildsRealSDK(t *testing.T) {
	p, err := telemetry.NewProvider(telemetry.Config{
		Enabled:        true,
		ServiceName:    "dflow-test",
		ServiceVersion: "0.0.0-test",
		Registerer:     prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	require.NotNil(t, p.MetricsHandler())

	tracer := p.Tracer("dflow.test")
	ctx, span := tracer.Start(context.Background(), "a-span")
	span.End()
	require.NotNil(t, ctx)

	require.NoError(t, p.Shutdown(context.Background()))
}
