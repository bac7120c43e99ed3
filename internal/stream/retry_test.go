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

package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/stream"
)

func TestRetryPolicyHonorsRetryAfter(t *testing.T) {
	p := stream.NewRetryPolicy(time.Hour, time.Hour, 3)
	require.Equal(t, 250*time.Millisecond, p.Delay(1, 250*time.Millisecond))
}

func TestRetryPolicyDelayIsCappedAtMaxDelay(t *testing.T) {
	p := stream.NewRetryPolicy(10*time.Millisecond, 40*time.Millisecond, 10)
	for attempt := 1; attempt <= 10; attempt++ {
		d := p.Delay(attempt, 0)
		require.LessOrEqual(t, d, 40*time.Millisecond)
		require.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestRetryPolicyStopsAfterMaxRetries(t *testing.T) {
	p := stream.NewRetryPolicy(time.Millisecond, time.Millisecond, 2)
	ctx := context.Background()

	ok, err := p.Wait(ctx, 1, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Wait(ctx, 2, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Wait(ctx, 3, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRetryPolicyWaitRespectsContextCancellation(t *testing.T) {
	p := stream.NewRetryPolicy(time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := p.Wait(ctx, 1, 0)
	require.Error(t, err)
	require.False(t, ok)
}
