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

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/queue"
	"github.com/dflow-run/dflow/internal/queue/memory"
)

func TestEnqueueReceiveDelete(t *testing.T) {
	q := memory.New()
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := q.Enqueue(ctx, "workflows", []byte("payload"), queue.EnqueueOptions{})
	require.NoError(t, err)

	msg, err := q.Receive(ctx, "workflows", time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), msg.Payload)
	require.Equal(t, 1, msg.Attempt)

	require.NoError(t, q.Delete(ctx, msg.ReceiptHandle))
}

func TestDepthCountsOnlyVisibleMessages(t *testing.T) {
	q := memory.New()
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := q.Enqueue(ctx, "steps", []byte("a"), queue.EnqueueOptions{})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "steps", []byte("b"), queue.EnqueueOptions{})
	require.NoError(t, err)

	depth, err := q.Depth(ctx, "steps")
	require.NoError(t, err)
	require.Equal(t, 2, depth)

	msg, err := q.Receive(ctx, "steps", time.Minute)
	require.NoError(t, err)

	depth, err = q.Depth(ctx, "steps")
	require.NoError(t, err)
	require.Equal(t, 1, depth, "the in-flight message should not count as visible")

	require.NoError(t, q.Delete(ctx, msg.ReceiptHandle))
	depth, err = q.Depth(ctx, "other-queue")
	require.NoError(t, err)
	require.Equal(t, 0, depth)
}

func TestMessageMetadataReflectsDeliveryState(t *testing.T) {
	q := memory.New()
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := q.Enqueue(ctx, "steps", []byte("a"), queue.EnqueueOptions{})
	require.NoError(t, err)

	msg, err := q.Receive(ctx, "steps", time.Minute)
	require.NoError(t, err)

	meta := msg.Metadata()
	require.Equal(t, 1, meta.DeliveryCount)
	require.Equal(t, msg.ReceiptHandle, meta.ReceiptHandle)
	require.WithinDuration(t, msg.EnqueuedAt, meta.CreatedAt, 0)
}

func TestInvisibleMessageIsNotRedelivered(t *testing.T) {
	q := memory.New()
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := q.Enqueue(context.Background(), "workflows", []byte("payload"), queue.EnqueueOptions{})
	require.NoError(t, err)

	_, err = q.Receive(context.Background(), "workflows", time.Hour)
	require.NoError(t, err)

	_, err = q.Receive(ctx, "workflows", time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIdempotentEnqueueReturnsSameID(t *testing.T) {
	q := memory.New()
	defer q.Close()
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "workflows", []byte("a"), queue.EnqueueOptions{IdempotencyKey: "key_1"})
	require.NoError(t, err)

	second, err := q.Enqueue(ctx, "workflows", []byte("b"), queue.EnqueueOptions{IdempotencyKey: "key_1"})
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestChangeVisibilityExtendsInvisibility(t *testing.T) {
	q := memory.New()
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "workflows", []byte("payload"), queue.EnqueueOptions{})
	require.NoError(t, err)
	msg, err := q.Receive(ctx, "workflows", 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, q.ChangeVisibility(ctx, msg.ReceiptHandle, time.Hour))

	shortCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = q.Receive(shortCtx, "workflows", time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
