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

// Package memory provides an in-memory queue.Queue with SQS-style
// visibility timeouts, used by tests and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/queue"
)

var (
	_ queue.Queue     = (*Queue)(nil)
	_ queue.Inspector = (*Queue)(nil)
)

type entry struct {
	msg           queue.Message
	visibleAt     time.Time // zero once deleted
	receiptHandle string
}

// Queue is an in-memory, priority-free FIFO implementation of queue.Queue
// with per-message visibility timeouts.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry // message id -> entry
	order   []string          // message ids in send order
	signal  chan struct{}
	closed  bool

	idempotency map[string]string // idempotency key -> message id
}

// New returns an empty in-memory queue.
func New() *Queue {
	return &Queue{
		entries:     make(map[string]*entry),
		signal:      make(chan struct{}, 1),
		idempotency: make(map[string]string),
	}
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Enqueue implements queue.Queue.
func (q *Queue) Enqueue(ctx context.Context, name string, payload []byte, opts queue.EnqueueOptions) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", &dflowerrors.ValidationError{Field: "queue", Message: "queue is closed"}
	}

	if opts.IdempotencyKey != "" {
		if existingID, ok := q.idempotency[opts.IdempotencyKey]; ok {
			return existingID, nil
		}
	}

	id := uuid.NewString()
	q.entries[id] = &entry{
		msg: queue.Message{
			ID:             id,
			Name:           name,
			Payload:        append([]byte(nil), payload...),
			DeploymentID:   opts.DeploymentID,
			IdempotencyKey: opts.IdempotencyKey,
			EnqueuedAt:     time.Now(),
		},
		visibleAt: time.Time{}, // immediately visible
	}
	q.order = append(q.order, id)
	if opts.IdempotencyKey != "" {
		q.idempotency[opts.IdempotencyKey] = id
	}
	q.wake()
	return id, nil
}

// Receive implements queue.Queue.
func (q *Queue) Receive(ctx context.Context, name string, defaultVisibility time.Duration) (*queue.Message, error) {
	for {
		if msg := q.tryReceive(name, defaultVisibility); msg != nil {
			return msg, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		case <-time.After(50 * time.Millisecond):
			// Bounded poll interval catches messages whose visibility
			// timeout lapses without a fresh Enqueue to trigger wake().
		}
	}
}

func (q *Queue) tryReceive(name string, defaultVisibility time.Duration) *queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	now := time.Now()
	for _, id := range q.order {
		e, ok := q.entries[id]
		if !ok || e.msg.Name != name {
			continue
		}
		if e.visibleAt.After(now) {
			continue
		}

		e.receiptHandle = uuid.NewString()
		e.visibleAt = now.Add(defaultVisibility)
		e.msg.Attempt++
		msg := e.msg
		msg.ReceiptHandle = e.receiptHandle
		return &msg
	}
	return nil
}

// ChangeVisibility implements queue.Queue.
func (q *Queue) ChangeVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, err := q.findByReceipt(receiptHandle)
	if err != nil {
		return err
	}
	e.visibleAt = time.Now().Add(timeout)
	return nil
}

// Delete implements queue.Queue.
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, err := q.findByReceipt(receiptHandle)
	if err != nil {
		return err
	}
	delete(q.entries, e.msg.ID)
	if e.msg.IdempotencyKey != "" {
		delete(q.idempotency, e.msg.IdempotencyKey)
	}
	return nil
}

func (q *Queue) findByReceipt(receiptHandle string) (*entry, error) {
	for _, e := range q.entries {
		if e.receiptHandle == receiptHandle {
			return e, nil
		}
	}
	return nil, &dflowerrors.NotFoundError{Resource: "message", ID: receiptHandle}
}

// Depth implements queue.Inspector: the count of name's messages currently
// visible (not held invisible by an in-flight receive).
func (q *Queue) Depth(ctx context.Context, name string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var n int
	for _, id := range q.order {
		e, ok := q.entries[id]
		if !ok || e.msg.Name != name {
			continue
		}
		if e.visibleAt.After(now) {
			continue
		}
		n++
	}
	return n, nil
}

// Close implements queue.Queue.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)
	return nil
}
