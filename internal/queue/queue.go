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

// Package queue defines the durable message queue contract the scheduler
// consumes (spec.md §4.4): named queues, idempotent sends, and a receive/
// visibility-timeout/delete cycle general enough to realize arbitrary-length
// waits over a queue backend with a bounded message lifetime.
package queue

import (
	"context"
	"time"
)

// Message is a single delivery from a queue. ReceiptHandle identifies this
// particular delivery attempt — it changes each time the message becomes
// visible again, the way SQS-style receipt handles do, so a stale handle
// from a prior delivery can't accidentally delete or extend the current one.
type Message struct {
	ID             string
	ReceiptHandle  string
	Name           string // the queue name this message was sent to
	Payload        []byte
	DeploymentID   string
	IdempotencyKey string
	EnqueuedAt     time.Time
	Attempt        int
}

// Age reports how long ago the message was originally enqueued, the `a` the
// lifetime manager's clamp/re-enqueue decision is computed from.
func (m Message) Age() time.Duration { return time.Since(m.EnqueuedAt) }

// EnqueueOptions carries queue.opts from the contract.
type EnqueueOptions struct {
	DeploymentID string
	// IdempotencyKey, if set, makes repeated Enqueue calls with the same
	// key succeed silently without duplicating the message. Callers must
	// not depend on the returned message id when they set this.
	IdempotencyKey string
}

// Queue is the durable send/receive contract every backend implements.
// Receive/ChangeVisibility/Delete follow the visibility-timeout model (not
// destructive dequeue-on-read) because the lifetime manager in lifetime.go
// needs to extend a message's invisibility window in place.
type Queue interface {
	// Enqueue sends payload to the named queue, returning its message id.
	Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (messageID string, err error)

	// Receive blocks until a message is available on name or ctx is done,
	// returning it with a fresh ReceiptHandle and an initial visibility
	// timeout of defaultVisibility.
	Receive(ctx context.Context, name string, defaultVisibility time.Duration) (*Message, error)

	// ChangeVisibility extends (or shortens) how long the message
	// identified by receiptHandle stays invisible to other receivers.
	ChangeVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error

	// Delete removes the message identified by receiptHandle permanently;
	// the handler calls this to acknowledge.
	Delete(ctx context.Context, receiptHandle string) error

	// Close releases any resources the backend holds.
	Close() error
}

// HandlerResult is what a queue handler returns: either nothing
// (acknowledge — Delete is implied) or a requested redelivery delay.
type HandlerResult struct {
	// RequeueAfter, if non-nil, asks the lifetime manager to make this
	// message (or its successor, in the re-enqueue case) reappear after
	// that delay rather than being deleted now.
	RequeueAfter *time.Duration
}

// Handler processes one message. Returning a non-nil error leaves the
// message for natural redelivery once its visibility timeout expires,
// mirroring an unacknowledged receive.
type Handler func(ctx context.Context, msg *Message) (HandlerResult, error)
