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

package queue

import (
	"context"
	"time"
)

// Metadata is the message metadata handlers and operators can inspect
// (spec.md §6 "Message metadata available to handlers"): how many times a
// message has been delivered, its current receipt handle, and when it was
// first enqueued. Grounded on the teacher's in-memory Job struct
// (internal/daemon/queue/queue.go), generalized from a single CreatedAt
// field to the full visibility-timeout delivery bookkeeping this queue
// contract needs.
type Metadata struct {
	DeliveryCount int
	ReceiptHandle string
	CreatedAt     time.Time
}

// Metadata extracts m's metadata view.
func (m Message) Metadata() Metadata {
	return Metadata{
		DeliveryCount: m.Attempt,
		ReceiptHandle: m.ReceiptHandle,
		CreatedAt:     m.EnqueuedAt,
	}
}

// Inspector is an optional capability a Queue backend can implement to
// report its depth without consuming a message, for operator tooling
// (cmd/dflowctl's `queue inspect`). It is not part of the core Queue
// contract: a visibility-timeout backend can always answer Enqueue/Receive/
// ChangeVisibility/Delete, but not every backend can answer "how many
// messages are currently visible" as cheaply, so callers type-assert for it
// rather than every implementation being forced to support it.
type Inspector interface {
	// Depth reports how many messages on name are currently visible
	// (excluding ones held invisible by an in-flight receive).
	Depth(ctx context.Context, name string) (int, error)
}
