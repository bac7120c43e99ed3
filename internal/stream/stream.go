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

// Package stream implements named, run-scoped chunked byte streams
// (spec.md §4.5): ordered writes, resumable reads by chunk index, and the
// wire framing multi-chunk writes use over a byte-oriented transport.
package stream

import "context"

// Info describes a stream without its contents, for listStreamsByRunId.
type Info struct {
	Name   string
	RunID  string
	Chunks int
	Closed bool
}

// Store is the backend contract for stream persistence.
type Store interface {
	// Write appends a single chunk to name/runID, opening the stream on
	// first write.
	Write(ctx context.Context, name, runID string, chunk []byte) error

	// WriteMulti appends chunks in order, preserving chunk boundaries —
	// equivalent to calling Write once per chunk but atomic from a
	// reader's perspective (no reader observes a partial batch).
	WriteMulti(ctx context.Context, name, runID string, chunks [][]byte) error

	// Close marks the stream closed; further writes fail.
	Close(ctx context.Context, name, runID string) error

	// Read returns the chunks from startIndex (0-based, chunk count from
	// the stream's start) onward.
	Read(ctx context.Context, name, runID string, startIndex int) ([][]byte, error)

	// ListByRunID returns every stream opened under runID.
	ListByRunID(ctx context.Context, runID string) ([]Info, error)
}
