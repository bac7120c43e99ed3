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

// Package memory implements an in-process stream.Store, suitable for
// single-process deployments and tests.
package memory

import (
	"context"
	"sync"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/stream"
)

type key struct {
	name  string
	runID string
}

type entry struct {
	chunks [][]byte
	closed bool
}

// Store is a mutex-guarded, in-memory stream.Store.
type Store struct {
	mu      sync.RWMutex
	streams map[key]*entry
	order   []key
}

var _ stream.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{streams: make(map[key]*entry)}
}

func (s *Store) get(k key) *entry {
	e, ok := s.streams[k]
	if !ok {
		e = &entry{}
		s.streams[k] = e
		s.order = append(s.order, k)
	}
	return e
}

// Write appends a single chunk, opening the stream on first write.
func (s *Store) Write(ctx context.Context, name, runID string, chunk []byte) error {
	return s.WriteMulti(ctx, name, runID, [][]byte{chunk})
}

// WriteMulti appends chunks in order under one lock acquisition, so a
// reader never observes a partial batch.
func (s *Store) WriteMulti(ctx context.Context, name, runID string, chunks [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(key{name, runID})
	if e.closed {
		return &dflowerrors.ValidationError{Field: "name", Message: "stream is closed"}
	}
	for _, c := range chunks {
		cp := make([]byte, len(c))
		copy(cp, c)
		e.chunks = append(e.chunks, cp)
	}
	return nil
}

// Close marks the stream closed; further writes fail.
func (s *Store) Close(ctx context.Context, name, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(key{name, runID})
	e.closed = true
	return nil
}

// Read returns the chunks from startIndex onward.
func (s *Store) Read(ctx context.Context, name, runID string, startIndex int) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.streams[key{name, runID}]
	if !ok {
		return nil, &dflowerrors.NotFoundError{Resource: "stream", ID: name}
	}
	if startIndex < 0 || startIndex > len(e.chunks) {
		return nil, &dflowerrors.ValidationError{Field: "startIndex", Message: "out of range"}
	}
	out := make([][]byte, len(e.chunks)-startIndex)
	copy(out, e.chunks[startIndex:])
	return out, nil
}

// ListByRunID returns every stream opened under runID, in write order.
func (s *Store) ListByRunID(ctx context.Context, runID string) ([]stream.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []stream.Info
	for _, k := range s.order {
		if k.runID != runID {
			continue
		}
		e := s.streams[k]
		infos = append(infos, stream.Info{
			Name:   k.name,
			RunID:  k.runID,
			Chunks: len(e.chunks),
			Closed: e.closed,
		})
	}
	return infos, nil
}
