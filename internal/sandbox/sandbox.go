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

// Package sandbox provides the deterministic execution context an
// orchestrator runs inside during replay (spec.md §4.6): controlled time,
// controlled identifiers, scoped global capability constructors, no ambient
// I/O, and the Suspension control-flow signal.
package sandbox

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock returns a fixed timestamp. The sandbox never observes the wall
// clock directly — every call returns the instant the Clock was created
// with, for the duration of one replay; nothing in this package advances it.
type Clock struct {
	now time.Time
}

// NewClock fixes the sandbox clock at t for the lifetime of a replay.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the fixed instant.
func (c *Clock) Now() time.Time { return c.now }

// IDSequence generates deterministic identifiers seeded from runId plus an
// incrementing per-sequence counter, so identical inputs produce identical
// outputs on every replay (spec.md §4.6, "controlled identifiers").
type IDSequence struct {
	runID   string
	counter uint64
}

// NewIDSequence seeds an identifier sequence for one run.
func NewIDSequence(runID string) *IDSequence {
	return &IDSequence{runID: runID}
}

// Next returns the next deterministic UUID in this run's sequence.
func (s *IDSequence) Next() uuid.UUID {
	var buf [16]byte
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", s.runID, s.counter)))
	copy(buf[:], h[:16])
	s.counter++
	// Stamp the version/variant bits so the result is a valid (if
	// non-random) UUIDv4-shaped value, per uuid.NewHash's own convention.
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return uuid.Must(uuid.FromBytes(buf[:]))
}

// NextOrdinal returns the counter value the next call to Next will hash,
// without advancing it.
func (s *IDSequence) NextOrdinal() uint64 { return s.counter }

// CorrelationID derives a deterministic correlationId from a call-site tag
// (e.g. a source-level step name) and a per-site counter supplied by the
// caller, per
// spec.md §4.7 step 2 ("derived from the orchestrator's call site and an
// incrementing local counter, not from wall time").
func CorrelationID(runID, site string, counter uint64) string {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], counter)
	h := sha256.Sum256(append([]byte(runID+"|"+site+"|"), lenBuf[:]...))
	return fmt.Sprintf("%x", h[:16])
}
