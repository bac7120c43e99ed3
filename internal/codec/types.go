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

// Package codec implements the framed, versioned serialization format used
// for step inputs/outputs, hook payloads, and anything else persisted in the
// event log: encode to a 4-byte-tagged byte string, decode by dispatching on
// that tag (spec.md §4.1).
package codec

import (
	"math/big"
	"regexp"
	"time"
)

// Tag is the 4-byte ASCII format discriminator prefixing every encoded
// value.
type Tag string

const (
	TagFramed    Tag = "devl" // versioned framed payload produced by this package
	TagEncrypted Tag = "encr" // encrypted wrapper over a framed payload (internal/crypto)
	TagLegacy    Tag = "lgcy" // synthetic tag for legacy non-framed JSON accepted on decode only
)

const tagLen = 4

// OrderedMap preserves key insertion order, unlike a plain Go map. Use this
// when encoding a value that must round-trip its key order.
type OrderedMap struct {
	Keys   []string
	Values []any
}

// Set represents an unordered collection with set semantics at the value
// level; order is not meaningful, though the codec carries the items in
// slice order.
type Set []any

// Regex carries a regular expression's source and flags through the codec.
// regexp.Regexp itself isn't a plain value kind (it holds compiled state),
// so this is the representation that gets reduced to/from it.
type Regex struct {
	Source string
	Flags  string
}

// Compile returns the compiled regexp.Regexp for r.
func (r Regex) Compile() (*regexp.Regexp, error) {
	pattern := r.Source
	if r.Flags != "" {
		pattern = "(?" + r.Flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// StreamRef is the reducer representation of a named chunked byte stream
// (internal/stream addresses streams by name and run id), identifying it
// without embedding its contents.
type StreamRef struct {
	StreamID string
	RunID    string
}

// HookRef is the reducer representation of an awaited hook.
type HookRef struct {
	HookID string
	RunID  string
	Token  string
}

// StepRef is the reducer representation of a reference to another step's
// eventual result, used when one step's input closes over another step's
// correlation id rather than its resolved value.
type StepRef struct {
	CorrelationID string
	RunID         string
}

// UserClass is implemented by application types that want identity-
// preserving, class-tagged serialization instead of being flattened to a
// plain record.
type UserClass interface {
	// ClassID returns the stable identifier the codec uses to find the
	// matching constructor on decode. It must never change once values of
	// this class have been persisted.
	ClassID() string
}

// UserClassConstructor rebuilds a value of a registered class from its
// reduced representation (typically an OrderedMap of its fields).
type UserClassConstructor func(representation any) (UserClass, error)

// Reducer replaces a value with a structural representation during encode,
// tagged with the registered kind name a matching Reviver decodes it with.
// ok is false when v isn't of the kind this reducer handles, in which case
// the encoder tries the next reducer.
type Reducer func(v any) (representation any, kindName string, ok bool)

// Reviver rebuilds a typed value from its representation during decode.
type Reviver func(representation any) (any, error)

// time.Time and *big.Int are recognized directly by Go type in encodeValue,
// not via the reducer table, since they're part of the closed value-kind
// set rather than extensible.
var (
	_ = time.Time{}
	_ = big.Int{}
)
