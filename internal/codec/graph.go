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

package codec

// node is the intermediate tree the encoder builds from a Go value and the
// decoder rebuilds a Go value from. It is itself gob-encoded to produce the
// bytes that follow the format tag — gob is used purely as an envelope;
// the value-kind set, cycle handling, and reducer/reviver dispatch above
// this layer are what implements the codec's actual contract.
type node struct {
	Kind kind

	// Index is >= 0 when this node was reached through a reference-typed Go
	// value (map, slice, user class) that the encoder has not seen before;
	// it is the index later `ref` nodes use to point back here. -1 for
	// values that can never be cycle targets (scalars).
	Index int

	Bool       bool
	Int64      int64
	BigIntText string // base-10, for values outside the int64 range
	Float64    float64
	Str        string
	Bytes      []byte

	ElemType string // typed array element kind, e.g. "int32", "float64"
	Items    []node // typed array elements, slice items, set items

	Keys   []string // ordered map / record keys, parallel to Values
	Values []node

	ReducedKind    string
	Representation *node

	RefIndex int
}

type kind uint8

const (
	kindNull kind = iota
	kindBool
	kindInt64
	kindBigInt
	kindFloat64
	kindString
	kindBytes
	kindTypedArray
	kindDate
	kindRegex
	kindOrderedMap
	kindSetValue
	kindSlice
	kindRecord
	kindRef
	kindReduced
)

// encodeCtx tracks which reference-typed values have already been assigned
// an index, so repeated visits emit a ref node instead of re-walking
// (and, for true cycles, instead of recursing forever).
type encodeCtx struct {
	seen map[uintptr]int
	next int
}

func newEncodeCtx() *encodeCtx {
	return &encodeCtx{seen: make(map[uintptr]int)}
}

// decodeCtx maps a node's Index to the Go value already allocated for it, so
// a ref node encountered before its target is fully populated still
// resolves to the same shared container.
type decodeCtx struct {
	byIndex map[int]any
}

func newDecodeCtx() *decodeCtx {
	return &decodeCtx{byIndex: make(map[int]any)}
}
