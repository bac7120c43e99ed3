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

import (
	"math/big"
	"reflect"
	"regexp"
	"time"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

// pointerKey returns the address backing a reference-typed Go value (map,
// slice, or pointer), and whether v is such a value at all. Scalars and
// structs passed by value are never cycle targets.
func pointerKey(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Ptr:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func (c *Codec) encode(v any, ctx *encodeCtx) (node, error) {
	if key, ok := pointerKey(v); ok {
		if idx, seen := ctx.seen[key]; seen {
			return node{Kind: kindRef, Index: -1, RefIndex: idx}, nil
		}
		idx := ctx.next
		ctx.next++
		ctx.seen[key] = idx
		n, err := c.encodeValue(v, ctx)
		if err != nil {
			return node{}, err
		}
		n.Index = idx
		return n, nil
	}
	return c.encodeValue(v, ctx)
}

func (c *Codec) encodeValue(v any, ctx *encodeCtx) (node, error) {
	if v == nil {
		return node{Kind: kindNull, Index: -1}, nil
	}

	for _, reduce := range c.reducers {
		if repr, kindName, ok := reduce(v); ok {
			reprNode, err := c.encode(repr, ctx)
			if err != nil {
				return node{}, err
			}
			return node{Kind: kindReduced, Index: -1, ReducedKind: kindName, Representation: &reprNode}, nil
		}
	}

	switch x := v.(type) {
	case bool:
		return node{Kind: kindBool, Index: -1, Bool: x}, nil
	case string:
		return node{Kind: kindString, Index: -1, Str: x}, nil
	case []byte:
		return node{Kind: kindBytes, Index: -1, Bytes: x}, nil
	case *big.Int:
		return node{Kind: kindBigInt, Index: -1, BigIntText: x.Text(10)}, nil
	case time.Time:
		return node{Kind: kindDate, Index: -1, Int64: x.UTC().UnixNano()}, nil
	case Regex:
		return node{Kind: kindRegex, Index: -1, Str: x.Source, ElemType: x.Flags}, nil
	case *regexp.Regexp:
		return node{Kind: kindRegex, Index: -1, Str: x.String()}, nil
	case *OrderedMap:
		return c.encodeOrderedMap(x, ctx)
	case Set:
		return c.encodeItems(kindSetValue, []any(x), ctx)
	case []any:
		return c.encodeItems(kindSlice, x, ctx)
	case map[string]any:
		return c.encodeRecord(x, ctx)
	}

	if n, ok, err := c.encodeTypedArray(v); ok || err != nil {
		return n, err
	}
	if n, ok, err := c.encodeInteger(v); ok || err != nil {
		return n, err
	}
	if n, ok := c.encodeFloat(v); ok {
		return n, nil
	}

	return node{}, &dflowerrors.NonSerializableError{Kind: reflect.TypeOf(v).String()}
}

func (c *Codec) encodeOrderedMap(m *OrderedMap, ctx *encodeCtx) (node, error) {
	values := make([]node, len(m.Values))
	for i, v := range m.Values {
		n, err := c.encode(v, ctx)
		if err != nil {
			return node{}, err
		}
		values[i] = n
	}
	return node{Kind: kindOrderedMap, Keys: append([]string(nil), m.Keys...), Values: values}, nil
}

func (c *Codec) encodeRecord(m map[string]any, ctx *encodeCtx) (node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	values := make([]node, len(keys))
	for i, k := range keys {
		n, err := c.encode(m[k], ctx)
		if err != nil {
			return node{}, err
		}
		values[i] = n
	}
	return node{Kind: kindRecord, Keys: keys, Values: values}, nil
}

func (c *Codec) encodeItems(k kind, items []any, ctx *encodeCtx) (node, error) {
	out := make([]node, len(items))
	for i, v := range items {
		n, err := c.encode(v, ctx)
		if err != nil {
			return node{}, err
		}
		out[i] = n
	}
	return node{Kind: k, Items: out}, nil
}

func (c *Codec) encodeInteger(v any) (node, bool, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return node{Kind: kindInt64, Index: -1, Int64: rv.Int()}, true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > (1<<63 - 1) {
			return node{Kind: kindBigInt, Index: -1, BigIntText: new(big.Int).SetUint64(u).Text(10)}, true, nil
		}
		return node{Kind: kindInt64, Index: -1, Int64: int64(u)}, true, nil
	default:
		return node{}, false, nil
	}
}

func (c *Codec) encodeFloat(v any) (node, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return node{Kind: kindFloat64, Index: -1, Float64: rv.Float()}, true
	default:
		return node{}, false
	}
}

// typedArrayKinds are the fixed-width numeric slice types treated as typed
// arrays rather than generic sequences. The element type name is recorded
// in ElemType, but elements travel as int64 or float64 and decode returns
// []int64 or []float64; the original element width is not restored.
var typedArrayKinds = map[reflect.Kind]string{
	reflect.Int8: "int8", reflect.Int16: "int16", reflect.Int32: "int32", reflect.Int64: "int64",
	reflect.Uint8: "uint8", reflect.Uint16: "uint16", reflect.Uint32: "uint32", reflect.Uint64: "uint64",
	reflect.Float32: "float32", reflect.Float64: "float64",
}

func (c *Codec) encodeTypedArray(v any) (node, bool, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return node{}, false, nil
	}
	elemKind := rv.Type().Elem().Kind()
	name, ok := typedArrayKinds[elemKind]
	if !ok || elemKind == reflect.Uint8 { // []byte already handled above
		return node{}, false, nil
	}
	items := make([]node, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		switch {
		case elem.CanFloat():
			items[i] = node{Kind: kindFloat64, Index: -1, Float64: elem.Float()}
		case elem.CanInt():
			items[i] = node{Kind: kindInt64, Index: -1, Int64: elem.Int()}
		case elem.CanUint():
			items[i] = node{Kind: kindInt64, Index: -1, Int64: int64(elem.Uint())}
		}
	}
	return node{Kind: kindTypedArray, ElemType: name, Items: items}, true, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
