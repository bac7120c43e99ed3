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
	"time"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

func (c *Codec) decode(n node, ctx *decodeCtx) (any, error) {
	switch n.Kind {
	case kindRef:
		v, ok := ctx.byIndex[n.RefIndex]
		if !ok {
			return nil, &dflowerrors.DecodeError{Reason: "dangling reference to an object not yet decoded"}
		}
		return v, nil

	case kindNull:
		return nil, nil
	case kindBool:
		return n.Bool, nil
	case kindInt64:
		return n.Int64, nil
	case kindBigInt:
		bi, ok := new(big.Int).SetString(n.BigIntText, 10)
		if !ok {
			return nil, &dflowerrors.DecodeError{Reason: "malformed big integer: " + n.BigIntText}
		}
		return bi, nil
	case kindFloat64:
		return n.Float64, nil
	case kindString:
		return n.Str, nil
	case kindBytes:
		if n.Index >= 0 {
			ctx.byIndex[n.Index] = n.Bytes
		}
		return n.Bytes, nil
	case kindDate:
		return time.Unix(0, n.Int64).UTC(), nil
	case kindRegex:
		return Regex{Source: n.Str, Flags: n.ElemType}, nil

	case kindTypedArray:
		return c.decodeTypedArray(n, ctx)

	case kindOrderedMap:
		return c.decodeOrderedMap(n, ctx)
	case kindSetValue:
		return c.decodeSet(n, ctx)
	case kindSlice:
		return c.decodeSlice(n, ctx)
	case kindRecord:
		return c.decodeRecord(n, ctx)

	case kindReduced:
		return c.decodeReduced(n, ctx)

	default:
		return nil, &dflowerrors.DecodeError{Reason: "unknown node kind in framed payload"}
	}
}

func (c *Codec) decodeTypedArray(n node, ctx *decodeCtx) (any, error) {
	switch n.ElemType {
	case "float32", "float64":
		out := make([]float64, len(n.Items))
		for i, item := range n.Items {
			out[i] = item.Float64
		}
		if n.Index >= 0 {
			ctx.byIndex[n.Index] = out
		}
		return out, nil
	default:
		out := make([]int64, len(n.Items))
		for i, item := range n.Items {
			out[i] = item.Int64
		}
		if n.Index >= 0 {
			ctx.byIndex[n.Index] = out
		}
		return out, nil
	}
}

func (c *Codec) decodeOrderedMap(n node, ctx *decodeCtx) (any, error) {
	om := &OrderedMap{Keys: append([]string(nil), n.Keys...), Values: make([]any, len(n.Values))}
	if n.Index >= 0 {
		ctx.byIndex[n.Index] = om
	}
	for i, vn := range n.Values {
		dv, err := c.decode(vn, ctx)
		if err != nil {
			return nil, err
		}
		om.Values[i] = dv
	}
	return om, nil
}

func (c *Codec) decodeSet(n node, ctx *decodeCtx) (any, error) {
	s := make(Set, len(n.Items))
	if n.Index >= 0 {
		ctx.byIndex[n.Index] = s
	}
	for i, item := range n.Items {
		dv, err := c.decode(item, ctx)
		if err != nil {
			return nil, err
		}
		s[i] = dv
	}
	return s, nil
}

func (c *Codec) decodeSlice(n node, ctx *decodeCtx) (any, error) {
	s := make([]any, len(n.Items))
	if n.Index >= 0 {
		ctx.byIndex[n.Index] = s
	}
	for i, item := range n.Items {
		dv, err := c.decode(item, ctx)
		if err != nil {
			return nil, err
		}
		s[i] = dv
	}
	return s, nil
}

func (c *Codec) decodeRecord(n node, ctx *decodeCtx) (any, error) {
	rec := make(map[string]any, len(n.Keys))
	if n.Index >= 0 {
		ctx.byIndex[n.Index] = rec
	}
	for i, k := range n.Keys {
		dv, err := c.decode(n.Values[i], ctx)
		if err != nil {
			return nil, err
		}
		rec[k] = dv
	}
	return rec, nil
}

// decodeReduced rebuilds a typed value via the reviver registered for the
// node's kind name, checking caller overrides before built-ins. Note that a
// user-class instance which cyclically references itself through its own
// fields cannot round-trip: the reviver only runs once the full
// representation has decoded, so there is no partially-built instance to
// register before recursing the way container kinds do.
func (c *Codec) decodeReduced(n node, ctx *decodeCtx) (any, error) {
	repr, err := c.decode(*n.Representation, ctx)
	if err != nil {
		return nil, err
	}
	revive, ok := c.revivers[n.ReducedKind]
	if !ok {
		return nil, &dflowerrors.DecodeError{Reason: "no reviver registered for kind " + n.ReducedKind}
	}
	value, err := revive(repr)
	if err != nil {
		return nil, &dflowerrors.DecodeError{Reason: "reviving kind " + n.ReducedKind, Cause: err}
	}
	if n.Index >= 0 {
		ctx.byIndex[n.Index] = value
	}
	return value, nil
}
