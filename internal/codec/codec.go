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
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

// Codec encodes and decodes values through the framed wire format,
// dispatching extensibility hooks (reducers on encode, revivers on decode)
// for the capability-bearing value kinds: streams, hooks, step references,
// and registered user classes.
type Codec struct {
	reducers []Reducer
	revivers map[string]Reviver
}

// New returns a Codec with the built-in reducers/revivers registered
// (stream, hook, step-reference). User classes are added per codec with
// RegisterUserClass. Callers layer their own reducers/revivers on top with
// RegisterReducer/RegisterReviver.
func New() *Codec {
	c := &Codec{revivers: make(map[string]Reviver)}
	registerBuiltins(c)
	return c
}

// RegisterReducer adds a reducer checked before the built-ins, so an
// application can intercept a value kind the built-ins would otherwise
// handle (or add one of its own).
func (c *Codec) RegisterReducer(r Reducer) {
	c.reducers = append([]Reducer{r}, c.reducers...)
}

// RegisterReviver overrides (or adds) the reviver for kindName. Overrides
// registered this way take precedence over built-ins because they replace
// the map entry built-ins installed at New.
func (c *Codec) RegisterReviver(kindName string, r Reviver) {
	c.revivers[kindName] = r
}

// RegisterUserClass wires up both the reducer and the reviver for a user
// class: encode reduces instances to an OrderedMap of their fields via
// marshal, decode calls construct with that representation.
func (c *Codec) RegisterUserClass(classID string, marshal func(UserClass) (*OrderedMap, error), construct UserClassConstructor) {
	c.reducers = append(c.reducers, func(v any) (any, string, bool) {
		uc, ok := v.(UserClass)
		if !ok || uc.ClassID() != classID {
			return nil, "", false
		}
		repr, err := marshal(uc)
		if err != nil {
			return nil, "", false
		}
		return repr, "class:" + classID, true
	})
	c.revivers["class:"+classID] = func(representation any) (any, error) {
		om, ok := representation.(*OrderedMap)
		if !ok {
			return nil, &dflowerrors.DecodeError{Reason: "user class " + classID + " representation is not an ordered map"}
		}
		return construct(om)
	}
}

func init() {
	gob.Register(node{})
}

// Encode serializes v to a framed, tagged byte string.
func (e *Codec) Encode(v any) ([]byte, error) {
	ctx := newEncodeCtx()
	root, err := e.encode(v, ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(string(TagFramed))
	if err := gob.NewEncoder(&buf).Encode(root); err != nil {
		return nil, &dflowerrors.DecodeError{Reason: "encoding framed payload", Cause: err}
	}
	return buf.Bytes(), nil
}

// Decode rebuilds a value from data, dispatching on its 4-byte tag. Data
// shorter than 4 bytes, or carrying an unrecognized tag that isn't valid
// legacy JSON, is a fatal decode error.
func (d *Codec) Decode(data []byte) (any, error) {
	if len(data) < tagLen {
		return nil, &dflowerrors.DecodeError{Reason: "payload shorter than the 4-byte format tag"}
	}

	tag := string(data[:tagLen])
	if tag == string(TagFramed) {
		var root node
		if err := gob.NewDecoder(bytes.NewReader(data[tagLen:])).Decode(&root); err != nil {
			return nil, &dflowerrors.DecodeError{Reason: "malformed framed payload", Cause: err}
		}
		return d.decode(root, newDecodeCtx())
	}

	if json.Valid(data) {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, &dflowerrors.DecodeError{Reason: "malformed legacy JSON payload", Cause: err}
		}
		return v, nil
	}

	return nil, &dflowerrors.DecodeError{Reason: "unrecognized format tag: " + tag}
}
