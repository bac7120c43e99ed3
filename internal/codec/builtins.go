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
	"strings"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

const (
	kindStream  = "stream"
	kindHook    = "hook"
	kindStepRef = "step_ref"
)

// registerBuiltins installs the reducers/revivers for the codec's built-in
// capability-bearing kinds: streams, hooks, and step references. User
// classes are registered per-instance via RegisterUserClass, not here.
func registerBuiltins(c *Codec) {
	c.reducers = append(c.reducers,
		func(v any) (any, string, bool) {
			s, ok := v.(StreamRef)
			if !ok {
				return nil, "", false
			}
			return &OrderedMap{Keys: []string{"stream_id", "run_id"}, Values: []any{s.StreamID, s.RunID}}, kindStream, true
		},
		func(v any) (any, string, bool) {
			h, ok := v.(HookRef)
			if !ok {
				return nil, "", false
			}
			return &OrderedMap{Keys: []string{"hook_id", "run_id", "token"}, Values: []any{h.HookID, h.RunID, h.Token}}, kindHook, true
		},
		func(v any) (any, string, bool) {
			s, ok := v.(StepRef)
			if !ok {
				return nil, "", false
			}
			return &OrderedMap{Keys: []string{"correlation_id", "run_id"}, Values: []any{s.CorrelationID, s.RunID}}, kindStepRef, true
		},
	)

	c.revivers[kindStream] = func(repr any) (any, error) {
		om, err := asOrderedMap(repr, "stream_id", "run_id")
		if err != nil {
			return nil, err
		}
		return StreamRef{StreamID: om.Values[0].(string), RunID: om.Values[1].(string)}, nil
	}
	c.revivers[kindHook] = func(repr any) (any, error) {
		om, err := asOrderedMap(repr, "hook_id", "run_id", "token")
		if err != nil {
			return nil, err
		}
		return HookRef{HookID: om.Values[0].(string), RunID: om.Values[1].(string), Token: om.Values[2].(string)}, nil
	}
	c.revivers[kindStepRef] = func(repr any) (any, error) {
		om, err := asOrderedMap(repr, "correlation_id", "run_id")
		if err != nil {
			return nil, err
		}
		return StepRef{CorrelationID: om.Values[0].(string), RunID: om.Values[1].(string)}, nil
	}
}

func asOrderedMap(v any, wantKeys ...string) (*OrderedMap, error) {
	om, ok := v.(*OrderedMap)
	if !ok || len(om.Keys) != len(wantKeys) {
		return nil, newShapeError(wantKeys)
	}
	for i, k := range wantKeys {
		if om.Keys[i] != k {
			return nil, newShapeError(wantKeys)
		}
	}
	return om, nil
}

func newShapeError(wantKeys []string) error {
	return &dflowerrors.DecodeError{Reason: "representation does not match expected shape [" + strings.Join(wantKeys, ", ") + "]"}
}
