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

package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/codec"
)

func roundTrip(t *testing.T, c *codec.Codec, v any) any {
	t.Helper()
	data, err := c.Encode(v)
	require.NoError(t, err)
	require.Equal(t, string(codec.TagFramed), string(data[:4]))

	got, err := c.Decode(data)
	require.NoError(t, err)
	return got
}

func TestRoundTripPrimitives(t *testing.T) {
	c := codec.New()

	require.Equal(t, nil, roundTrip(t, c, nil))
	require.Equal(t, true, roundTrip(t, c, true))
	require.Equal(t, "hello", roundTrip(t, c, "hello"))
	require.Equal(t, int64(42), roundTrip(t, c, 42))
	require.Equal(t, 3.5, roundTrip(t, c, 3.5))
	require.Equal(t, []byte("raw"), roundTrip(t, c, []byte("raw")))
}

func TestRoundTripOrderedMapPreservesKeyOrder(t *testing.T) {
	c := codec.New()
	om := &codec.OrderedMap{Keys: []string{"z", "a", "m"}, Values: []any{1, 2, 3}}

	got := roundTrip(t, c, om).(*codec.OrderedMap)
	require.Equal(t, []string{"z", "a", "m"}, got.Keys)
	require.Equal(t, []any{int64(1), int64(2), int64(3)}, got.Values)
}

func TestRoundTripCyclicSlice(t *testing.T) {
	c := codec.New()
	self := make([]any, 1)
	self[0] = self // self[0] points back to self

	got := roundTrip(t, c, self).([]any)
	require.Len(t, got, 1)
	inner, ok := got[0].([]any)
	require.True(t, ok)
	require.Same(t, &got[0], &inner[0]) // same backing slice reconstructed
}

func TestRoundTripAliasedTypedArray(t *testing.T) {
	c := codec.New()
	shared := []int32{1, 2, 3}

	got := roundTrip(t, c, []any{shared, shared}).([]any)
	require.Equal(t, []int64{1, 2, 3}, got[0])
	require.Same(t, &got[0].([]int64)[0], &got[1].([]int64)[0]) // second occurrence resolves via kindRef, not a fresh copy
}

func TestRoundTripAliasedBytes(t *testing.T) {
	c := codec.New()
	shared := []byte("raw")

	got := roundTrip(t, c, []any{shared, shared}).([]any)
	require.Equal(t, []byte("raw"), got[0])
	require.Same(t, &got[0].([]byte)[0], &got[1].([]byte)[0])
}

func TestRoundTripStreamRefBuiltinReducer(t *testing.T) {
	c := codec.New()
	ref := codec.StreamRef{StreamID: "stream_1", RunID: "run_1"}

	got := roundTrip(t, c, ref)
	require.Equal(t, ref, got)
}

func TestDecodeLegacyJSON(t *testing.T) {
	c := codec.New()
	got, err := c.Decode([]byte(`{"hello":"world"}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"hello": "world"}, got)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	c := codec.New()
	_, err := c.Decode([]byte("zzzznotjson"))
	require.Error(t, err)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	c := codec.New()
	_, err := c.Decode([]byte("ab"))
	require.Error(t, err)
}

func TestEncodeRejectsNonSerializableValue(t *testing.T) {
	c := codec.New()
	_, err := c.Encode(make(chan int))
	require.Error(t, err)
}

func TestRegisterUserClass(t *testing.T) {
	c := codec.New()
	c.RegisterUserClass("widget",
		func(v codec.UserClass) (*codec.OrderedMap, error) {
			w := v.(*widget)
			return &codec.OrderedMap{Keys: []string{"name"}, Values: []any{w.Name}}, nil
		},
		func(repr any) (codec.UserClass, error) {
			om := repr.(*codec.OrderedMap)
			return &widget{Name: om.Values[0].(string)}, nil
		},
	)

	got := roundTrip(t, c, &widget{Name: "gizmo"}).(*widget)
	require.Equal(t, "gizmo", got.Name)
}

type widget struct{ Name string }

func (w *widget) ClassID() string { return "widget" }
