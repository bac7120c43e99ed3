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

package stream_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/stream"
)

func TestEncodeDecodeChunksRoundTrip(t *testing.T) {
	chunks := [][]byte{[]byte("hello"), []byte(""), []byte("world!")}
	encoded := stream.EncodeChunks(chunks)
	decoded, err := stream.DecodeChunks(encoded)
	require.NoError(t, err)
	require.Equal(t, chunks, decoded)
}

func TestDecodeChunksRejectsTruncatedLengthPrefix(t *testing.T) {
	_, err := stream.DecodeChunks([]byte{0, 0, 1})
	require.Error(t, err)
}

func TestDecodeChunksRejectsOverrunLength(t *testing.T) {
	_, err := stream.DecodeChunks([]byte{0, 0, 0, 10, 'a'})
	require.Error(t, err)
}

func TestReadFrameReturnsEOFAtEnd(t *testing.T) {
	encoded := stream.EncodeChunks([][]byte{[]byte("one"), []byte("two")})
	r := bytes.NewReader(encoded)

	first, err := stream.ReadFrame(r)
	require.NoError(t, err)
	require.Equal(t, []byte("one"), first)

	second, err := stream.ReadFrame(r)
	require.NoError(t, err)
	require.Equal(t, []byte("two"), second)

	_, err = stream.ReadFrame(r)
	require.ErrorIs(t, err, io.EOF)
}
