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

package stream

import (
	"encoding/binary"
	"io"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

// EncodeChunks serializes chunks over a byte-oriented transport using the
// wire layout [u32 big-endian length][bytes] repeated, so chunk boundaries
// survive a transport that only guarantees byte-stream ordering.
func EncodeChunks(chunks [][]byte) []byte {
	size := 0
	for _, c := range chunks {
		size += 4 + len(c)
	}
	out := make([]byte, 0, size)
	var lenBuf [4]byte
	for _, c := range chunks {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c)))
		out = append(out, lenBuf[:]...)
		out = append(out, c...)
	}
	return out
}

// DecodeChunks reverses EncodeChunks, returning a decode error if the
// framing is truncated or a length prefix overruns the remaining bytes.
func DecodeChunks(data []byte) ([][]byte, error) {
	var chunks [][]byte
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, &dflowerrors.DecodeError{Reason: "truncated chunk length prefix"}
		}
		length := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint64(len(data)) < uint64(length) {
			return nil, &dflowerrors.DecodeError{Reason: "chunk length exceeds remaining bytes"}
		}
		chunks = append(chunks, data[:length])
		data = data[length:]
	}
	return chunks, nil
}

// ReadFrame reads exactly one [u32 length][bytes] frame from r, for callers
// streaming chunks incrementally off a live connection rather than
// buffering the whole payload first.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &dflowerrors.DecodeError{Reason: "reading chunk length prefix", Cause: err}
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	chunk := make([]byte, length)
	if _, err := io.ReadFull(r, chunk); err != nil {
		return nil, &dflowerrors.DecodeError{Reason: "reading chunk body", Cause: err}
	}
	return chunk, nil
}
