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

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/stream/memory"
)

func TestWriteAndReadFromStart(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "logs", "run_1", []byte("a")))
	require.NoError(t, s.WriteMulti(ctx, "logs", "run_1", [][]byte{[]byte("b"), []byte("c")}))

	chunks, err := s.Read(ctx, "logs", "run_1", 0)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, chunks)
}

func TestReadResumesFromStartIndex(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.WriteMulti(ctx, "logs", "run_1", [][]byte{[]byte("a"), []byte("b"), []byte("c")}))

	chunks, err := s.Read(ctx, "logs", "run_1", 2)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("c")}, chunks)
}

func TestWriteAfterCloseFails(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "logs", "run_1", []byte("a")))
	require.NoError(t, s.Close(ctx, "logs", "run_1"))

	err := s.Write(ctx, "logs", "run_1", []byte("b"))
	require.Error(t, err)
}

func TestReadUnknownStreamReturnsNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.Read(context.Background(), "missing", "run_1", 0)
	require.Error(t, err)
}

func TestListByRunIDReturnsOnlyMatchingStreams(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "logs", "run_1", []byte("a")))
	require.NoError(t, s.Write(ctx, "metrics", "run_1", []byte("b")))
	require.NoError(t, s.Write(ctx, "logs", "run_2", []byte("c")))
	require.NoError(t, s.Close(ctx, "metrics", "run_1"))

	infos, err := s.ListByRunID(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byName := map[string]bool{}
	for _, info := range infos {
		require.Equal(t, "run_1", info.RunID)
		byName[info.Name] = info.Closed
	}
	require.False(t, byName["logs"])
	require.True(t, byName["metrics"])
}

func TestWritesAreCopiedNotAliased(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	chunk := []byte("mutable")
	require.NoError(t, s.Write(ctx, "logs", "run_1", chunk))
	chunk[0] = 'X'

	got, err := s.Read(ctx, "logs", "run_1", 0)
	require.NoError(t, err)
	require.Equal(t, []byte("mutable"), got[0])
}
