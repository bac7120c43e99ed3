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

package sandbox_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dflow-run/dflow/internal/sandbox"
)

func TestClockIsFixedForLifetimeOfReplay(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := sandbox.NewClock(fixed)
	require.Equal(t, fixed, c.Now())
	require.Equal(t, fixed, c.Now())
}

func TestIDSequenceIsDeterministicForSameRun(t *testing.T) {
	a := sandbox.NewIDSequence("run_1")
	b := sandbox.NewIDSequence("run_1")

	require.Equal(t, a.Next(), b.Next())
	require.Equal(t, a.Next(), b.Next())
}

func TestIDSequenceDiffersAcrossRuns(t *testing.T) {
	a := sandbox.NewIDSequence("run_1")
	b := sandbox.NewIDSequence("run_2")
	require.NotEqual(t, a.Next(), b.Next())
}

func TestCorrelationIDIsStableForSameInputs(t *testing.T) {
	id1 := sandbox.CorrelationID("run_1", "sendEmail", 3)
	id2 := sandbox.CorrelationID("run_1", "sendEmail", 3)
	require.Equal(t, id1, id2)

	id3 := sandbox.CorrelationID("run_1", "sendEmail", 4)
	require.NotEqual(t, id1, id3)
}

func TestSuspensionRecoverReportsSuspension(t *testing.T) {
	g := sandbox.NewGlobals(sandbox.NewClock(time.Now()), sandbox.NewIDSequence("run_1"))

	run := func() (susp *sandbox.Suspension, recovered bool) {
		defer func() {
			susp, recovered = sandbox.AsSuspension(recover())
		}()
		(&sandbox.Suspension{
			Intents: []sandbox.Intent{{Type: sandbox.IntentStep, CorrelationID: "c1"}},
			Global:  g,
		}).Panic()
		return
	}

	susp, ok := run()
	require.True(t, ok)
	require.Len(t, susp.Intents, 1)
	require.Equal(t, "c1", susp.Intents[0].CorrelationID)
}

func TestSuspensionRecoverRepanicsOnOtherPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.Equal(t, "boom", r)
	}()

	func() {
		defer func() {
			sandbox.AsSuspension(recover())
		}()
		panic("boom")
	}()
}
