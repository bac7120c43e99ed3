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

// Package queue implements the dflowctl "queue" command group, grounded on
// the teacher's internal/commands/run/command.go cobra.Command pattern,
// wired against queue.Inspector.
package queue

import (
	"github.com/spf13/cobra"

	"github.com/dflow-run/dflow/internal/cli/shared"
	"github.com/dflow-run/dflow/internal/queue"
)

// NewCommand creates the queue command group against q.
func NewCommand(q queue.Queue) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect queue state",
	}
	cmd.AddCommand(newInspectCommand(q))
	return cmd
}

func newInspectCommand(q queue.Queue) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <queue-name>",
		Short: "Report how many messages are currently visible on a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			inspector, ok := q.(queue.Inspector)
			if !ok {
				err := shared.NewInvalidInputError("queue inspect: depth is not supported by this backend", nil)
				if shared.GetJSON() {
					return shared.EmitJSONError("queue inspect", err)
				}
				return err
			}

			depth, err := inspector.Depth(cmd.Context(), name)
			if err != nil {
				if shared.GetJSON() {
					return shared.EmitJSONError("queue inspect", err)
				}
				return shared.NewInvalidInputError("queue inspect failed", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(struct {
					shared.JSONResponse
					Queue string `json:"queue"`
					Depth int    `json:"depth"`
				}{
					JSONResponse: shared.JSONResponse{Command: "queue inspect", Success: true},
					Queue:        name,
					Depth:        depth,
				})
			}
			cmd.Printf("%s: %d visible\n", name, depth)
			return nil
		},
	}
	return cmd
}
