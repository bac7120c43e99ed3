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

// Package run implements the dflowctl "run" command group, grounded on the
// teacher's internal/commands/run/command.go cobra.Command pattern
// (flag closures declared before the cmd literal, RunE dispatching to a
// private helper per subcommand).
package run

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dflow-run/dflow/internal/cli/shared"
	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
)

// NewCommand creates the run command group against store.
func NewCommand(store eventlog.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect workflow runs",
	}
	cmd.AddCommand(newListCommand(store), newGetCommand(store))
	return cmd
}

func newListCommand(store eventlog.Store) *cobra.Command {
	var (
		status       string
		workflowName string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, optionally filtered by status or workflow name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := store.ListRuns(cmd.Context(), eventlog.RunFilter{
				Status:       eventlog.RunStatus(status),
				WorkflowName: workflowName,
				Page:         eventlog.Page{Limit: limit},
			})
			if err != nil {
				return emitError("run list", err)
			}
			if shared.GetJSON() {
				return shared.EmitJSON(struct {
					shared.JSONResponse
					Runs []*eventlog.Run `json:"runs"`
				}{
					JSONResponse: shared.JSONResponse{Command: "run list", Success: true},
					Runs:         runs,
				})
			}
			for _, r := range runs {
				fmt.Printf("%s\t%s\t%s\n", r.RunID, r.WorkflowName, r.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by run status")
	cmd.Flags().StringVar(&workflowName, "workflow", "", "Filter by workflow name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of runs to return (0 = backend default)")
	return cmd
}

func newGetCommand(store eventlog.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Fetch a single run's materialized state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				if dflowerrors.IsNotFound(err) {
					return emitError("run get", shared.NewNotFoundError("run not found: "+args[0], err))
				}
				return emitError("run get", err)
			}
			if shared.GetJSON() {
				return shared.EmitJSON(struct {
					shared.JSONResponse
					Run *eventlog.Run `json:"run"`
				}{
					JSONResponse: shared.JSONResponse{Command: "run get", Success: true},
					Run:          run,
				})
			}
			fmt.Printf("run:      %s\n", run.RunID)
			fmt.Printf("workflow: %s\n", run.WorkflowName)
			fmt.Printf("status:   %s\n", run.Status)
			if len(run.Error) > 0 {
				fmt.Printf("error:    %d bytes (run with --json to inspect)\n", len(run.Error))
			}
			return nil
		},
	}
	return cmd
}

// emitError prints or emits err as appropriate for --json, returning a
// *shared.ExitError so the root command exits with the right code.
func emitError(command string, err error) error {
	if shared.GetJSON() {
		if jsonErr := shared.EmitJSONError(command, err); jsonErr != nil {
			return jsonErr
		}
	}
	var exitErr *shared.ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return shared.NewInvalidInputError(command+" failed", err)
}
