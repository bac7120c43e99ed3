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

// Package hook implements the dflowctl "hook" command group, grounded on
// the teacher's internal/commands/run/command.go cobra.Command pattern,
// wired against hooks.Registry.ResumeHook.
package hook

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dflow-run/dflow/internal/cli/shared"
	"github.com/dflow-run/dflow/internal/hooks"
)

// NewCommand creates the hook command group against reg.
func NewCommand(reg *hooks.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Resume suspended hooks",
	}
	cmd.AddCommand(newResumeCommand(reg))
	return cmd
}

func newResumeCommand(reg *hooks.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <token> <payload>",
		Short: "Deliver payload to the hook identified by token, resuming its run",
		Long: `Resume decodes payload as JSON (falling back to the raw string if it
isn't valid JSON) and delivers it to the hook, re-enqueueing the run's
workflow so replay picks up the resolved outcome.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, rawPayload := args[0], args[1]

			var payload any
			if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
				payload = rawPayload
			}

			if err := reg.ResumeHook(cmd.Context(), token, payload); err != nil {
				if shared.GetJSON() {
					return shared.EmitJSONError("hook resume", err)
				}
				return shared.NewInvalidInputError("hook resume failed", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(shared.JSONResponse{Command: "hook resume", Success: true})
			}
			cmd.Println("hook resumed:", token)
			return nil
		},
	}
	return cmd
}
