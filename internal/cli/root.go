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

// Package cli builds the dflowctl root command, grounded on the teacher's
// internal/cli/root.go: a thin wrapper binding shared's persistent flags
// and delegating exit handling to shared.HandleExitError.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dflow-run/dflow/internal/cli/shared"
)

// NewRootCommand creates the root dflowctl command. Callers add the
// run/hook/queue subcommands via cmd.AddCommand before calling Execute.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dflowctl",
		Short: "dflowctl - durable workflow run inspection and control",
		Long: `dflowctl inspects and controls runs of a dflow deployment: listing
and fetching run state, resuming suspended hooks, and inspecting queue depth.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	jsonOut, verbose, configPath := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVar(jsonOut, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().StringVar(configPath, "config", "", "Path to config file")

	return cmd
}

// HandleExitError handles exit errors with proper exit codes.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
