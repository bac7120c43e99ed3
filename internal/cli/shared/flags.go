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

// Package shared holds the global flag state, JSON output envelope, and
// exit-code handling cmd/dflowctl's command packages share, grounded on
// internal/commands/shared's equivalents.
package shared

// Global flag values, set by the root command's persistent flags and read
// by every command package without threading them through call signatures.
var (
	jsonFlag    bool
	verboseFlag bool
	configFlag  string
)

// RegisterFlagPointers returns pointers for the root command to bind its
// persistent flags against.
func RegisterFlagPointers() (jsonOut, verbose *bool, configPath *string) {
	return &jsonFlag, &verboseFlag, &configFlag
}

// GetJSON reports whether --json was set.
func GetJSON() bool { return jsonFlag }

// GetVerbose reports whether --verbose was set.
func GetVerbose() bool { return verboseFlag }

// GetConfigPath returns the --config flag's value, or "" if unset.
func GetConfigPath() string { return configFlag }
