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

package shared

import (
	"encoding/json"
	"os"
)

// JSONResponse is the base envelope every --json command response embeds,
// grounded on internal/commands/shared's JSONResponse.
type JSONResponse struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// EmitJSON marshals response to indented JSON on stdout.
func EmitJSON(response any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// JSONErrorResponse is what EmitJSONError sends when a command fails under
// --json, so scripts parsing output always see the same envelope shape
// whether a command succeeded or not.
type JSONErrorResponse struct {
	JSONResponse
	Error string `json:"error"`
}

// EmitJSONError emits a failure envelope for command.
func EmitJSONError(command string, err error) error {
	return EmitJSON(JSONErrorResponse{
		JSONResponse: JSONResponse{Command: command, Success: false},
		Error:        err.Error(),
	})
}
