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

package scheduler

import "encoding/json"

// marshalJSON/unmarshalJSON wrap the queue envelope encoding. This is a
// distinct concern from internal/codec's framed/encrypted event-log
// payloads: queue messages are a transport envelope around an already
// codec-framed+encrypted Args blob (for step messages) or plain
// identifiers (for workflow messages), so plain JSON is the right tool
// here — matching spec.md §6's JSON-shaped queue payload tables.
func marshalJSON(v any) ([]byte, error) { return json.Marshal(v) }

func unmarshalJSON(data []byte, v any) error { return json.Unmarshal(data, v) }
