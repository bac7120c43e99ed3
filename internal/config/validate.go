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

package config

import (
	"encoding/base64"
	"fmt"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

const deploymentKeySize = 32

// Validate checks that c is complete and internally consistent, aggregating
// every problem found rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Deployment.Key == "" {
		errs = append(errs, "deployment.key is required")
	} else if key, err := base64.StdEncoding.DecodeString(c.Deployment.Key); err != nil {
		errs = append(errs, fmt.Sprintf("deployment.key must be base64-encoded: %v", err))
	} else if len(key) != deploymentKeySize {
		errs = append(errs, fmt.Sprintf("deployment.key must decode to %d bytes, got %d", deploymentKeySize, len(key)))
	}

	if c.Deployment.ProjectID == "" {
		errs = append(errs, "deployment.project_id is required")
	}
	if c.Deployment.DeploymentID == "" {
		errs = append(errs, "deployment.deployment_id is required")
	}

	switch c.Deployment.TargetWorld {
	case WorldMemory:
	case WorldSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, "storage.path is required when deployment.target_world is sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("deployment.target_world %q is not one of: %s, %s", c.Deployment.TargetWorld, WorldMemory, WorldSQLite))
	}

	if c.Queue.MessageLifetime <= 0 {
		errs = append(errs, "queue.message_lifetime must be positive")
	}
	if c.Queue.LifetimeBuffer <= 0 {
		errs = append(errs, "queue.lifetime_buffer must be positive")
	}
	if c.Queue.LifetimeBuffer >= c.Queue.MessageLifetime {
		errs = append(errs, "queue.lifetime_buffer must be smaller than queue.message_lifetime")
	}
	if c.Queue.WorkerCount <= 0 {
		errs = append(errs, "queue.worker_count must be positive")
	}

	if len(errs) == 0 {
		return nil
	}

	msg := "invalid configuration:"
	for _, e := range errs {
		msg += "\n  - " + e
	}
	return &dflowerrors.ValidationError{Field: "config", Message: msg}
}
