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

// Package config loads the per-deployment environment table (spec.md §6):
// the deployment's encryption key material, its project/deployment
// identifiers, which storage/queue/stream implementation to run against,
// and the queue-lifetime overrides, from YAML with environment-variable
// overrides layered on top.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

// World selects which storage/queue/stream implementation a deployment runs
// against (spec.md §6 "targetWorld").
type World string

const (
	WorldMemory World = "memory"
	WorldSQLite World = "sqlite"
)

const (
	defaultQueueMessageLifetime = 24 * time.Hour
	defaultQueueLifetimeBuffer  = 1 * time.Hour
	defaultWorkerCount          = 4
	defaultVisibility           = 30 * time.Second
	defaultLogLevel             = "info"
	defaultLogFormat            = "json"
)

// Config is a single deployment's full configuration.
type Config struct {
	Deployment DeploymentConfig `yaml:"deployment"`
	Storage    StorageConfig    `yaml:"storage"`
	Queue      QueueConfig      `yaml:"queue"`
	Log        LogConfig        `yaml:"log"`
}

// DeploymentConfig is spec.md §6's deployment identity and key material.
type DeploymentConfig struct {
	// Key is the base64-encoded 32-byte deployment key HKDF derives every
	// run's encryption key from. Required; see crypto.NewKeyMaterial.
	Key string `yaml:"key"`
	// ProjectID scopes key derivation and is carried on every run.
	ProjectID string `yaml:"project_id"`
	// DeploymentID routes queue messages to this deployment's workers.
	DeploymentID string `yaml:"deployment_id"`
	// TargetWorld selects the storage/queue/stream implementation.
	TargetWorld World `yaml:"target_world,omitempty"`
}

// StorageConfig configures the event-log backend TargetWorld selects. Only
// consulted when TargetWorld is WorldSQLite; WorldMemory ignores it.
type StorageConfig struct {
	// Path is the sqlite database file (internal/eventlog/sqlite.Config.Path).
	Path string `yaml:"path,omitempty"`
	// WAL enables Write-Ahead Logging for concurrent readers.
	WAL bool `yaml:"wal,omitempty"`
}

// QueueConfig overrides the queue-lifetime manager's bounds (spec.md §4.4)
// and sizes the scheduler's worker pools (spec.md §4.10).
type QueueConfig struct {
	// MessageLifetime is L, the longest a message may go undelivered.
	MessageLifetime time.Duration `yaml:"message_lifetime,omitempty"`
	// LifetimeBuffer is B, the safety margin kept under L.
	LifetimeBuffer time.Duration `yaml:"lifetime_buffer,omitempty"`
	// WorkerCount is how many goroutines consume each workflow/step queue.
	WorkerCount int `yaml:"worker_count,omitempty"`
	// Visibility is the timeout a worker holds a message under while
	// handling it, before the backend would consider it abandoned.
	Visibility time.Duration `yaml:"visibility,omitempty"`
}

// LogConfig is the ambient logging setup, unrelated to any spec.md table
// but carried the way every deployment needs it configured.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns a Config populated with every field the process can run
// with except the deployment identity, which has no safe default.
func Default() *Config {
	return &Config{
		Deployment: DeploymentConfig{
			TargetWorld: WorldMemory,
		},
		Storage: StorageConfig{
			Path: "dflow.db",
			WAL:  true,
		},
		Queue: QueueConfig{
			MessageLifetime: defaultQueueMessageLifetime,
			LifetimeBuffer:  defaultQueueLifetimeBuffer,
			WorkerCount:     defaultWorkerCount,
			Visibility:      defaultVisibility,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// Load builds a Config starting from Default, layering a YAML file (if
// configPath is non-empty) and then DFLOW_* environment overrides on top,
// and finally validating the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory for %s: %w", path, err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("DFLOW_DEPLOYMENT_KEY"); val != "" {
		c.Deployment.Key = val
	}
	if val := os.Getenv("DFLOW_PROJECT_ID"); val != "" {
		c.Deployment.ProjectID = val
	}
	if val := os.Getenv("DFLOW_DEPLOYMENT_ID"); val != "" {
		c.Deployment.DeploymentID = val
	}
	if val := os.Getenv("DFLOW_TARGET_WORLD"); val != "" {
		c.Deployment.TargetWorld = World(val)
	}
	if val := os.Getenv("DFLOW_STORAGE_PATH"); val != "" {
		c.Storage.Path = val
	}
	if val := os.Getenv("DFLOW_QUEUE_MESSAGE_LIFETIME"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Queue.MessageLifetime = d
		}
	}
	if val := os.Getenv("DFLOW_QUEUE_LIFETIME_BUFFER"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Queue.LifetimeBuffer = d
		}
	}
	if val := os.Getenv("DFLOW_QUEUE_WORKER_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Queue.WorkerCount = n
		}
	}
	if val := os.Getenv("DFLOW_QUEUE_VISIBILITY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Queue.Visibility = d
		}
	}
	if val := os.Getenv("DFLOW_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("DFLOW_LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// DecodeKey base64-decodes Deployment.Key into the raw 32-byte material
// crypto.NewKeyMaterial expects. Callers should only call this after
// Validate has succeeded.
func (c *Config) DecodeKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.Deployment.Key)
	if err != nil {
		return nil, &dflowerrors.ValidationError{Field: "deployment.key", Message: "must be base64-encoded: " + err.Error()}
	}
	return key, nil
}
