// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the sync job configuration.
//
// A job is described by a single YAML file passed explicitly to the
// command. There is no environment discovery and no fallback path;
// the file is the single source of truth, which keeps every run
// deterministic and auditable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Instance identifies one platform workspace to sync against.
type Instance struct {
	// Name labels the instance in logs and output files.
	Name string `yaml:"name"`

	// BaseURL is the instance's API root, e.g. "https://flows.example.org".
	BaseURL string `yaml:"base_url"`

	// TokenFile is the path to a file holding the API token.
	// Surrounding whitespace is trimmed. Keeping the token out of
	// the config file lets the config be committed while the token
	// stays in a secrets mount.
	TokenFile string `yaml:"token_file"`
}

// Token reads and trims the instance's API token.
func (i Instance) Token() (string, error) {
	data, err := os.ReadFile(i.TokenFile)
	if err != nil {
		return "", fmt.Errorf("reading token for instance %s: %w", i.Name, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s for instance %s is empty", i.TokenFile, i.Name)
	}
	return token, nil
}

// Config describes one sync job.
type Config struct {
	// DataDir is where snapshots and exports are written.
	DataDir string `yaml:"data_dir"`

	// IdentityDB is the path to the identity table database.
	IdentityDB string `yaml:"identity_db"`

	// Instances lists the platform workspaces. Fetch jobs use the
	// first; contact sync requires exactly two.
	Instances []Instance `yaml:"instances"`

	// Flows names the flows whose runs are fetched.
	Flows []string `yaml:"flows"`

	// TestContacts lists contact UUIDs whose runs are flagged as
	// test data.
	TestContacts []string `yaml:"test_contacts"`

	// UseArchives includes cold-storage archive segments in run
	// fetches. Disable when the fetch window is entirely within the
	// platform's live retention period.
	UseArchives bool `yaml:"use_archives"`
}

// Load reads and validates a job configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{UseArchives: true}
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors, reporting all of them
// at once.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir is required"))
	}
	if len(c.Instances) == 0 {
		errs = append(errs, fmt.Errorf("at least one instance is required"))
	}
	if len(c.Instances) > 2 {
		errs = append(errs, fmt.Errorf("at most two instances are supported, got %d", len(c.Instances)))
	}

	names := make(map[string]bool, len(c.Instances))
	for i, instance := range c.Instances {
		if instance.Name == "" {
			errs = append(errs, fmt.Errorf("instances[%d]: name is required", i))
		} else if names[instance.Name] {
			errs = append(errs, fmt.Errorf("instances[%d]: duplicate name %q", i, instance.Name))
		}
		names[instance.Name] = true
		if instance.BaseURL == "" {
			errs = append(errs, fmt.Errorf("instances[%d]: base_url is required", i))
		}
		if instance.TokenFile == "" {
			errs = append(errs, fmt.Errorf("instances[%d]: token_file is required", i))
		}
	}

	return errors.Join(errs...)
}

// SnapshotPath returns the path for an instance's entity snapshot.
func (c *Config) SnapshotPath(instance, entity string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("%s-%s.jsonl.zst", instance, entity))
}

// ExportPath returns the path for an instance's run export for the
// given flow.
func (c *Config) ExportPath(instance, flow string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("%s-runs-%s.jsonl", instance, flow))
}

// DefinitionPath returns the path for an instance's archived flow
// definition export.
func (c *Config) DefinitionPath(instance, flow string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("%s-definition-%s.json", instance, flow))
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	return nil
}
