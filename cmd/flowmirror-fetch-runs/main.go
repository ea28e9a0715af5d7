// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// flowmirror-fetch-runs incrementally fetches a flow's runs from one
// platform instance and exports them as provenance records.
//
// Usage:
//
//	flowmirror-fetch-runs --config <job.yaml> --flow <name> [--instance <name>]
//
// On each pass the previous export, when present, supplies the
// watermark; only runs modified since then are fetched, stitched from
// the cold-storage archives and the live store. Contact identifiers
// are pseudonymized through the identity table before anything is
// written.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/flowmirror/lib/clock"
	"github.com/bureau-foundation/flowmirror/lib/config"
	"github.com/bureau-foundation/flowmirror/lib/fetch"
	"github.com/bureau-foundation/flowmirror/lib/flowapi"
	"github.com/bureau-foundation/flowmirror/lib/identity"
	"github.com/bureau-foundation/flowmirror/lib/provenance"
	"github.com/bureau-foundation/flowmirror/lib/version"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage error")

func run() error {
	var configPath string
	var instanceName string
	var flowName string

	flagSet := pflag.NewFlagSet("flowmirror-fetch-runs", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the job config file")
	flagSet.StringVar(&instanceName, "instance", "", "instance to fetch (default: first in config)")
	flagSet.StringVar(&flowName, "flow", "", "flow whose runs to fetch")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("flowmirror-fetch-runs")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if configPath == "" || flowName == "" {
		fmt.Fprintln(os.Stderr, "--config and --flow are required")
		flagSet.Usage()
		return errUsage
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	instance, err := selectInstance(cfg, instanceName)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	client, err := newClient(instance, logger)
	if err != nil {
		return err
	}

	if cfg.IdentityDB == "" {
		return fmt.Errorf("identity_db must be set in the config to fetch runs")
	}
	ids, err := identity.Open(cfg.IdentityDB, logger)
	if err != nil {
		return err
	}
	defer ids.Close()

	flowUUID, err := client.FlowUUID(ctx, flowName)
	if err != nil {
		return fmt.Errorf("resolving flow %q: %w", flowName, err)
	}
	logger.Info("resolved flow", "flow", flowName, "uuid", flowUUID)

	// Archive the flow's current definition alongside the run export,
	// so the flow version the answers came from stays recoverable
	// after the flow is edited on the platform.
	definitions, err := client.FlowDefinitions(ctx, flowUUID)
	if err != nil {
		return err
	}
	definitionPath := cfg.DefinitionPath(instance.Name, flowName)
	if err := saveDefinition(definitionPath, definitions); err != nil {
		return err
	}
	logger.Info("flow definition archived", "path", definitionPath)

	// Recover the watermark from the previous export, if any.
	exportPath := cfg.ExportPath(instance.Name, flowName)
	previous, err := loadExport(exportPath)
	if err != nil {
		return err
	}
	window := fetch.Window{}
	if len(previous) > 0 {
		watermark, err := fetch.RunWatermark(previous, flowName)
		if err != nil {
			return fmt.Errorf("recovering watermark from %s: %w", exportPath, err)
		}
		if !watermark.IsZero() {
			window.After = watermark.Add(time.Microsecond)
		}
		logger.Info("loaded previous export",
			"path", exportPath, "records", len(previous), "watermark", watermark)
	}

	var cold fetch.ArchiveSource
	if cfg.UseArchives {
		cold = fetch.Cold{Source: client}
	}
	fetcher := fetch.New(fetch.Live{Client: client}, cold, logger)

	runs, err := fetcher.Runs(ctx, flowUUID, window, fetch.Options{IgnoreArchives: !cfg.UseArchives})
	if err != nil {
		return fmt.Errorf("fetching runs: %w", err)
	}
	contacts, err := fetcher.Contacts(ctx, fetch.Window{})
	if err != nil {
		return fmt.Errorf("fetching contacts: %w", err)
	}

	converter := &fetch.Converter{
		IDs:          ids,
		Producer:     "flowmirror-fetch-runs",
		TestContacts: cfg.TestContacts,
		Logger:       logger,
	}
	records, err := converter.ConvertRuns(ctx, runs, contacts, clock.Real().Now())
	if err != nil {
		return fmt.Errorf("converting runs: %w", err)
	}
	logger.Info("converted runs", "fetched", len(runs), "records", len(records))

	merged := fetch.CoalesceRuns(append(previous, records...),
		"run_id - "+flowName, "flowmirror-fetch-runs", clock.Real().Now())

	if err := saveExport(exportPath, merged); err != nil {
		return err
	}
	logger.Info("export written", "path", exportPath, "records", len(merged))
	return nil
}

func loadExport(path string) ([]*provenance.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening previous export: %w", err)
	}
	defer file.Close()

	records, err := provenance.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading previous export %s: %w", path, err)
	}
	return records, nil
}

func saveExport(path string, records []*provenance.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("creating temp export: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := provenance.WriteAll(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing export: %w", err)
	}
	return nil
}

func saveDefinition(path string, definitions *flowapi.Definitions) error {
	encoded, err := json.MarshalIndent(definitions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding flow definition: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".definition-*")
	if err != nil {
		return fmt.Errorf("creating temp definition: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("writing definition: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing definition: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing definition: %w", err)
	}
	return nil
}

func selectInstance(cfg *config.Config, name string) (config.Instance, error) {
	if name == "" {
		return cfg.Instances[0], nil
	}
	for _, instance := range cfg.Instances {
		if instance.Name == name {
			return instance, nil
		}
	}
	return config.Instance{}, fmt.Errorf("no instance named %q in config", name)
}

func newClient(instance config.Instance, logger *slog.Logger) (*flowapi.Client, error) {
	token, err := instance.Token()
	if err != nil {
		return nil, err
	}
	return flowapi.NewClient(flowapi.Config{
		BaseURL: instance.BaseURL,
		Token:   token,
		Clock:   clock.Real(),
		Logger:  logger.With("instance", instance.Name),
	})
}
