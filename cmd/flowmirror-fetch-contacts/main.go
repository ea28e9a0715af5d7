// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// flowmirror-fetch-contacts incrementally updates the local contact
// snapshot for one platform instance.
//
// Usage:
//
//	flowmirror-fetch-contacts --config <job.yaml> [--instance <name>]
//
// The previous snapshot, when present, supplies the watermark; only
// contacts modified since then are fetched. The updated snapshot is
// written atomically, so an aborted run leaves the previous snapshot
// intact.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/flowmirror/lib/clock"
	"github.com/bureau-foundation/flowmirror/lib/config"
	"github.com/bureau-foundation/flowmirror/lib/fetch"
	"github.com/bureau-foundation/flowmirror/lib/flowapi"
	"github.com/bureau-foundation/flowmirror/lib/snapshot"
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

	flagSet := pflag.NewFlagSet("flowmirror-fetch-contacts", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the job config file")
	flagSet.StringVar(&instanceName, "instance", "", "instance to fetch (default: first in config)")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("flowmirror-fetch-contacts")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "--config is required")
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

	snapshotPath := cfg.SnapshotPath(instance.Name, "contacts")
	prev, err := snapshot.Load[flowapi.Contact](snapshotPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		logger.Info("no previous snapshot, fetching everything", "path", snapshotPath)
	} else {
		logger.Info("loaded previous snapshot",
			"path", snapshotPath, "contacts", prev.Len(), "watermark", prev.Watermark())
	}

	fetcher := fetch.New(fetch.Live{Client: client}, nil, logger)
	updated, err := snapshot.Update(ctx, prev, func(ctx context.Context, afterInclusive time.Time) ([]flowapi.Contact, error) {
		return fetcher.Contacts(ctx, fetch.Window{After: afterInclusive})
	})
	if err != nil {
		return fmt.Errorf("updating contact snapshot: %w", err)
	}

	if err := updated.Save(snapshotPath); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	logger.Info("snapshot updated",
		"path", snapshotPath, "contacts", updated.Len(), "watermark", updated.Watermark())
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
