// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// flowmirror-sync-contacts converges the contacts held on two
// platform instances.
//
// Usage:
//
//	flowmirror-sync-contacts --config <job.yaml> [--dry-run]
//
// Both instances' contacts are fetched in full, contact field keys
// are synchronized, and the reconciliation plan is pushed to both
// sides. Updates are idempotent by URN: a rerun after a partial
// failure re-applies only what has not landed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/flowmirror/lib/clock"
	"github.com/bureau-foundation/flowmirror/lib/config"
	"github.com/bureau-foundation/flowmirror/lib/fetch"
	"github.com/bureau-foundation/flowmirror/lib/flowapi"
	"github.com/bureau-foundation/flowmirror/lib/reconcile"
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
	var dryRun bool

	flagSet := pflag.NewFlagSet("flowmirror-sync-contacts", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the job config file")
	flagSet.BoolVar(&dryRun, "dry-run", false, "compute and report the plan without pushing")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("flowmirror-sync-contacts")
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
	if len(cfg.Instances) != 2 {
		return fmt.Errorf("%w: contact sync requires exactly two instances in the config, got %d",
			errUsage, len(cfg.Instances))
	}

	clientA, err := newClient(cfg.Instances[0], logger)
	if err != nil {
		return err
	}
	clientB, err := newClient(cfg.Instances[1], logger)
	if err != nil {
		return err
	}

	logger.Info("synchronizing contact fields")
	if !dryRun {
		if err := reconcile.SyncFields(ctx, clientA, clientB, logger); err != nil {
			return err
		}
	}

	contactsA, err := fetch.New(fetch.Live{Client: clientA}, nil, logger).Contacts(ctx, fetch.Window{})
	if err != nil {
		return fmt.Errorf("fetching contacts from %s: %w", cfg.Instances[0].Name, err)
	}
	contactsB, err := fetch.New(fetch.Live{Client: clientB}, nil, logger).Contacts(ctx, fetch.Window{})
	if err != nil {
		return fmt.Errorf("fetching contacts from %s: %w", cfg.Instances[1].Name, err)
	}

	plan, err := reconcile.Reconcile(contactsA, contactsB, logger)
	if err != nil {
		return fmt.Errorf("reconciling: %w", err)
	}
	for classification, count := range plan.Counts() {
		logger.Info("plan", "classification", classification, "contacts", count)
	}
	if dryRun {
		logger.Info("dry run, not pushing")
		return nil
	}

	pushed, err := reconcile.Push(ctx, plan, clientA, clientB, logger)
	logger.Info("push finished", "pushed", pushed)
	if err != nil {
		return fmt.Errorf("pushing updates: %w", err)
	}
	return nil
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
