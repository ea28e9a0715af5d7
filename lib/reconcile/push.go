// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

// Instance is the slice of the platform client the reconciler pushes
// through. Satisfied by *flowapi.Client.
type Instance interface {
	UpdateContact(ctx context.Context, urn, name string, fields map[string]*string) (*flowapi.Contact, error)
	ListFields(ctx context.Context) ([]flowapi.Field, error)
	CreateField(ctx context.Context, label string) (*flowapi.Field, error)
}

// SyncFields creates on each instance the contact field keys present
// only on the other, so a pushed update never references a field the
// target does not know.
func SyncFields(ctx context.Context, a, b Instance, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fieldsA, err := a.ListFields(ctx)
	if err != nil {
		return fmt.Errorf("listing fields on instance a: %w", err)
	}
	fieldsB, err := b.ListFields(ctx)
	if err != nil {
		return fmt.Errorf("listing fields on instance b: %w", err)
	}

	if err := createMissing(ctx, b, fieldsA, fieldsB, logger); err != nil {
		return fmt.Errorf("creating fields on instance b: %w", err)
	}
	if err := createMissing(ctx, a, fieldsB, fieldsA, logger); err != nil {
		return fmt.Errorf("creating fields on instance a: %w", err)
	}
	return nil
}

func createMissing(ctx context.Context, target Instance, source, existing []flowapi.Field, logger *slog.Logger) error {
	keys := make(map[string]bool, len(existing))
	for _, field := range existing {
		keys[field.Key] = true
	}
	for _, field := range source {
		if keys[field.Key] {
			continue
		}
		logger.Info("creating contact field", "key", field.Key)
		if _, err := target.CreateField(ctx, field.Label); err != nil {
			return fmt.Errorf("field %s: %w", field.Key, err)
		}
	}
	return nil
}

// Push applies the plan's resolved updates. Each update goes to its
// target instances addressed by URN, so a rerun after a partial
// failure re-applies only what has not landed. On the first failure
// the entry reverts to conflicting for the next pass and Push returns
// the count already pushed alongside the error.
func Push(ctx context.Context, plan *Plan, a, b Instance, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pending := plan.pending()
	pushed := 0
	for i, entry := range pending {
		logger.Info("pushing contact update",
			"progress", fmt.Sprintf("%d/%d", i+1, len(pending)),
			"urn", redactURN(entry.Key))

		if err := pushEntry(ctx, entry, a, b); err != nil {
			entry.State = StateConflicting
			return pushed, fmt.Errorf("pushing update for URN %s: %w", redactURN(entry.Key), err)
		}
		entry.State = StatePushed
		pushed++
	}
	return pushed, nil
}

func pushEntry(ctx context.Context, entry *Entry, a, b Instance) error {
	if entry.PushA {
		if _, err := a.UpdateContact(ctx, entry.URN, entry.Name, entry.Fields); err != nil {
			return fmt.Errorf("instance a: %w", err)
		}
	}
	if entry.PushB {
		if _, err := b.UpdateContact(ctx, entry.URN, entry.Name, entry.Fields); err != nil {
			return fmt.Errorf("instance b: %w", err)
		}
	}
	return nil
}
