// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bureau-foundation/flowmirror/lib/archive"
	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

// Window bounds a fetch by record modification time. After is
// inclusive, Before is exclusive. A zero bound is unbounded on that
// side.
type Window struct {
	After  time.Time
	Before time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.After.IsZero() && t.Before(w.After) {
		return false
	}
	if !w.Before.IsZero() && !t.Before(w.Before) {
		return false
	}
	return true
}

// intersects reports whether the half-open interval [start, end)
// overlaps the window.
func (w Window) intersects(start, end time.Time) bool {
	if !w.Before.IsZero() && !start.Before(w.Before) {
		return false
	}
	if !w.After.IsZero() && !end.After(w.After) {
		return false
	}
	return true
}

// LiveSource reads records from the platform's live store. It is
// satisfied by Live wrapping a flowapi client.
type LiveSource interface {
	Contacts(ctx context.Context, window Window) ([]flowapi.Contact, error)
	Runs(ctx context.Context, flowUUID string, window Window) ([]flowapi.Run, error)
}

// ArchiveSource reads run records from the platform's cold storage.
// It is satisfied by Cold wrapping an archive source.
type ArchiveSource interface {
	Segments(ctx context.Context) ([]flowapi.Archive, error)
	Read(ctx context.Context, segment flowapi.Archive) ([]flowapi.Run, error)
}

// Live adapts a flowapi client to the LiveSource interface.
type Live struct {
	Client *flowapi.Client
}

func (l Live) Contacts(ctx context.Context, window Window) ([]flowapi.Contact, error) {
	return l.Client.ListContacts(window.After, window.Before).Collect(ctx)
}

func (l Live) Runs(ctx context.Context, flowUUID string, window Window) ([]flowapi.Run, error) {
	return l.Client.ListRuns(flowUUID, window.After, window.Before).Collect(ctx)
}

// Cold adapts an archive source to the ArchiveSource interface,
// fixed to run segments. The platform archives runs and messages
// only; contacts always come from the live store.
type Cold struct {
	Source archive.Source
}

func (c Cold) Segments(ctx context.Context) ([]flowapi.Archive, error) {
	return archive.List(ctx, c.Source, flowapi.ArchiveTypeRun)
}

func (c Cold) Read(ctx context.Context, segment flowapi.Archive) ([]flowapi.Run, error) {
	return archive.Read[flowapi.Run](ctx, c.Source, segment)
}

// DuplicateIDError reports a record id seen in both the archive and
// the live store within one fetch.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("record %s present in both archive and live storage", e.ID)
}

// Options adjusts a fetch.
type Options struct {
	// IgnoreArchives skips the cold store. Use when the window is
	// known to be entirely within the live retention period.
	IgnoreArchives bool
}

// Fetcher stitches archive and live reads into one ordered stream.
type Fetcher struct {
	live   LiveSource
	cold   ArchiveSource
	logger *slog.Logger
}

// New creates a Fetcher. cold may be nil when archives are never
// consulted. A nil logger discards.
func New(live LiveSource, cold ArchiveSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{live: live, cold: cold, logger: logger}
}

// Contacts fetches contacts modified within the window. The platform
// does not archive contacts, so this is a live-only read; the result
// is sorted ascending by modification time.
func (f *Fetcher) Contacts(ctx context.Context, window Window) ([]flowapi.Contact, error) {
	contacts, err := f.live.Contacts(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("fetching contacts: %w", err)
	}
	sortRecords(contacts)
	if err := assertUniqueIDs(contacts); err != nil {
		return nil, err
	}
	f.logger.Info("fetched contacts", "count", len(contacts))
	return contacts, nil
}

// Runs fetches the given flow's runs modified within the window,
// stitching archive segments and the live store. The result is sorted
// ascending by modification time.
func (f *Fetcher) Runs(ctx context.Context, flowUUID string, window Window, opts Options) ([]flowapi.Run, error) {
	var runs []flowapi.Run

	if !opts.IgnoreArchives && f.cold != nil {
		archived, err := f.archivedRuns(ctx, flowUUID, window)
		if err != nil {
			return nil, err
		}
		runs = archived
	}

	live, err := f.live.Runs(ctx, flowUUID, window)
	if err != nil {
		return nil, fmt.Errorf("fetching live runs: %w", err)
	}
	// Live pages arrive newest first.
	reverse(live)
	f.logger.Info("fetched runs", "flow", flowUUID, "archived", len(runs), "live", len(live))

	runs = append(runs, live...)
	sortRecords(runs)
	if err := assertUniqueIDs(runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (f *Fetcher) archivedRuns(ctx context.Context, flowUUID string, window Window) ([]flowapi.Run, error) {
	segments, err := f.cold.Segments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing archive segments: %w", err)
	}

	var runs []flowapi.Run
	for _, segment := range segments {
		start := segment.StartDate.Time
		end := segment.EndDate().Time
		if !window.intersects(start, end) {
			continue
		}
		records, err := f.cold.Read(ctx, segment)
		if err != nil {
			return nil, fmt.Errorf("reading archive segment starting %s: %w", segment.StartDate, err)
		}
		kept := 0
		for _, run := range records {
			// Segments hold every flow's runs and cover a
			// coarser window than requested.
			if run.Flow.UUID != flowUUID || !window.Contains(run.ModifiedOn) {
				continue
			}
			runs = append(runs, run)
			kept++
		}
		f.logger.Debug("read archive segment",
			"start", segment.StartDate.String(), "records", len(records), "kept", kept)
	}
	return runs, nil
}

type record interface {
	RecordID() string
	RecordModifiedOn() time.Time
}

func sortRecords[T record](records []T) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].RecordModifiedOn(), records[j].RecordModifiedOn()
		if a.Equal(b) {
			return records[i].RecordID() < records[j].RecordID()
		}
		return a.Before(b)
	})
}

func assertUniqueIDs[T record](records []T) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.RecordID()
		if _, dup := seen[id]; dup {
			return &DuplicateIDError{ID: id}
		}
		seen[id] = struct{}{}
	}
	return nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
