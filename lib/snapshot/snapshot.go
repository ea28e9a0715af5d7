// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"sort"
	"time"
)

// Record is the constraint on snapshot entries: any entity with a
// stable identifier and a platform-advanced modification timestamp.
// flowapi.Contact and flowapi.Run implement it.
type Record interface {
	RecordID() string
	RecordModifiedOn() time.Time
}

// Snapshot is the local mirror of one entity type at a point in time:
// the single latest-known record per id, plus the derived watermark.
//
// Snapshot is not safe for concurrent mutation. A synchronization
// pass owns its snapshot exclusively; parallel fetches must each
// build a disjoint snapshot and merge afterwards.
type Snapshot[T Record] struct {
	records   map[string]T
	watermark time.Time
}

// New returns an empty snapshot.
func New[T Record]() *Snapshot[T] {
	return &Snapshot[T]{records: make(map[string]T)}
}

// FromRecords builds a snapshot from a record set, keeping the latest
// version of each id.
func FromRecords[T Record](records []T) *Snapshot[T] {
	s := New[T]()
	s.Merge(records)
	return s
}

// Len returns the number of records in the snapshot.
func (s *Snapshot[T]) Len() int { return len(s.records) }

// Watermark returns the maximum modified_on across all records ever
// merged into the snapshot. Zero for an empty snapshot.
func (s *Snapshot[T]) Watermark() time.Time { return s.watermark }

// Get returns the record for id, if present.
func (s *Snapshot[T]) Get(id string) (T, bool) {
	record, ok := s.records[id]
	return record, ok
}

// Records returns the snapshot's records in ascending modified_on
// order, ties broken by id, so that serialization and diffing are
// deterministic.
func (s *Snapshot[T]) Records() []T {
	records := make([]T, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].RecordModifiedOn(), records[j].RecordModifiedOn()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return records[i].RecordID() < records[j].RecordID()
	})
	return records
}

// Merge folds a fetched delta into the snapshot. Each delta record
// replaces any existing record with the same id wholesale; partial
// field unions are never performed, because the remote returns full
// records. Records older than the snapshot's copy are kept anyway:
// within one remote instance modified_on never decreases for an id,
// so a "stale" delta record can only come from merging an archive
// batch that predates the live copy, and the later merge wins. The
// watermark only advances.
func (s *Snapshot[T]) Merge(delta []T) {
	for _, record := range delta {
		id := record.RecordID()
		if existing, ok := s.records[id]; ok &&
			existing.RecordModifiedOn().After(record.RecordModifiedOn()) {
			continue
		}
		s.records[id] = record
		if record.RecordModifiedOn().After(s.watermark) {
			s.watermark = record.RecordModifiedOn()
		}
	}
}

// Clone returns an independent copy of the snapshot.
func (s *Snapshot[T]) Clone() *Snapshot[T] {
	copied := &Snapshot[T]{
		records:   make(map[string]T, len(s.records)),
		watermark: s.watermark,
	}
	for id, record := range s.records {
		copied.records[id] = record
	}
	return copied
}

// FetchFunc retrieves all records whose modified_on is at or after
// afterInclusive. A zero afterInclusive means everything.
type FetchFunc[T Record] func(ctx context.Context, afterInclusive time.Time) ([]T, error)

// Update is the watermark synchronizer: it produces a new snapshot
// containing prev's records plus everything the remote has modified
// since prev's watermark. A nil or empty prev fetches the world.
//
// prev is never mutated; the delta is merged into a copy only after
// the fetch has fully succeeded, so a failed pass cannot corrupt the
// previous snapshot. Re-running Update against an unchanged remote is
// idempotent: the re-fetch window starts one microsecond past the
// watermark and returns nothing.
func Update[T Record](ctx context.Context, prev *Snapshot[T], fetch FetchFunc[T]) (*Snapshot[T], error) {
	var afterInclusive time.Time
	var next *Snapshot[T]

	if prev == nil || prev.Len() == 0 {
		next = New[T]()
	} else {
		afterInclusive = prev.Watermark().Add(time.Microsecond)
		next = prev.Clone()
	}

	delta, err := fetch(ctx, afterInclusive)
	if err != nil {
		return nil, err
	}

	next.Merge(delta)
	return next, nil
}
