// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// testRecord is a minimal Record for snapshot tests.
type testRecord struct {
	ID         string    `json:"id"`
	ModifiedOn time.Time `json:"modified_on"`
	Value      string    `json:"value"`
}

func (r testRecord) RecordID() string            { return r.ID }
func (r testRecord) RecordModifiedOn() time.Time { return r.ModifiedOn }

func at(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestMerge_ReplacesWholeRecordPerID(t *testing.T) {
	s := New[testRecord]()
	s.Merge([]testRecord{{ID: "a", ModifiedOn: at(1), Value: "old"}})
	s.Merge([]testRecord{{ID: "a", ModifiedOn: at(2), Value: "new"}})

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	record, _ := s.Get("a")
	if record.Value != "new" {
		t.Errorf("Value = %q, want new", record.Value)
	}
}

func TestMerge_KeepsNewerOverStaleArchiveCopy(t *testing.T) {
	s := New[testRecord]()
	s.Merge([]testRecord{{ID: "a", ModifiedOn: at(5), Value: "live"}})
	// An archive batch can deliver an older copy of the same id.
	s.Merge([]testRecord{{ID: "a", ModifiedOn: at(1), Value: "archived"}})

	record, _ := s.Get("a")
	if record.Value != "live" {
		t.Errorf("Value = %q, want live", record.Value)
	}
	if !s.Watermark().Equal(at(5)) {
		t.Errorf("Watermark = %v, want %v", s.Watermark(), at(5))
	}
}

func TestWatermark_Monotonic(t *testing.T) {
	s := New[testRecord]()
	previous := s.Watermark()
	for _, day := range []int{3, 1, 7, 2, 7} {
		s.Merge([]testRecord{{ID: fmt.Sprintf("r%d", day), ModifiedOn: at(day)}})
		if s.Watermark().Before(previous) {
			t.Fatalf("watermark rolled back: %v -> %v", previous, s.Watermark())
		}
		previous = s.Watermark()
	}
	if !s.Watermark().Equal(at(7)) {
		t.Errorf("Watermark = %v, want %v", s.Watermark(), at(7))
	}
}

func TestRecords_DeterministicOrder(t *testing.T) {
	s := New[testRecord]()
	s.Merge([]testRecord{
		{ID: "b", ModifiedOn: at(2)},
		{ID: "c", ModifiedOn: at(1)},
		{ID: "a", ModifiedOn: at(2)},
	})

	var ids []string
	for _, record := range s.Records() {
		ids = append(ids, record.ID)
	}
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestUpdate_EmptyPreviousFetchesEverything(t *testing.T) {
	var gotAfter time.Time
	fetch := func(ctx context.Context, afterInclusive time.Time) ([]testRecord, error) {
		gotAfter = afterInclusive
		return []testRecord{{ID: "a", ModifiedOn: at(1)}}, nil
	}

	s, err := Update(context.Background(), nil, fetch)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !gotAfter.IsZero() {
		t.Errorf("afterInclusive = %v, want zero", gotAfter)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestUpdate_IncrementalScenario(t *testing.T) {
	// Snapshot with watermark 2024-01-01T00:00:00Z containing 10
	// contacts; the remote has 2 new records modified on 2024-01-02.
	prev := New[testRecord]()
	for i := 0; i < 10; i++ {
		prev.Merge([]testRecord{{
			ID:         fmt.Sprintf("c%d", i),
			ModifiedOn: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}})
	}

	var gotAfter time.Time
	var fetched int
	fetch := func(ctx context.Context, afterInclusive time.Time) ([]testRecord, error) {
		gotAfter = afterInclusive
		delta := []testRecord{
			{ID: "new1", ModifiedOn: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			{ID: "new2", ModifiedOn: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		}
		fetched = len(delta)
		return delta, nil
	}

	next, err := Update(context.Background(), prev, fetch)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	wantAfter := time.Date(2024, 1, 1, 0, 0, 0, 1000, time.UTC) // +1µs
	if !gotAfter.Equal(wantAfter) {
		t.Errorf("afterInclusive = %v, want %v", gotAfter, wantAfter)
	}
	if fetched != 2 {
		t.Errorf("fetched = %d, want 2", fetched)
	}
	if next.Len() != 12 {
		t.Errorf("Len = %d, want 12", next.Len())
	}
	wantWatermark := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !next.Watermark().Equal(wantWatermark) {
		t.Errorf("Watermark = %v, want %v", next.Watermark(), wantWatermark)
	}
	// prev is untouched.
	if prev.Len() != 10 {
		t.Errorf("prev.Len = %d, want 10", prev.Len())
	}
}

func TestUpdate_IdempotentAgainstUnchangedRemote(t *testing.T) {
	remote := []testRecord{
		{ID: "a", ModifiedOn: at(1), Value: "1"},
		{ID: "b", ModifiedOn: at(2), Value: "2"},
	}
	fetch := func(ctx context.Context, afterInclusive time.Time) ([]testRecord, error) {
		var delta []testRecord
		for _, record := range remote {
			if afterInclusive.IsZero() || !record.ModifiedOn.Before(afterInclusive) {
				delta = append(delta, record)
			}
		}
		return delta, nil
	}

	first, err := Update(context.Background(), nil, fetch)
	if err != nil {
		t.Fatalf("first Update: %v", err)
	}
	second, err := Update(context.Background(), first, fetch)
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}

	if !reflect.DeepEqual(first.Records(), second.Records()) {
		t.Errorf("second Update changed content:\nfirst:  %v\nsecond: %v",
			first.Records(), second.Records())
	}
	if !first.Watermark().Equal(second.Watermark()) {
		t.Errorf("watermark changed: %v -> %v", first.Watermark(), second.Watermark())
	}
}

func TestUpdate_FetchErrorLeavesNothingBehind(t *testing.T) {
	prev := FromRecords([]testRecord{{ID: "a", ModifiedOn: at(1)}})
	fetch := func(ctx context.Context, afterInclusive time.Time) ([]testRecord, error) {
		return nil, fmt.Errorf("remote unavailable")
	}

	next, err := Update(context.Background(), prev, fetch)
	if err == nil {
		t.Fatal("expected error")
	}
	if next != nil {
		t.Errorf("Update returned a snapshot alongside an error")
	}
	if prev.Len() != 1 {
		t.Errorf("prev mutated on failed update")
	}
}
