// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

type fakeInstance struct {
	fields   []flowapi.Field
	created  []string
	updated  []string
	failURNs map[string]bool
}

func (f *fakeInstance) UpdateContact(ctx context.Context, urn, name string, fields map[string]*string) (*flowapi.Contact, error) {
	if f.failURNs[urn] {
		return nil, errors.New("server rejected update")
	}
	f.updated = append(f.updated, urn)
	return &flowapi.Contact{URNs: []string{urn}, Name: name}, nil
}

func (f *fakeInstance) ListFields(ctx context.Context) ([]flowapi.Field, error) {
	return f.fields, nil
}

func (f *fakeInstance) CreateField(ctx context.Context, label string) (*flowapi.Field, error) {
	f.created = append(f.created, label)
	return &flowapi.Field{Label: label}, nil
}

func TestSyncFieldsCreatesMissingOnBothSides(t *testing.T) {
	a := &fakeInstance{fields: []flowapi.Field{
		{Key: "district", Label: "District"},
		{Key: "age", Label: "Age"},
	}}
	b := &fakeInstance{fields: []flowapi.Field{
		{Key: "district", Label: "District"},
		{Key: "language", Label: "Language"},
	}}

	if err := SyncFields(context.Background(), a, b, nil); err != nil {
		t.Fatalf("SyncFields: %v", err)
	}
	if len(b.created) != 1 || b.created[0] != "Age" {
		t.Errorf("instance b created %v, want [Age]", b.created)
	}
	if len(a.created) != 1 || a.created[0] != "Language" {
		t.Errorf("instance a created %v, want [Language]", a.created)
	}
}

func TestPushAppliesResolvedEntriesToTargets(t *testing.T) {
	plan := &Plan{Entries: []*Entry{
		{Key: "tel:+1", URN: "tel:+1", State: StateResolved, Name: "a", PushB: true},
		{Key: "tel:+2", URN: "tel:+2", State: StateIdentical},
		{Key: "tel:+3", URN: "tel:+3", State: StateResolved, Name: "c", PushA: true, PushB: true},
	}}
	a := &fakeInstance{}
	b := &fakeInstance{}

	pushed, err := Push(context.Background(), plan, a, b, nil)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if pushed != 2 {
		t.Errorf("pushed = %d, want 2", pushed)
	}
	if len(a.updated) != 1 || a.updated[0] != "tel:+3" {
		t.Errorf("instance a updates = %v, want [tel:+3]", a.updated)
	}
	if len(b.updated) != 2 {
		t.Errorf("instance b updates = %v, want two", b.updated)
	}
	for _, entry := range plan.Entries {
		if entry.State == StateResolved {
			t.Errorf("entry %s still resolved after Push", entry.Key)
		}
	}
}

func TestPushFailureRevertsEntryToConflicting(t *testing.T) {
	plan := &Plan{Entries: []*Entry{
		{Key: "tel:+1", URN: "tel:+1", State: StateResolved, PushA: true},
		{Key: "tel:+2", URN: "tel:+2", State: StateResolved, PushA: true},
	}}
	a := &fakeInstance{failURNs: map[string]bool{"tel:+2": true}}
	b := &fakeInstance{}

	pushed, err := Push(context.Background(), plan, a, b, nil)
	if err == nil {
		t.Fatal("Push succeeded, want error")
	}
	if pushed != 1 {
		t.Errorf("pushed = %d, want 1 before the failure", pushed)
	}
	if plan.Entries[0].State != StatePushed {
		t.Errorf("first entry state = %s, want pushed", plan.Entries[0].State)
	}
	if plan.Entries[1].State != StateConflicting {
		t.Errorf("failed entry state = %s, want conflicting for retry", plan.Entries[1].State)
	}
}
