// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"testing"
	"time"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

func strptr(s string) *string { return &s }

func contact(urn, name string, modified time.Time, fields map[string]*string) flowapi.Contact {
	return flowapi.Contact{
		UUID:       "uuid-" + urn,
		Name:       name,
		URNs:       []string{urn},
		Fields:     fields,
		ModifiedOn: modified,
	}
}

func entryFor(t *testing.T, plan *Plan, key string) *Entry {
	t.Helper()
	for _, entry := range plan.Entries {
		if entry.Key == key {
			return entry
		}
	}
	t.Fatalf("no plan entry for key %s", key)
	return nil
}

var (
	older = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
)

func TestReconcileUniqueContactsCopiedToOtherInstance(t *testing.T) {
	a := []flowapi.Contact{contact("tel:+1111", "alice", older, map[string]*string{"district": strptr("north")})}
	b := []flowapi.Contact{contact("tel:+2222", "bob", older, nil)}

	plan, err := Reconcile(a, b, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 2 {
		t.Fatalf("plan has %d entries, want 2", len(plan.Entries))
	}

	alice := entryFor(t, plan, "tel:+1111")
	if alice.State != StateResolved || !alice.PushB || alice.PushA {
		t.Errorf("alice entry = %+v, want resolved push-to-b only", alice)
	}
	if alice.Name != "alice" || *alice.Fields["district"] != "north" {
		t.Errorf("alice payload = %q %v, want full copy", alice.Name, alice.Fields)
	}

	bob := entryFor(t, plan, "tel:+2222")
	if bob.State != StateResolved || !bob.PushA || bob.PushB {
		t.Errorf("bob entry = %+v, want resolved push-to-a only", bob)
	}
}

func TestReconcileIdenticalPairSchedulesNothing(t *testing.T) {
	fields := map[string]*string{"district": strptr("north")}
	a := []flowapi.Contact{contact("tel:+1111", "alice", older, fields)}
	b := []flowapi.Contact{contact("tel:+1111#alice", "alice", newer, map[string]*string{"district": strptr("north")})}

	plan, err := Reconcile(a, b, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("plan has %d entries, want 1", len(plan.Entries))
	}
	if got := plan.Entries[0].State; got != StateIdentical {
		t.Errorf("state = %s, want identical", got)
	}
	if counts := plan.Counts(); counts["identical"] != 1 {
		t.Errorf("counts = %v, want identical:1", counts)
	}
}

func TestReconcileLastWriterWins(t *testing.T) {
	a := []flowapi.Contact{contact("tel:+1111", "old name", older, map[string]*string{
		"district": strptr("north"),
		"age":      strptr("30"),
		"note":     strptr("only on older"),
	})}
	b := []flowapi.Contact{contact("tel:+1111", "new name", newer, map[string]*string{
		"district": strptr("south"),
		"age":      strptr("30"),
	})}

	plan, err := Reconcile(a, b, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	entry := plan.Entries[0]
	if entry.State != StateResolved || !entry.PushA || !entry.PushB {
		t.Fatalf("entry = %+v, want resolved push to both", entry)
	}
	if entry.Name != "new name" {
		t.Errorf("name = %q, want the newer record's name", entry.Name)
	}

	// district: newer side wins. age: identical, dropped as no-op.
	// note: only the older side has it, preserved.
	if got := entry.Fields["district"]; got == nil || *got != "south" {
		t.Errorf("district = %v, want south", got)
	}
	if _, present := entry.Fields["age"]; present {
		t.Error("age present in payload, want no-op dropped")
	}
	if got := entry.Fields["note"]; got == nil || *got != "only on older" {
		t.Errorf("note = %v, want preserved from older record", got)
	}
}

func TestReconcileConvergenceScenario(t *testing.T) {
	a := []flowapi.Contact{contact("tel:+1111", "c", older, map[string]*string{"f": strptr("1")})}
	b := []flowapi.Contact{contact("tel:+1111", "c", newer, map[string]*string{"f": strptr("2")})}

	plan, err := Reconcile(a, b, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	entry := plan.Entries[0]
	if got := entry.Fields["f"]; got == nil || *got != "2" {
		t.Errorf("f = %v, want the newer value 2", got)
	}
	if !entry.PushA || !entry.PushB {
		t.Error("merged update must be scheduled for both instances")
	}
}

// Conflicting pairs are scheduled as resolved updates, but the plan
// counts must still report them as conflicts, distinct from one-sided
// copies that are also resolved.
func TestPlanCountsReportConflicts(t *testing.T) {
	a := []flowapi.Contact{
		contact("tel:+1111", "alice", older, map[string]*string{"district": strptr("north")}),
		contact("tel:+3333", "carol", older, nil),
	}
	b := []flowapi.Contact{
		contact("tel:+1111", "alice", newer, map[string]*string{"district": strptr("south")}),
		contact("tel:+2222", "bob", older, nil),
	}

	plan, err := Reconcile(a, b, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	counts := plan.Counts()
	want := map[string]int{"conflicting": 1, "local-only": 1, "remote-only": 1}
	for classification, n := range want {
		if counts[classification] != n {
			t.Errorf("counts[%q] = %d, want %d (counts = %v)", classification, counts[classification], n, counts)
		}
	}

	merged := entryFor(t, plan, "tel:+1111")
	if merged.Origin != StateConflicting || merged.State != StateResolved {
		t.Errorf("merged entry origin/state = %s/%s, want conflicting/resolved", merged.Origin, merged.State)
	}
}

func TestReconcileDropsNullMergedFields(t *testing.T) {
	a := []flowapi.Contact{contact("tel:+1111", "c", older, map[string]*string{"cleared": strptr("was set")})}
	b := []flowapi.Contact{contact("tel:+1111", "d", newer, map[string]*string{"cleared": nil})}

	plan, err := Reconcile(a, b, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, present := plan.Entries[0].Fields["cleared"]; present {
		t.Error("null merged field present in payload, want dropped")
	}
}

func TestReconcileMultiURNContactIsFatal(t *testing.T) {
	a := []flowapi.Contact{{
		UUID: "c-1",
		URNs: []string{"tel:+1111", "telegram:5"},
	}}
	if _, err := Reconcile(a, nil, nil); err == nil {
		t.Fatal("Reconcile succeeded with a multi-URN contact, want error")
	}
}

func TestReconcileSkipsContactWithoutURNs(t *testing.T) {
	a := []flowapi.Contact{{UUID: "c-1"}}
	plan, err := Reconcile(a, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Entries) != 0 {
		t.Errorf("plan has %d entries, want 0", len(plan.Entries))
	}
}

func TestNormalizeURN(t *testing.T) {
	if got := NormalizeURN("tel:+1555#alice"); got != "tel:+1555" {
		t.Errorf("NormalizeURN = %q, want tel:+1555", got)
	}
	if got := NormalizeURN("tel:+1555"); got != "tel:+1555" {
		t.Errorf("NormalizeURN = %q, want unchanged", got)
	}
}

func TestRedactURN(t *testing.T) {
	if got := redactURN("tel:+12025550101"); got != "...101" {
		t.Errorf("redactURN = %q, want ...101", got)
	}
}
