// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

// State tracks a matched contact through one reconciliation pass.
type State int

const (
	// StateLocalOnly marks a contact present only on instance A.
	StateLocalOnly State = iota
	// StateRemoteOnly marks a contact present only on instance B.
	StateRemoteOnly
	// StateIdentical marks a pair needing no update.
	StateIdentical
	// StateConflicting marks a pair whose name or fields differ.
	StateConflicting
	// StateResolved marks an entry with a merged update scheduled.
	StateResolved
	// StatePushed marks an entry whose update reached both targets.
	StatePushed
)

func (s State) String() string {
	switch s {
	case StateLocalOnly:
		return "local-only"
	case StateRemoteOnly:
		return "remote-only"
	case StateIdentical:
		return "identical"
	case StateConflicting:
		return "conflicting"
	case StateResolved:
		return "resolved"
	case StatePushed:
		return "pushed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Entry is one matched contact in a reconciliation plan.
type Entry struct {
	// Key is the normalized URN the pair was matched on.
	Key string
	// URN addresses the contact on the platform; unlike Key it
	// keeps any display suffix.
	URN string
	// Origin is the entry's initial classification (local-only,
	// remote-only, identical, or conflicting). It never changes, so
	// a merged conflict stays distinguishable from a one-sided copy
	// after resolution and pushing advance State.
	Origin State
	// State tracks the entry through resolution and pushing.
	State State

	// Name and Fields form the scheduled update payload. Unset for
	// identical pairs.
	Name   string
	Fields map[string]*string

	// PushA and PushB select the target instances.
	PushA bool
	PushB bool
}

// Plan is the outcome of matching two instances' contacts.
type Plan struct {
	Entries []*Entry
}

// Counts returns per-classification totals for progress reporting,
// keyed on each entry's Origin so conflicting pairs are counted even
// though they are scheduled as resolved updates.
func (p *Plan) Counts() map[string]int {
	counts := make(map[string]int)
	for _, entry := range p.Entries {
		counts[entry.Origin.String()]++
	}
	return counts
}

// pending returns the entries with an update still to push.
func (p *Plan) pending() []*Entry {
	var out []*Entry
	for _, entry := range p.Entries {
		if entry.State == StateResolved {
			out = append(out, entry)
		}
	}
	return out
}

// NormalizeURN strips the display suffix from a URN, leaving the
// stable identifier used for matching. "tel:+1555#alice" and
// "tel:+1555" address the same contact.
func NormalizeURN(urn string) string {
	key, _, _ := strings.Cut(urn, "#")
	return key
}

// Reconcile matches contacts from two instances by normalized URN and
// classifies every match. A contact with more than one URN is an
// error: the match key is no longer unique and pushing could write
// the wrong contact. A contact with no URNs cannot be matched and is
// skipped with a warning.
func Reconcile(a, b []flowapi.Contact, logger *slog.Logger) (*Plan, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	byKeyA, err := index(a, logger)
	if err != nil {
		return nil, err
	}
	byKeyB, err := index(b, logger)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for key, contact := range byKeyA {
		if _, both := byKeyB[key]; both {
			continue
		}
		plan.Entries = append(plan.Entries, &Entry{
			Key:    key,
			URN:    contact.URNs[0],
			Origin: StateLocalOnly,
			State:  StateResolved,
			Name:   contact.Name,
			Fields: copyFields(contact.Fields),
			PushB:  true,
		})
	}
	for key, contact := range byKeyB {
		if _, both := byKeyA[key]; both {
			continue
		}
		plan.Entries = append(plan.Entries, &Entry{
			Key:    key,
			URN:    contact.URNs[0],
			Origin: StateRemoteOnly,
			State:  StateResolved,
			Name:   contact.Name,
			Fields: copyFields(contact.Fields),
			PushA:  true,
		})
	}
	for key, contactA := range byKeyA {
		contactB, both := byKeyB[key]
		if !both {
			continue
		}
		plan.Entries = append(plan.Entries, merge(key, contactA, contactB))
	}

	// Map iteration order is random; a deterministic plan makes the
	// progress logs and tests reproducible.
	sort.Slice(plan.Entries, func(i, j int) bool {
		return plan.Entries[i].Key < plan.Entries[j].Key
	})
	return plan, nil
}

func index(contacts []flowapi.Contact, logger *slog.Logger) (map[string]flowapi.Contact, error) {
	byKey := make(map[string]flowapi.Contact, len(contacts))
	for _, contact := range contacts {
		if len(contact.URNs) == 0 {
			logger.Warn("contact has no URNs, skipping", "contact", contact.UUID)
			continue
		}
		if len(contact.URNs) > 1 {
			return nil, fmt.Errorf("contact %s has %d URNs, expected exactly one", contact.UUID, len(contact.URNs))
		}
		key := NormalizeURN(contact.URNs[0])
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("URN %s matches multiple contacts on one instance", redactURN(key))
		}
		byKey[key] = contact
	}
	return byKey, nil
}

// merge classifies a matched pair and, when the pair differs, builds
// the update both instances will receive.
func merge(key string, a, b flowapi.Contact) *Entry {
	entry := &Entry{Key: key, URN: a.URNs[0]}

	if a.Name == b.Name && fieldsEqual(a.Fields, b.Fields) {
		entry.Origin = StateIdentical
		entry.State = StateIdentical
		return entry
	}

	newer, older := a, b
	if b.ModifiedOn.After(a.ModifiedOn) {
		newer, older = b, a
	}

	// The newer record supplies the name. Fields start from the
	// older record so keys it alone carries survive, then the newer
	// record overwrites the rest.
	fields := copyFields(older.Fields)
	for k, v := range newer.Fields {
		fields[k] = v
	}

	// A field identical across both inputs is a no-op; a null merged
	// value would re-null a field that may have been set out-of-band
	// since the snapshot was taken. Drop both.
	for k, v := range fields {
		if valueEqual(a.Fields[k], b.Fields[k]) || v == nil {
			delete(fields, k)
		}
	}

	entry.Origin = StateConflicting
	entry.State = StateResolved
	entry.Name = newer.Name
	entry.Fields = fields
	entry.PushA = true
	entry.PushB = true
	return entry
}

func copyFields(fields map[string]*string) map[string]*string {
	copied := make(map[string]*string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied
}

func valueEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fieldsEqual(a, b map[string]*string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		other, ok := b[k]
		if !ok || !valueEqual(v, other) {
			return false
		}
	}
	return true
}

// redactURN keeps only a short suffix of a URN for log lines.
func redactURN(urn string) string {
	const visible = 3
	if len(urn) <= visible {
		return "..." + urn
	}
	return "..." + urn[len(urn)-visible:]
}
