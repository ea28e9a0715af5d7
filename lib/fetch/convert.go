// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
	"github.com/bureau-foundation/flowmirror/lib/provenance"
)

// ParticipantKey is the provenance field holding the pseudonymized
// contact identifier.
const ParticipantKey = "participant_id"

// IdentityTable pseudonymizes external identifiers. Satisfied by
// identity.Table.
type IdentityTable interface {
	Add(ctx context.Context, externalID string) (string, error)
}

// Converter turns fetched runs into provenance records.
type Converter struct {
	// IDs pseudonymizes contact URNs before they reach any export.
	IDs IdentityTable

	// Producer is recorded on every history entry.
	Producer string

	// TestContacts lists contact UUIDs exempt from the single-URN
	// invariant; their runs are flagged test_run instead.
	TestContacts []string

	Logger *slog.Logger
}

// ConvertRuns builds one provenance record per run. A run whose
// contact is missing from contacts is dropped with a warning; the
// contact was created after the contact fetch and the run will be
// picked up on the next pass. A contact with no URNs is dropped with
// a warning. A non-test contact with more than one URN is an error.
func (c *Converter) ConvertRuns(ctx context.Context, runs []flowapi.Run, contacts []flowapi.Contact, now time.Time) ([]*provenance.Record, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	byUUID := make(map[string]flowapi.Contact, len(contacts))
	for _, contact := range contacts {
		byUUID[contact.UUID] = contact
	}
	testContacts := make(map[string]bool, len(c.TestContacts))
	for _, uuid := range c.TestContacts {
		testContacts[uuid] = true
	}

	records := make([]*provenance.Record, 0, len(runs))
	for _, run := range runs {
		contact, ok := byUUID[run.Contact.UUID]
		if !ok {
			logger.Warn("run references a contact absent from the fetched contact set, dropping",
				"run", run.ID, "contact", run.Contact.UUID)
			continue
		}
		if len(contact.URNs) == 0 {
			logger.Warn("contact has no URNs, dropping run",
				"run", run.ID, "contact", contact.UUID)
			continue
		}

		pseudonym, err := c.IDs.Add(ctx, contact.URNs[0])
		if err != nil {
			return nil, fmt.Errorf("pseudonymizing contact %s: %w", contact.UUID, err)
		}

		flow := run.Flow.Name
		fields := map[string]any{
			ParticipantKey:     pseudonym,
			"run_id - " + flow: run.ID,
		}
		for category, value := range run.Values {
			title := titleCase(category)
			fields[title+" (Category) - "+flow] = value.Category
			fields[title+" (Value) - "+flow] = value.Value
			// "input" in the API is "text" in the platform's own
			// exports; match the exports.
			fields[title+" (Text) - "+flow] = value.Input
			fields[title+" (Name) - "+flow] = value.Name
			fields[title+" (Time) - "+flow] = value.Time.Format(time.RFC3339Nano)
			fields[title+" (Run ID) - "+flow] = run.ID
		}

		if testContacts[contact.UUID] {
			fields["test_run"] = true
		} else if len(contact.URNs) > 1 {
			return nil, fmt.Errorf("non-test contact %s has %d URNs, expected exactly one", contact.UUID, len(contact.URNs))
		}

		fields["created_on - "+flow] = run.CreatedOn.Format(time.RFC3339Nano)
		fields["modified_on - "+flow] = run.ModifiedOn.Format(time.RFC3339Nano)
		if run.ExitedOn != nil {
			fields["exited_on - "+flow] = run.ExitedOn.Format(time.RFC3339Nano)
		} else {
			fields["exited_on - "+flow] = nil
		}
		fields["exit_type - "+flow] = run.ExitType

		records = append(records, provenance.New(fields, c.Producer, now))
	}
	return records, nil
}

// CoalesceRuns folds records sharing a value under key into a single
// record each. The first record seen for a key absorbs the later
// ones, so with input in ascending modification order the surviving
// visible values are the most recently modified. Records missing the
// key pass through unfolded.
func CoalesceRuns(records []*provenance.Record, key, producer string, now time.Time) []*provenance.Record {
	coalesced := make(map[string]*provenance.Record)
	var out []*provenance.Record
	for _, record := range records {
		value, ok := record.Lookup(key)
		if !ok {
			out = append(out, record)
			continue
		}
		id := coalesceKey(value)
		if existing, seen := coalesced[id]; seen {
			existing.Coalesce(record, producer, now)
			continue
		}
		coalesced[id] = record
		out = append(out, record)
	}
	return out
}

// coalesceKey renders a field value as a canonical key string. Run
// ids are int64 on a freshly converted record but float64 on a record
// reloaded from a JSON export, and fmt.Sprint renders large float64s
// in exponent notation. Both representations must map to the same key
// or a re-seen run is appended instead of folded.
func coalesceKey(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(value)
	}
}

// RunWatermark returns the latest modification time across records
// for the given flow, for resuming an incremental fetch from a prior
// export. Returns the zero time when no record carries one.
func RunWatermark(records []*provenance.Record, flow string) (time.Time, error) {
	var watermark time.Time
	key := "modified_on - " + flow
	for _, record := range records {
		value, ok := record.Lookup(key)
		if !ok || value == nil {
			continue
		}
		text, ok := value.(string)
		if !ok {
			return time.Time{}, fmt.Errorf("field %q holds %T, expected a timestamp string", key, value)
		}
		modified, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing %q: %w", key, err)
		}
		if modified.After(watermark) {
			watermark = modified
		}
	}
	return watermark, nil
}

// titleCase uppercases the first letter of each space-separated word
// and lowercases the rest, matching the platform's column titles.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
