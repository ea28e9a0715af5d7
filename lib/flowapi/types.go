// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// timestampFormat is the platform's timestamp wire format: RFC 3339
// with microsecond precision. Microseconds are the platform's clock
// resolution; the incremental fetch watermark arithmetic depends on
// that (snapshot package).
const timestampFormat = "2006-01-02T15:04:05.000000Z07:00"

// Contact is a contact profile as returned by the live API and the
// cold-storage archives.
//
// Field values are *string so that an explicit platform null (the
// field was cleared) is distinct from an absent key (the field was
// never set). Downstream reconciliation depends on the distinction.
type Contact struct {
	UUID       string             `json:"uuid"`
	Name       string             `json:"name"`
	Language   string             `json:"language,omitempty"`
	URNs       []string           `json:"urns"`
	Groups     []ObjectRef        `json:"groups,omitempty"`
	Fields     map[string]*string `json:"fields"`
	Blocked    bool               `json:"blocked,omitempty"`
	Stopped    bool               `json:"stopped,omitempty"`
	CreatedOn  time.Time          `json:"created_on"`
	ModifiedOn time.Time          `json:"modified_on"`
}

// RecordID implements snapshot.Record.
func (c Contact) RecordID() string { return c.UUID }

// RecordModifiedOn implements snapshot.Record.
func (c Contact) RecordModifiedOn() time.Time { return c.ModifiedOn }

// Run is one execution of a flow by one contact.
type Run struct {
	ID         int64               `json:"id"`
	UUID       string              `json:"uuid"`
	Flow       ObjectRef           `json:"flow"`
	Contact    ObjectRef           `json:"contact"`
	Responded  bool                `json:"responded"`
	Values     map[string]RunValue `json:"values"`
	CreatedOn  time.Time           `json:"created_on"`
	ModifiedOn time.Time           `json:"modified_on"`
	ExitedOn   *time.Time          `json:"exited_on"`
	ExitType   string              `json:"exit_type,omitempty"`
}

// RecordID implements snapshot.Record.
func (r Run) RecordID() string { return strconv.FormatInt(r.ID, 10) }

// RecordModifiedOn implements snapshot.Record.
func (r Run) RecordModifiedOn() time.Time { return r.ModifiedOn }

// RunValue is one category of response collected during a run.
type RunValue struct {
	// Value is the matched value for the category.
	Value string `json:"value"`

	// Category is the name the flow assigned to the matched value.
	Category string `json:"category"`

	// Input is the raw text the contact sent. The platform's
	// spreadsheet exports label this column "Text".
	Input string `json:"input"`

	// Name is the label of the flow step that collected the value.
	Name string `json:"name"`

	// Time is when the response was recorded.
	Time time.Time `json:"time"`
}

// ObjectRef is a lightweight reference to another platform object.
type ObjectRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Flow is a flow definition summary.
type Flow struct {
	UUID       string    `json:"uuid"`
	Name       string    `json:"name"`
	Archived   bool      `json:"archived"`
	CreatedOn  time.Time `json:"created_on"`
	ModifiedOn time.Time `json:"modified_on"`
}

// Definitions is a flow-definition export: the complete flow
// specifications plus the campaigns and triggers they depend on.
// Individual definitions are kept as raw JSON because their schema is
// versioned by the platform and the export is archived verbatim.
type Definitions struct {
	Version   string            `json:"version"`
	Site      string            `json:"site,omitempty"`
	Flows     []json.RawMessage `json:"flows"`
	Campaigns []json.RawMessage `json:"campaigns"`
	Triggers  []json.RawMessage `json:"triggers"`
}

// Field describes a contact field key.
type Field struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	ValueType string `json:"value_type"`
}

// Archive period values.
const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// Archive entity types. The cold store archives runs and messages;
// contacts live only in the live store.
const (
	ArchiveTypeRun     = "run"
	ArchiveTypeMessage = "message"
)

// Archive describes one compressed batch of historical records held
// in cold storage. Segments cover disjoint, contiguous windows per
// archive type: monthly segments for older data, daily segments for
// the most recent archived period.
type Archive struct {
	ArchiveType string `json:"archive_type"`
	Period      string `json:"period"`
	StartDate   Date   `json:"start_date"`
	RecordCount int    `json:"record_count"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`

	// DownloadURL is a time-limited pre-signed URL for the
	// compressed payload. Empty for segments whose contents were
	// rolled up into a larger period.
	DownloadURL string `json:"download_url"`
}

// EndDate returns the exclusive end of the segment's window.
func (a Archive) EndDate() Date {
	switch a.Period {
	case PeriodMonthly:
		return Date{a.StartDate.AddDate(0, 1, 0)}
	default:
		return Date{a.StartDate.AddDate(0, 0, 1)}
	}
}

// Broadcast is an outgoing message sent to a set of URNs.
type Broadcast struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	URNs      []string  `json:"urns"`
	Status    string    `json:"status"`
	CreatedOn time.Time `json:"created_on"`
}

// Date is a calendar date (no time component) in the platform's
// "2006-01-02" wire format, used for archive segment boundaries.
type Date struct {
	time.Time
}

const dateFormat = "2006-01-02"

// ParseDate parses a calendar date in the platform wire format.
func ParseDate(value string) (Date, error) {
	parsed, err := time.ParseInLocation(dateFormat, value, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("flowapi: invalid date %q: %w", value, err)
	}
	return Date{parsed}, nil
}

// MustDate is ParseDate for tests and constants; panics on error.
func MustDate(value string) Date {
	date, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return date
}

func (d Date) String() string { return d.Format(dateFormat) }

// MarshalJSON encodes the date in the platform wire format.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format(dateFormat))), nil
}

// UnmarshalJSON decodes a date from the platform wire format.
func (d *Date) UnmarshalJSON(data []byte) error {
	value, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("flowapi: invalid date %s", data)
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
