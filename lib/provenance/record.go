// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"
)

// Entry is one step in a record's history: the fields that step set,
// and where, by whom, and when it happened.
type Entry struct {
	// Fields holds the key→value pairs this entry set. A nil value
	// is an explicit null, distinct from the key being absent.
	Fields map[string]any `json:"fields"`

	// Producer identifies the user or pipeline that appended the
	// entry.
	Producer string `json:"producer"`

	// Location is the source location (file:line) of the appending
	// call.
	Location string `json:"location"`

	// Timestamp is when the entry was appended.
	Timestamp time.Time `json:"timestamp"`
}

// Record is a provenance-tracked field map. The visible values are
// the replay of the history: the current value of a field is always
// the one from the last entry that set it.
type Record struct {
	fields  map[string]any
	history []Entry
}

// New creates a record whose history is a single entry setting the
// given fields. The entry's location is the caller of New.
func New(fields map[string]any, producer string, timestamp time.Time) *Record {
	record := &Record{fields: make(map[string]any, len(fields))}
	record.append(fields, producer, callLocation(2), timestamp)
	return record
}

// Append adds a history entry setting the given fields. Later entries
// shadow earlier ones; fields not named keep their prior value.
func (r *Record) Append(fields map[string]any, producer string, timestamp time.Time) {
	r.append(fields, producer, callLocation(2), timestamp)
}

func (r *Record) append(fields map[string]any, producer, location string, timestamp time.Time) {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
		r.fields[key] = value
	}
	r.history = append(r.history, Entry{
		Fields:    copied,
		Producer:  producer,
		Location:  location,
		Timestamp: timestamp,
	})
}

// Get returns the current value of key, or nil when the key is
// explicitly null or was never set. Use Lookup when the distinction
// matters.
func (r *Record) Get(key string) any {
	return r.fields[key]
}

// Lookup returns the current value of key and whether the key has
// ever been set. An explicitly null field returns (nil, true).
func (r *Record) Lookup(key string) (any, bool) {
	value, ok := r.fields[key]
	return value, ok
}

// Fields returns a copy of the visible field map.
func (r *Record) Fields() map[string]any {
	copied := make(map[string]any, len(r.fields))
	for key, value := range r.fields {
		copied[key] = value
	}
	return copied
}

// Len returns the number of visible fields.
func (r *Record) Len() int { return len(r.fields) }

// History returns the record's entries, oldest first. The returned
// slice is shared; callers must not modify it.
func (r *Record) History() []Entry { return r.history }

// Coalesce folds other's visible fields into r as one new history
// entry. Other's own entry-by-entry history is not carried over;
// callers that need it must keep the source record.
func (r *Record) Coalesce(other *Record, producer string, timestamp time.Time) {
	r.append(other.Fields(), producer, callLocation(2), timestamp)
}

// callLocation returns the file:line of the caller skip frames up.
func callLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
