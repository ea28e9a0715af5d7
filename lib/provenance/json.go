// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Only the history is serialized. The visible field map is replayed
// from the entries on import, which keeps the two representations
// from drifting apart in stored files.

// MarshalJSON encodes the record as its history array.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.history)
}

// UnmarshalJSON decodes a history array and replays it to rebuild
// the visible field map.
func (r *Record) UnmarshalJSON(data []byte) error {
	var history []Entry
	if err := json.Unmarshal(data, &history); err != nil {
		return err
	}
	r.fields = make(map[string]any)
	r.history = nil
	for _, entry := range history {
		r.append(entry.Fields, entry.Producer, entry.Location, entry.Timestamp)
	}
	return nil
}

// WriteAll writes records to w, one JSON history per line.
func WriteAll(w io.Writer, records []*Record) error {
	buffered := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffered)
	for i, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return buffered.Flush()
}

// ReadAll reads line-delimited records written by WriteAll.
func ReadAll(r io.Reader) ([]*Record, error) {
	var records []*Record
	decoder := json.NewDecoder(r)
	for {
		record := new(Record)
		if err := decoder.Decode(record); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return nil, fmt.Errorf("decoding record %d: %w", len(records), err)
		}
		records = append(records, record)
	}
}
