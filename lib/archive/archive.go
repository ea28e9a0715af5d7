// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/bureau-foundation/flowmirror/lib/flowapi"
)

// Source lists archive segments and serves their contents. It is
// satisfied by flowapi.Client.
type Source interface {
	ListArchives(ctx context.Context, archiveType string) ([]flowapi.Archive, error)
	DownloadArchive(ctx context.Context, segment flowapi.Archive) (io.ReadCloser, error)
}

// IntegrityError reports a segment whose decoded record count does
// not match the count the platform declared for it.
type IntegrityError struct {
	Segment  flowapi.Archive
	Declared int
	Decoded  int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("archive segment %s/%s starting %s: decoded %d records, declared %d",
		e.Segment.ArchiveType, e.Segment.Period, e.Segment.StartDate, e.Decoded, e.Declared)
}

// List returns the segments of the given type, oldest first.
func List(ctx context.Context, source Source, archiveType string) ([]flowapi.Archive, error) {
	return source.ListArchives(ctx, archiveType)
}

// Read downloads a segment and decodes every record in it. Segments
// with a declared count of zero are skipped without a download; the
// platform serves no file for them.
func Read[T any](ctx context.Context, source Source, segment flowapi.Archive) ([]T, error) {
	if segment.RecordCount == 0 {
		return nil, nil
	}
	body, err := source.DownloadArchive(ctx, segment)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	uncompressed, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("decompressing archive segment: %w", err)
	}
	defer uncompressed.Close()

	var records []T
	decoder := json.NewDecoder(uncompressed)
	for {
		var record T
		if err := decoder.Decode(&record); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decoding archive record %d: %w", len(records), err)
		}
		records = append(records, record)
	}

	if len(records) != segment.RecordCount {
		return nil, &IntegrityError{
			Segment:  segment,
			Declared: segment.RecordCount,
			Decoded:  len(records),
		}
	}
	return records, nil
}
