// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdExtension marks snapshot files stored with zstd compression.
// Large mirrors (hundreds of thousands of runs) compress roughly 10x;
// contact snapshots are usually small enough to keep as plain JSON
// lines for greppability.
const zstdExtension = ".zst"

// Write serializes the snapshot as line-delimited JSON, one record
// per line, in the deterministic Records() order.
func (s *Snapshot[T]) Write(w io.Writer) error {
	buffered := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffered)
	for _, record := range s.Records() {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("snapshot: encoding record %q: %w", record.RecordID(), err)
		}
	}
	return buffered.Flush()
}

// Read deserializes a snapshot from line-delimited JSON. The
// watermark is recomputed from the records, not trusted from disk.
func Read[T Record](r io.Reader) (*Snapshot[T], error) {
	s := New[T]()
	decoder := json.NewDecoder(r)
	for line := 0; ; line++ {
		var record T
		if err := decoder.Decode(&record); err == io.EOF {
			return s, nil
		} else if err != nil {
			return nil, fmt.Errorf("snapshot: decoding record on line %d: %w", line+1, err)
		}
		s.Merge([]T{record})
	}
}

// Save writes the snapshot to path atomically (temp file plus rename,
// so a crashed pass never leaves a truncated snapshot behind). A path
// ending in ".zst" is zstd-compressed.
func (s *Snapshot[T]) Save(path string) error {
	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: creating temp file: %w", err)
	}
	tempPath := temp.Name()
	defer os.Remove(tempPath)

	var writeErr error
	if strings.HasSuffix(path, zstdExtension) {
		compressor, err := zstd.NewWriter(temp)
		if err != nil {
			temp.Close()
			return fmt.Errorf("snapshot: creating zstd writer: %w", err)
		}
		writeErr = s.Write(compressor)
		if closeErr := compressor.Close(); writeErr == nil {
			writeErr = closeErr
		}
	} else {
		writeErr = s.Write(temp)
	}

	if closeErr := temp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("snapshot: writing %s: %w", path, writeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("snapshot: replacing %s: %w", path, err)
	}
	return nil
}

// Load reads a snapshot from path, decompressing when the path ends
// in ".zst". A missing file is the caller's concern: drivers treat
// fs.ErrNotExist as "no previous snapshot, fetch everything".
func Load[T Record](path string) (*Snapshot[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, zstdExtension) {
		decompressor, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("snapshot: opening zstd reader: %w", err)
		}
		defer decompressor.Close()
		reader = decompressor
	}

	s, err := Read[T](reader)
	if err != nil {
		return nil, fmt.Errorf("snapshot: loading %s: %w", path, err)
	}
	return s, nil
}
