// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive reads cold-storage archive segments.
//
// The platform rotates records older than ninety days out of the live
// API into daily and monthly archive segments: gzip-compressed files
// of newline-delimited JSON, one record per line, with a declared
// record count per segment. This package downloads a segment, streams
// it through decompression, decodes the records, and verifies the
// decoded count against the declared one. A count mismatch means the
// segment is corrupt and yields an IntegrityError; no records are
// returned in that case.
package archive
