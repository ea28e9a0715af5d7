// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot holds the local mirror of one entity type: an
// id→latest-record mapping plus a derived watermark, the maximum
// modified_on timestamp across the records.
//
// A snapshot is only ever mutated by merging in a freshly fetched
// delta; per-id replacement is atomic (the remote is the single source
// of truth for the full record) and the watermark advances
// monotonically, never rolling back. Update implements the incremental
// synchronization step: re-fetch from one microsecond past the
// previous watermark, the smallest increment that excludes
// already-seen records while catching any record whose clock exactly
// ties the old watermark, and merge the delta.
//
// Snapshots persist as line-delimited JSON, optionally
// zstd-compressed when the file path ends in ".zst". The watermark is
// never stored: loading recomputes it from the records, so a stale or
// hand-edited value cannot survive a round-trip.
package snapshot
