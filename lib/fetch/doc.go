// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch combines the platform's cold-storage archives and its
// live paginated API into one deduplicated, time-bounded record set.
//
// Runs older than the platform's retention window live only in archive
// segments; newer runs live only in the live store. A fetch intersects
// the requested time window with the archive segments, filters archive
// records to the window by their own modification time, queries the
// live store for the same window, and returns the concatenation in
// ascending modification order. The same record id appearing in both
// sources means the record moved between stores mid-fetch; that fetch
// is inconsistent and fails with a DuplicateIDError rather than
// guessing which copy is current.
//
// The package also converts fetched runs into provenance records for
// export, pseudonymizing contact identifiers through an identity
// table on the way.
package fetch
