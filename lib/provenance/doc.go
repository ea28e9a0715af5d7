// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package provenance implements the record model threaded through the
// sync pipeline: a field map whose every value can be traced to the
// producer, call site, and time that set it.
//
// A Record carries an append-only history of entries; the visible
// field map is the replay of that history, with later entries
// shadowing earlier ones. Appending never destroys prior entries.
// The one deliberate exception is Coalesce, which folds another
// record's visible fields in as a single new entry, trading the other
// record's history for size.
//
// A field explicitly set to null (the platform cleared it) is distinct
// from a field that was never set: Lookup reports presence separately
// from value. Downstream reconciliation depends on the distinction.
package provenance
