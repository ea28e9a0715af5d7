// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile converges the same logical contacts held on two
// independent platform instances.
//
// Contacts are matched by their URN with any display suffix stripped.
// A contact present on only one instance is copied to the other in
// full. A contact present on both with identical name and fields
// needs no update. A differing pair is merged field by field with
// last-writer-wins by record modification time, and the same merged
// update is pushed to both instances so they converge rather than
// only overwriting the stale side.
//
// If the same contact changed on both instances since the previous
// pass, interim edits on the older side can be lost for fields the
// newer side also touched. This is the accepted cost of the recency
// policy; the merge drops no-op and null fields from the payload to
// narrow the window, not to close it.
package reconcile
