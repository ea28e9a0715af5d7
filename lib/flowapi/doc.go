// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package flowapi is a typed client for the flow-management platform's
// REST API: contacts, flow runs, contact fields, broadcasts, and the
// cold-storage archive index.
//
// Every request goes through a rate-limited executor with bounded
// retry: rate-limit responses (429 with a Retry-After header) back off
// for the server-suggested duration plus exponential jitter, transient
// gateway errors (502/503/504) retry without the jitter term, and
// anything else fails immediately. A call that exhausts its retries
// returns the final error to the caller.
//
// The client never reorders or deduplicates what the platform returns;
// that is the job of the fetch and snapshot packages. The one wire
// quirk callers must know about is documented on ListRuns: the live
// store pages runs newest-first.
//
// Writes are at-least-once: a create or update retried after an
// observed timeout may have already been applied server-side. The
// platform does not expose a deduplication token, so callers must keep
// their writes idempotent (updates keyed by URN are; broadcasts are
// not and can double-send under retry).
package flowapi
