// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity maps external identifiers (URNs, phone numbers) to
// stable pseudonymous ids.
//
// Raw identifiers never appear in snapshots or exports; every
// identifier is passed through the table first and only the pseudonym
// is persisted downstream. The mapping is durable in SQLite so the
// same identifier yields the same pseudonym across runs, which is
// what makes longitudinal joins over exported data possible without
// holding the raw identifier anywhere but here.
package identity
