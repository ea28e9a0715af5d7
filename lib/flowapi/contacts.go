// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ListContacts returns an iterator over contacts whose modified_on
// falls in [afterInclusive, beforeExclusive). Zero bounds are open.
// Pages arrive in the platform's descending modified_on order.
func (client *Client) ListContacts(afterInclusive, beforeExclusive time.Time) *PageIterator[Contact] {
	return list[Contact](client, "/contacts.json", timeWindowQuery(afterInclusive, beforeExclusive))
}

// UpdateContact creates or updates the contact identified by urn,
// setting its name and the given field values. Fields absent from the
// map are left untouched on the platform; a nil value clears the
// field. The operation is idempotent by URN, so it is safe under the
// executor's at-least-once retry.
func (client *Client) UpdateContact(ctx context.Context, urn, name string, fields map[string]*string) (*Contact, error) {
	query := url.Values{}
	query.Set("urn", urn)

	body := struct {
		Name   string             `json:"name,omitempty"`
		Fields map[string]*string `json:"fields,omitempty"`
	}{Name: name, Fields: fields}

	var updated Contact
	if err := client.request(ctx, http.MethodPost, "/contacts.json", query, body, &updated); err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}
	return &updated, nil
}

// bulkActionBatchSize caps the number of contacts per contact-action
// call. The platform rejects larger batches.
const bulkActionBatchSize = 100

// InterruptContacts interrupts the active flow runs of the given
// contacts. Batches of at most 100 contacts are issued sequentially,
// each individually subject to the retry policy; a failure in batch N
// does not roll back batches 1..N-1, and re-running the interrupt for
// already-interrupted contacts is a no-op.
func (client *Client) InterruptContacts(ctx context.Context, contactUUIDs []string) error {
	for start := 0; start < len(contactUUIDs); start += bulkActionBatchSize {
		end := min(start+bulkActionBatchSize, len(contactUUIDs))

		body := struct {
			Contacts []string `json:"contacts"`
			Action   string   `json:"action"`
		}{Contacts: contactUUIDs[start:end], Action: "interrupt"}

		if err := client.request(ctx, http.MethodPost, "/contact_actions.json", nil, body, nil); err != nil {
			return fmt.Errorf("interrupting contacts %d..%d of %d: %w", start, end-1, len(contactUUIDs), err)
		}
	}
	return nil
}
