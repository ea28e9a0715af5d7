// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"fmt"
	"net/http"
)

// CreateBroadcast sends text to the given URNs. Batches of at most
// 100 URNs are issued sequentially, each individually subject to the
// retry policy; partial progress is possible on failure. Returns the
// IDs of the broadcasts created.
//
// Broadcast creation is not idempotent: a batch retried after an
// observed timeout may double-send if the original request succeeded
// server-side. The platform offers no deduplication token, so this is
// an accepted at-least-once delivery risk.
func (client *Client) CreateBroadcast(ctx context.Context, text string, urns []string) ([]int64, error) {
	var ids []int64
	for start := 0; start < len(urns); start += bulkActionBatchSize {
		end := min(start+bulkActionBatchSize, len(urns))

		body := struct {
			Text string   `json:"text"`
			URNs []string `json:"urns"`
		}{Text: text, URNs: urns[start:end]}

		var created Broadcast
		if err := client.request(ctx, http.MethodPost, "/broadcasts.json", nil, body, &created); err != nil {
			return ids, fmt.Errorf("creating broadcast for urns %d..%d of %d: %w", start, end-1, len(urns), err)
		}
		ids = append(ids, created.ID)
	}
	return ids, nil
}
