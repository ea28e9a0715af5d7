// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"time"
)

// ListRuns returns an iterator over runs of the given flow (all flows
// when flowUUID is empty) whose modified_on falls in [afterInclusive,
// beforeExclusive). Zero bounds are open.
//
// The live store pages runs in descending modified_on order; callers
// that need ascending order (anything feeding a snapshot) must
// reverse the collected results. The fetch package does this.
func (client *Client) ListRuns(flowUUID string, afterInclusive, beforeExclusive time.Time) *PageIterator[Run] {
	query := timeWindowQuery(afterInclusive, beforeExclusive)
	if flowUUID != "" {
		query.Set("flow", flowUUID)
	}
	return list[Run](client, "/runs.json", query)
}
