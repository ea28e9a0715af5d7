// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ListFlows returns an iterator over the instance's flow definitions.
func (client *Client) ListFlows() *PageIterator[Flow] {
	return list[Flow](client, "/flows.json", nil)
}

// FlowUUID resolves a flow name to its UUID. The name must match
// exactly one flow on the instance: no match is an error that lists
// the available flow names (so a typo is diagnosable from the log
// alone), and more than one match is an error because the fetch
// pipeline keys run exports by flow name.
func (client *Client) FlowUUID(ctx context.Context, name string) (string, error) {
	flows, err := client.ListFlows().Collect(ctx)
	if err != nil {
		return "", fmt.Errorf("listing flows: %w", err)
	}

	var matched []Flow
	available := make([]string, 0, len(flows))
	for _, flow := range flows {
		available = append(available, flow.Name)
		if flow.Name == name {
			matched = append(matched, flow)
		}
	}

	switch len(matched) {
	case 0:
		return "", fmt.Errorf("flowapi: flow %q not found (available flows: %s)", name, strings.Join(available, ", "))
	case 1:
		return matched[0].UUID, nil
	default:
		return "", fmt.Errorf("flowapi: flow name %q is not unique (%d matches)", name, len(matched))
	}
}

// FlowDefinitions downloads the definition export for the given flow
// UUIDs, including every campaign and trigger they depend on. The
// definitions endpoint is not paginated; the platform returns the
// whole export in one response.
func (client *Client) FlowDefinitions(ctx context.Context, flowUUIDs ...string) (*Definitions, error) {
	query := url.Values{"dependencies": []string{"all"}}
	for _, uuid := range flowUUIDs {
		query.Add("flow", uuid)
	}

	var definitions Definitions
	if err := client.request(ctx, http.MethodGet, "/definitions.json", query, nil, &definitions); err != nil {
		return nil, fmt.Errorf("fetching flow definitions: %w", err)
	}
	return &definitions, nil
}
