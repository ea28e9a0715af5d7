// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// page is the platform's cursor pagination envelope.
type page struct {
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  json.RawMessage `json:"results"`
}

// PageIterator lazily fetches pages of results from a paginated list
// endpoint. Each call to Next fetches one page and returns its items;
// it returns nil, nil once all pages are consumed. Every page fetch
// goes through the rate-limited executor.
//
// The iterator is not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	done    bool
}

// list creates a PageIterator for a paginated GET endpoint.
func list[T any](client *Client, path string, query url.Values) *PageIterator[T] {
	requestURL := client.baseURL + apiRoot + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	return &PageIterator[T]{client: client, nextURL: requestURL}
}

// Next fetches the next page of results. Returns nil, nil when no
// more pages are available.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	var envelope page
	if err := iterator.client.requestURL(ctx, http.MethodGet, iterator.nextURL, nil, &envelope); err != nil {
		return nil, err
	}

	var items []T
	if len(envelope.Results) > 0 {
		if err := json.Unmarshal(envelope.Results, &items); err != nil {
			return nil, err
		}
	}

	if envelope.Next == nil || *envelope.Next == "" {
		iterator.done = true
		iterator.nextURL = ""
	} else {
		iterator.nextURL = *envelope.Next
	}

	return items, nil
}

// Collect fetches all remaining pages and returns the items
// concatenated in page order.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for !iterator.done {
		items, err := iterator.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}
