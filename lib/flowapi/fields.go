// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"fmt"
	"net/http"
)

// ListFields returns all contact field keys defined on the instance.
func (client *Client) ListFields(ctx context.Context) ([]Field, error) {
	fields, err := list[Field](client, "/fields.json", nil).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	return fields, nil
}

// CreateField defines a new contact field with the given label. The
// platform derives the key from the label. Text is the only value
// type the sync pipeline uses.
func (client *Client) CreateField(ctx context.Context, label string) (*Field, error) {
	body := struct {
		Label     string `json:"label"`
		ValueType string `json:"value_type"`
	}{Label: label, ValueType: "text"}

	var created Field
	if err := client.request(ctx, http.MethodPost, "/fields.json", nil, body, &created); err != nil {
		return nil, fmt.Errorf("creating field %q: %w", label, err)
	}
	return &created, nil
}
