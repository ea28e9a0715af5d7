// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/flowmirror/lib/clock"
)

// apiRoot is the path prefix for all platform API endpoints.
const apiRoot = "/api/v2"

// maxResponseSize bounds JSON API response body reads: 256 MB. This
// exists solely to prevent a pathological response from exhausting
// memory; legitimate pages are orders of magnitude smaller. Archive
// downloads are streamed and not subject to this bound.
const maxResponseSize int64 = 256 << 20

// Config holds configuration for creating a platform API Client.
type Config struct {
	// BaseURL is the root URL of the platform instance, e.g.
	// "https://flows.example.org". Required. Must use HTTPS unless
	// the host is localhost (local development servers).
	BaseURL string

	// Token is the organisation API token. Required.
	Token string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations for retry backoff. Defaults to
	// clock.Real(). Inject clock.Fake() in tests.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Client is a typed platform API client with automatic authentication,
// rate-limit-aware bounded retry, and cursor pagination.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	exec       *executor
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a platform API client from the given
// configuration. Returns an error if the configuration is invalid.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("flowapi: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("flowapi: invalid BaseURL: %w", err)
	}
	if parsed.Scheme != "https" && !isLocalhost(parsed.Hostname()) {
		return nil, fmt.Errorf("flowapi: API client requires HTTPS (got %q)", baseURL)
	}

	if config.Token == "" {
		return nil, fmt.Errorf("flowapi: Token is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		httpClient: httpClient,
		exec:       newExecutor(clk, logger),
		clock:      clk,
		logger:     logger,
	}, nil
}

// isLocalhost reports whether host is a local development address.
// The original deployment workflow runs development instances on
// plain HTTP at localhost.
func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// request executes one API call through the retry executor. The path
// is relative to the API root (e.g. "/contacts.json"). A nil result
// discards the response body.
func (client *Client) request(ctx context.Context, method, path string, query url.Values, requestBody any, result any) error {
	requestURL := client.baseURL + apiRoot + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	return client.requestURL(ctx, method, requestURL, requestBody, result)
}

// requestURL is request for callers that already hold an absolute URL
// (pagination cursors embed the full next-page URL).
func (client *Client) requestURL(ctx context.Context, method, requestURL string, requestBody any, result any) error {
	description := method + " " + requestURL
	return client.exec.execute(ctx, description, func() error {
		return client.requestOnce(ctx, method, requestURL, requestBody, result)
	})
}

// requestOnce performs a single HTTP round trip: encode, send,
// classify the status, decode. Retry decisions are made by the
// executor from the typed error this returns.
func (client *Client) requestOnce(ctx context.Context, method, requestURL string, requestBody any, result any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("flowapi: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("flowapi: creating request: %w", err)
	}
	request.Header.Set("Authorization", "Token "+client.token)
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("flowapi: %s %s: %w", method, requestURL, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("flowapi: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return parseAPIError(response, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("flowapi: decoding response: %w", err)
		}
	}
	return nil
}

// download streams the body of a GET to an arbitrary URL (archive
// segment downloads use pre-signed URLs outside the API root, with no
// auth header). The caller must close the returned reader. Each call
// is retried under the same executor policy as API requests; the
// response body is only handed to the caller once a 2xx status has
// been received.
func (client *Client) download(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := client.exec.execute(ctx, "GET "+downloadURL, func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
		if err != nil {
			return fmt.Errorf("flowapi: creating download request: %w", err)
		}
		response, err := client.httpClient.Do(request)
		if err != nil {
			return fmt.Errorf("flowapi: GET %s: %w", downloadURL, err)
		}
		if response.StatusCode != http.StatusOK {
			defer response.Body.Close()
			errorBody, _ := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
			return parseAPIError(response, errorBody)
		}
		body = response.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// parseAPIError builds an *APIError from a non-2xx response.
func parseAPIError(response *http.Response, body []byte) *APIError {
	apiError := &APIError{StatusCode: response.StatusCode}

	var wireError struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Detail != "" {
		apiError.Message = wireError.Detail
	} else {
		apiError.Message = strings.TrimSpace(string(body))
	}

	if retryStr := response.Header.Get("Retry-After"); retryStr != "" {
		if seconds, err := strconv.Atoi(retryStr); err == nil && seconds > 0 {
			apiError.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	return apiError
}

// timeWindowQuery encodes an [afterInclusive, beforeExclusive) window
// as the platform's after/before query parameters. The platform's
// "before" bound is inclusive, so the exclusive end is shifted back by
// one microsecond, the platform's timestamp resolution. Zero times are
// omitted.
func timeWindowQuery(afterInclusive, beforeExclusive time.Time) url.Values {
	query := url.Values{}
	if !afterInclusive.IsZero() {
		query.Set("after", afterInclusive.UTC().Format(timestampFormat))
	}
	if !beforeExclusive.IsZero() {
		beforeInclusive := beforeExclusive.Add(-time.Microsecond)
		query.Set("before", beforeInclusive.UTC().Format(timestampFormat))
	}
	return query
}
