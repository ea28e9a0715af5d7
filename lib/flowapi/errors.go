// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError represents a non-2xx response from the platform API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the error description from the platform. The
	// platform returns JSON bodies with a "detail" field; when the
	// body is not parseable, Message holds the raw body.
	Message string

	// RetryAfter is the server-suggested backoff from the
	// Retry-After header. Zero when the header is absent. Only
	// meaningful on rate-limit responses.
	RetryAfter time.Duration
}

func (err *APIError) Error() string {
	if err.RetryAfter > 0 {
		return fmt.Sprintf("flowapi: HTTP %d: %s (retry after %s)", err.StatusCode, err.Message, err.RetryAfter)
	}
	return fmt.Sprintf("flowapi: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports whether err is a platform rate-limit response
// (429 Too Many Requests).
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports whether err is a transient server failure worth
// retrying: bad gateway, service unavailable, or gateway timeout.
func IsTransient(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	switch apiError.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsNotFound reports whether err is a platform 404 Not Found response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// retryable reports whether err may be retried by the executor, and
// whether the jittered rate-limit backoff term applies.
func retryable(err error) (retry, rateLimited bool) {
	if IsRateLimited(err) {
		return true, true
	}
	return IsTransient(err), false
}
