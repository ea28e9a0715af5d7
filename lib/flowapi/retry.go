// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/bureau-foundation/flowmirror/lib/clock"
)

// maxAttempts is the total number of times a single operation is
// attempted before its error is surfaced to the caller. Applies to
// rate-limit and transient failures alike.
const maxAttempts = 5

// executor applies the bounded retry policy to a single remote
// operation. It is pure request-shaping: it never alters operation
// semantics, so non-idempotent operations retried here are
// at-least-once (see the package comment).
type executor struct {
	clock  clock.Clock
	logger *slog.Logger

	// jitter returns the random backoff term added to the
	// server-suggested Retry-After on rate-limit failures. Replaced
	// in tests for determinism.
	jitter func(attempt int) time.Duration
}

func newExecutor(clk clock.Clock, logger *slog.Logger) *executor {
	return &executor{
		clock:  clk,
		logger: logger,
		jitter: defaultJitter,
	}
}

// defaultJitter returns a uniformly random duration in
// [0, 2^min(attempt, 6)) seconds. The cap keeps the worst-case extra
// wait at just over a minute regardless of attempt count.
func defaultJitter(attempt int) time.Duration {
	exponent := attempt
	if exponent > 6 {
		exponent = 6
	}
	ceiling := time.Duration(int64(1)<<exponent) * time.Second
	//nolint:gosec // The random delay is for jitter, not security.
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// execute runs op, retrying per the policy in the package comment.
// The description appears in backoff log lines and identifies the
// operation (e.g. "GET /api/v2/contacts.json").
func (exec *executor) execute(ctx context.Context, description string, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		retry, rateLimited := retryable(err)
		if !retry || attempt >= maxAttempts {
			return err
		}

		var wait time.Duration
		if rateLimited {
			var apiError *APIError
			errors.As(err, &apiError)
			wait = apiError.RetryAfter + exec.jitter(attempt)
			exec.logger.Info("rate limited, backing off",
				"operation", description,
				"attempt", attempt,
				"wait", wait,
			)
		} else {
			exec.logger.Warn("transient failure, retrying",
				"operation", description,
				"attempt", attempt,
				"error", err,
			)
		}

		if wait > 0 {
			select {
			case <-exec.clock.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
