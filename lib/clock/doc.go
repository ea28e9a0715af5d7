// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.After, or time.Sleep directly. In production, Real()
// provides the standard library behavior. In tests, Fake() provides a
// deterministic clock that advances only when Advance is called, so
// retry backoff behavior can be exercised without real waits.
//
// # Wiring Pattern
//
// Add a Clock field to structs that wait on time:
//
//	type Client struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	c := &Client{clock: clock.Real()}
//
// In tests:
//
//	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c := &Client{clock: clk}
//	// ... start the operation in a goroutine ...
//	clk.WaitForWaiters(1) // wait for the operation to block on After
//	clk.Advance(5 * time.Second) // release it deterministically
package clock
