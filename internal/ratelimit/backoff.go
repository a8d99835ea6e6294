// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package ratelimit

import (
	"math"
	"math/rand"
	"time"
)

// Default retry configuration
const (
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Backoff computes exponential delays with +-25% jitter for retrying
// rate-limited or failing upstream calls.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Duration returns the delay before retry number attempt (zero based).
func (b Backoff) Duration(attempt int) time.Duration {
	initial, maxBackoff, multiplier := b.Initial, b.Max, b.Multiplier
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	if multiplier <= 0 {
		multiplier = DefaultBackoffMultiplier
	}

	if attempt <= 0 {
		return initial
	}

	backoff := float64(initial) * math.Pow(multiplier, float64(attempt))
	if time.Duration(backoff) > maxBackoff {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	withJitter := time.Duration(backoff + jitter)
	if withJitter < initial {
		withJitter = initial
	}
	return withJitter
}
