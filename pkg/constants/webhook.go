// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Webhook ingestion limits
const (
	// MaxWebhookBodyBytes caps the raw body read from a webhook request.
	MaxWebhookBodyBytes = 10 << 20

	// DefaultReplayMaxAge is how old a signed timestamp may be.
	DefaultReplayMaxAge = 5 * time.Minute

	// DefaultReplayFutureTolerance is how far ahead of the local clock a timestamp may be.
	DefaultReplayFutureTolerance = time.Minute

	// DefaultRateLimitPerMinute is the per-scope request budget for upstream calls
	// and for automation senders.
	DefaultRateLimitPerMinute = 100
)
