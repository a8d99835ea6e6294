// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
)

// millisecondThreshold separates second and millisecond epoch values. Any
// value below it is read as seconds.
const millisecondThreshold = 10_000_000_000

// FreshnessResult is the outcome of a replay check. Reason is empty when
// Valid is true.
type FreshnessResult struct {
	Valid  bool
	Reason string
}

// ReplayGuard rejects signed timestamps that are too old or too far ahead.
type ReplayGuard struct {
	MaxAge          time.Duration
	FutureTolerance time.Duration

	now func() time.Time
}

// NewReplayGuard creates a guard. Non-positive durations fall back to the defaults.
func NewReplayGuard(maxAge, futureTolerance time.Duration) *ReplayGuard {
	if maxAge <= 0 {
		maxAge = constants.DefaultReplayMaxAge
	}
	if futureTolerance <= 0 {
		futureTolerance = constants.DefaultReplayFutureTolerance
	}
	return &ReplayGuard{
		MaxAge:          maxAge,
		FutureTolerance: futureTolerance,
		now:             time.Now,
	}
}

// CheckFreshness validates a raw timestamp header value.
func (g *ReplayGuard) CheckFreshness(raw string) FreshnessResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FreshnessResult{Reason: "missing timestamp"}
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return FreshnessResult{Reason: "malformed timestamp"}
	}

	var ts time.Time
	if value < millisecondThreshold {
		ts = time.Unix(value, 0)
	} else {
		ts = time.UnixMilli(value)
	}

	now := g.clock()
	age := now.Sub(ts)
	switch {
	case age > g.MaxAge:
		return FreshnessResult{Reason: fmt.Sprintf("timestamp too old: %s exceeds %s", age.Truncate(time.Second), g.MaxAge)}
	case -age > g.FutureTolerance:
		return FreshnessResult{Reason: fmt.Sprintf("timestamp in the future: %s ahead", (-age).Truncate(time.Second))}
	}
	return FreshnessResult{Valid: true}
}

func (g *ReplayGuard) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}
