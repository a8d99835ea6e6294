// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package ratelimit provides the process-wide sliding window limiter shared by
// every delivery that calls back out to a provider API.
package ratelimit

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// GlobalScope is shared by every caller regardless of owner.
	GlobalScope = "global"

	// DefaultWindow is the length of one counting window.
	DefaultWindow = 60 * time.Second
	// DefaultMaxRequests stays just below Fathom's 60 requests per minute.
	DefaultMaxRequests = 55
	// DefaultJitter spreads out callers released at the same window edge.
	DefaultJitter = 200 * time.Millisecond
)

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per scope in fixed windows that restart once they
// elapse. It lives for the whole process and is safe for concurrent use.
// Idle scopes are evicted after two windows so per-owner scopes do not
// accumulate.
type Limiter struct {
	mu          sync.Mutex
	windows     *cache.Cache
	window      time.Duration
	maxRequests int
	jitter      time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Config holds limiter settings. Zero values take the defaults.
type Config struct {
	Window      time.Duration
	MaxRequests int
	Jitter      time.Duration
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	} else if cfg.Jitter == 0 {
		cfg.Jitter = DefaultJitter
	}

	return &Limiter{
		windows:     cache.New(2*cfg.Window, cfg.Window),
		window:      cfg.Window,
		maxRequests: cfg.MaxRequests,
		jitter:      cfg.Jitter,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Wait blocks until the scope has budget in its current window, then takes
// one slot. It only fails when ctx is done.
func (l *Limiter) Wait(ctx context.Context, scope string) error {
	for {
		wait, ok := l.reserve(scope)
		if ok {
			return nil
		}

		slog.DebugContext(ctx, "rate limit reached, waiting for next window",
			"scope", scope,
			"wait", wait.String(),
		)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Allow takes one slot if the scope has budget and reports whether it did.
func (l *Limiter) Allow(scope string) bool {
	_, ok := l.reserve(scope)
	return ok
}

// Remaining returns the unused budget of the scope's current window.
func (l *Limiter) Remaining(scope string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(scope)
	return max(l.maxRequests-w.count, 0)
}

// UpdateFromHeaders applies an upstream Retry-After to the scope so every
// caller sharing it waits at least that long. Both delta-seconds and HTTP
// dates are accepted. It returns the pause applied, zero when none was.
func (l *Limiter) UpdateFromHeaders(scope string, h http.Header) time.Duration {
	pause := retryAfter(h.Get("Retry-After"), l.now())
	if pause <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(scope)
	// Exhaust the window and shift its start so the next slot opens after pause.
	resumeAt := l.now().Add(pause)
	if w.start.Add(l.window).Before(resumeAt) {
		w.start = resumeAt.Add(-l.window)
	}
	w.count = l.maxRequests
	l.windows.Set(scope, w, cache.DefaultExpiration)
	return pause
}

func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return at.Sub(now)
	}
	return 0
}

func (l *Limiter) reserve(scope string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(scope)
	if w.count >= l.maxRequests {
		elapsed := l.now().Sub(w.start)
		wait := l.window - elapsed
		if l.jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(l.jitter)))
		}
		return wait, false
	}

	w.count++
	l.windows.Set(scope, w, cache.DefaultExpiration)
	return 0, true
}

// current returns the scope's window, restarting it when it has elapsed.
// Callers hold l.mu.
func (l *Limiter) current(scope string) *window {
	now := l.now()
	if v, found := l.windows.Get(scope); found {
		w := v.(*window)
		if now.Sub(w.start) < l.window {
			return w
		}
		w.start, w.count = now, 0
		return w
	}
	w := &window{start: now}
	l.windows.Set(scope, w, cache.DefaultExpiration)
	return w
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
