// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestLimiter(maxRequests int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)}
	l := New(Config{Window: time.Minute, MaxRequests: maxRequests, Jitter: -1})
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestLimiter_UnderLimitDoesNotWait(t *testing.T) {
	l, clock := newTestLimiter(55)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(ctx, "owner-1"))
	}
	assert.Empty(t, clock.slept)
	assert.Equal(t, 5, l.Remaining("owner-1"))
}

func TestLimiter_BlocksUntilWindowElapses(t *testing.T) {
	l, clock := newTestLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, GlobalScope))
	}
	clock.now = clock.now.Add(20 * time.Second)

	require.NoError(t, l.Wait(ctx, GlobalScope))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 40*time.Second, clock.slept[0])
	assert.Equal(t, 2, l.Remaining(GlobalScope))
}

func TestLimiter_ScopesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1)

	assert.True(t, l.Allow("owner-a"))
	assert.False(t, l.Allow("owner-a"))
	assert.True(t, l.Allow("owner-b"))
}

func TestLimiter_WindowResets(t *testing.T) {
	l, clock := newTestLimiter(2)

	assert.True(t, l.Allow("s"))
	assert.True(t, l.Allow("s"))
	assert.False(t, l.Allow("s"))

	clock.now = clock.now.Add(time.Minute)
	assert.True(t, l.Allow("s"))
	assert.Equal(t, 1, l.Remaining("s"))
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l, _ := newTestLimiter(1)
	require.True(t, l.Allow("s"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx, "s"), context.Canceled)
}

func TestLimiter_ConcurrentAllowNeverExceedsBudget(t *testing.T) {
	l, _ := newTestLimiter(20)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}

func TestLimiter_UpdateFromHeaders(t *testing.T) {
	l, clock := newTestLimiter(10)
	ctx := context.Background()

	h := http.Header{}
	h.Set("Retry-After", "90")
	assert.Equal(t, 90*time.Second, l.UpdateFromHeaders("owner-1", h))
	assert.Equal(t, 0, l.Remaining("owner-1"))

	require.NoError(t, l.Wait(ctx, "owner-1"))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 90*time.Second, clock.slept[0])
	assert.Equal(t, 9, l.Remaining("owner-1"))

	assert.Zero(t, l.UpdateFromHeaders("owner-1", http.Header{}))
	h.Set("Retry-After", "soon")
	assert.Zero(t, l.UpdateFromHeaders("owner-1", h))
}

func TestNew_Defaults(t *testing.T) {
	l := New(Config{})
	assert.Equal(t, DefaultWindow, l.window)
	assert.Equal(t, DefaultMaxRequests, l.maxRequests)
	assert.Equal(t, DefaultJitter, l.jitter)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
