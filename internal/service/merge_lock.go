// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// DefaultMergeLockTTL releases a lock whose holder never came back.
	DefaultMergeLockTTL = 30 * time.Second
	mergeLockPoll       = 25 * time.Millisecond
)

// mergeLock serializes match-and-merge for one owner within this process.
// Entries expire after ttl, so a stuck holder cannot block an owner forever.
// Replicas do not share it; the revision-checked primary write covers them.
type mergeLock struct {
	held *cache.Cache
	ttl  time.Duration

	// mu makes the token check and delete of a release atomic with respect
	// to Add.
	mu   sync.Mutex
	next uint64
}

func newMergeLock(ttl time.Duration) *mergeLock {
	if ttl <= 0 {
		ttl = DefaultMergeLockTTL
	}
	return &mergeLock{
		held: cache.New(ttl, ttl),
		ttl:  ttl,
	}
}

// Acquire blocks until key is free or ctx is done. The returned func
// releases the lock unless it expired and another caller took it over.
func (l *mergeLock) Acquire(ctx context.Context, key string) (func(), error) {
	ticker := time.NewTicker(mergeLockPoll)
	defer ticker.Stop()

	for {
		if token, ok := l.tryAdd(key); ok {
			return func() { l.release(key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *mergeLock) tryAdd(key string) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	token := l.next
	// Add fails while an unexpired entry exists.
	if err := l.held.Add(key, token, l.ttl); err != nil {
		return 0, false
	}
	return token, true
}

func (l *mergeLock) release(key string, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held.Get(key); ok && current == token {
		l.held.Delete(key)
	}
}
