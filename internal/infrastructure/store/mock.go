// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// mockKeyValueEntry implements jetstream.KeyValueEntry for testing
type mockKeyValueEntry struct {
	key      string
	value    []byte
	revision uint64
}

func (m *mockKeyValueEntry) Key() string                     { return m.key }
func (m *mockKeyValueEntry) Value() []byte                   { return m.value }
func (m *mockKeyValueEntry) Revision() uint64                { return m.revision }
func (m *mockKeyValueEntry) Created() time.Time              { return time.Now() }
func (m *mockKeyValueEntry) Delta() uint64                   { return 0 }
func (m *mockKeyValueEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }
func (m *mockKeyValueEntry) Bucket() string                  { return "test-bucket" }

// mockKeyLister implements jetstream.KeyLister for testing
type mockKeyLister struct {
	keys []string
}

func (m *mockKeyLister) Keys() <-chan string {
	ch := make(chan string, len(m.keys))
	for _, key := range m.keys {
		ch <- key
	}
	close(ch)
	return ch
}

func (m *mockKeyLister) Stop() error { return nil }

// InMemoryKeyValue is a goroutine-safe in-memory INatsKeyValue. It backs the
// repository tests and lets service tests run against real repositories.
type InMemoryKeyValue struct {
	mu        sync.Mutex
	data      map[string][]byte
	revisions map[string]uint64
	sequence  uint64

	putError    error
	getError    error
	deleteError error
	updateError error
	listError   error

	// lastFilters holds the subject filters of the latest ListKeysFiltered call.
	lastFilters []string
}

// NewInMemoryKeyValue creates an empty store.
func NewInMemoryKeyValue() *InMemoryKeyValue {
	return &InMemoryKeyValue{
		data:      make(map[string][]byte),
		revisions: make(map[string]uint64),
	}
}

// Len returns the number of stored keys.
func (m *InMemoryKeyValue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *InMemoryKeyValue) sortedKeys(filters ...string) []string {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if len(filters) == 0 {
			keys = append(keys, key)
			continue
		}
		for _, f := range filters {
			if subjectMatches(f, key) {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *InMemoryKeyValue) ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listError != nil {
		return nil, m.listError
	}
	return &mockKeyLister{keys: m.sortedKeys()}, nil
}

func (m *InMemoryKeyValue) ListKeysFiltered(ctx context.Context, filters ...string) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilters = append([]string(nil), filters...)
	if m.listError != nil {
		return nil, m.listError
	}
	return &mockKeyLister{keys: m.sortedKeys(filters...)}, nil
}

func (m *InMemoryKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	value, exists := m.data[key]
	if !exists {
		return nil, jetstream.ErrKeyNotFound
	}
	return &mockKeyValueEntry{key: key, value: value, revision: m.revisions[key]}, nil
}

func (m *InMemoryKeyValue) Put(ctx context.Context, key string, data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putError != nil {
		return 0, m.putError
	}
	m.sequence++
	m.data[key] = append([]byte(nil), data...)
	m.revisions[key] = m.sequence
	return m.sequence, nil
}

func (m *InMemoryKeyValue) Update(ctx context.Context, key string, data []byte, expectedRevision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateError != nil {
		return 0, m.updateError
	}
	currentRevision, exists := m.revisions[key]
	if !exists {
		return 0, jetstream.ErrKeyNotFound
	}
	if currentRevision != expectedRevision {
		return 0, errors.New("wrong last sequence")
	}
	m.sequence++
	m.data[key] = append([]byte(nil), data...)
	m.revisions[key] = m.sequence
	return m.sequence, nil
}

func (m *InMemoryKeyValue) Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, exists := m.data[key]; !exists {
		return jetstream.ErrKeyNotFound
	}
	delete(m.data, key)
	delete(m.revisions, key)
	return nil
}

// subjectMatches applies NATS subject wildcard rules: "*" matches one token
// and a trailing ">" matches one or more.
func subjectMatches(filter, key string) bool {
	ft := strings.Split(filter, ".")
	kt := strings.Split(key, ".")
	for i, f := range ft {
		if f == ">" {
			return len(kt) > i
		}
		if i >= len(kt) {
			return false
		}
		if f != "*" && f != kt[i] {
			return false
		}
	}
	return len(ft) == len(kt)
}
