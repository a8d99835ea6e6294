// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package platform

import (
	"fmt"
	"strings"
	"sync"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
)

// Registry implements the FetcherRegistry interface
type Registry struct {
	fetchers map[string]domain.RecordingFetcher
	mu       sync.RWMutex
}

// NewRegistry creates a new fetcher registry
func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]domain.RecordingFetcher),
	}
}

// GetFetcher returns the recording fetcher for the specified platform name.
// Platform names are matched case-insensitively.
func (r *Registry) GetFetcher(platform string) (domain.RecordingFetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fetcher, exists := r.fetchers[strings.ToLower(platform)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.NewNotFoundError("recording fetcher not found"), platform)
	}

	return fetcher, nil
}

// RegisterFetcher registers a recording fetcher. A nil fetcher is ignored so
// callers can register optional clients unconditionally.
func (r *Registry) RegisterFetcher(platform string, fetcher domain.RecordingFetcher) {
	if fetcher == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.fetchers[strings.ToLower(platform)] = fetcher
}

var _ domain.FetcherRegistry = (*Registry)(nil)
