// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "context"

// RecordingFetcher downloads recording artifacts from the originating provider.
type RecordingFetcher interface {
	// DownloadTranscript returns the raw transcript bytes behind downloadURL.
	// accessToken may be empty, in which case the fetcher uses its own credentials.
	// scope keys the shared rate limit, usually the owning user.
	DownloadTranscript(ctx context.Context, downloadURL, accessToken, scope string) ([]byte, error)
}

// FetcherRegistry resolves the RecordingFetcher for a source platform.
type FetcherRegistry interface {
	GetFetcher(platform string) (RecordingFetcher, error)
	RegisterFetcher(platform string, fetcher RecordingFetcher)
}
