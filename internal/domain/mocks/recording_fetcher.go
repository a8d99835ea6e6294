// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRecordingFetcher is a mock implementation of domain.RecordingFetcher
type MockRecordingFetcher struct {
	mock.Mock
}

func (m *MockRecordingFetcher) DownloadTranscript(ctx context.Context, downloadURL, accessToken, scope string) ([]byte, error) {
	args := m.Called(ctx, downloadURL, accessToken, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
