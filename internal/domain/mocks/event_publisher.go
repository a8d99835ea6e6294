// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// MockEventPublisher is a mock implementation of domain.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishRecordIngested(ctx context.Context, msg models.RecordIngestedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishRecordsMerged(ctx context.Context, msg models.RecordsMergedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
