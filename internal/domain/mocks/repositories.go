// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// MockLedgerRepository is a mock implementation of domain.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	args := m.Called(ctx, deliveryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) MarkProcessed(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockUserSettingsRepository is a mock implementation of domain.UserSettingsRepository
type MockUserSettingsRepository struct {
	mock.Mock
}

func (m *MockUserSettingsRepository) GetByEmail(ctx context.Context, email string) (*models.UserSettings, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSettings), args.Error(1)
}

func (m *MockUserSettingsRepository) Put(ctx context.Context, settings *models.UserSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockSecretResolver is a mock implementation of domain.SecretResolver
type MockSecretResolver struct {
	mock.Mock
}

func (m *MockSecretResolver) Resolve(ctx context.Context, senderEmail string) ([]domain.Secret, error) {
	args := m.Called(ctx, senderEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Secret), args.Error(1)
}
