// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

func TestNatsUserSettingsRepository_PutAndGetByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsUserSettingsRepository(NewInMemoryKeyValue())

	settings := &models.UserSettings{
		OwnerID:       "user-1",
		Email:         "  Host@Example.COM ",
		WebhookSecret: "whsec_c2VjcmV0",
		Dedup: models.DedupSettings{
			PriorityMode:  models.PriorityPlatformHierarchy,
			PlatformOrder: []string{models.PlatformZoom, models.PlatformFathom},
		},
	}
	require.NoError(t, repo.Put(ctx, settings))
	assert.Equal(t, "host@example.com", settings.Email)

	for _, email := range []string{"host@example.com", "HOST@example.com", " host@example.com\n"} {
		got, err := repo.GetByEmail(ctx, email)
		require.NoError(t, err, email)
		assert.Equal(t, "user-1", got.OwnerID)
		assert.Equal(t, "whsec_c2VjcmV0", got.WebhookSecret)
		assert.Equal(t, models.PriorityPlatformHierarchy, got.Dedup.PriorityMode)
		assert.Equal(t, []string{models.PlatformZoom, models.PlatformFathom}, got.Dedup.PlatformOrder)
	}

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsUserSettingsRepository_KeysAreEncoded(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsUserSettingsRepository(NewInMemoryKeyValue())

	require.NoError(t, repo.Put(ctx, &models.UserSettings{OwnerID: "user-1", Email: "first.last+rec@example.com"}))

	keys, err := repo.base.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "@")
	assert.NotContains(t, keys[0], "+")
}

func TestNatsUserSettingsRepository_Validation(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsUserSettingsRepository(NewInMemoryKeyValue())

	_, err := repo.GetByEmail(ctx, "   ")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	err = repo.Put(ctx, &models.UserSettings{Email: "host@example.com"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	err = repo.Put(ctx, &models.UserSettings{OwnerID: "user-1"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	err = repo.Put(ctx, nil)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}
