// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

func TestNatsLedgerRepository_MarkAndCheck(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsLedgerRepository(kv)

	// Zoom fallback ids carry characters NATS rejects in keys.
	deliveryID := "zoom_recording.transcript_completed_1741604400000_abc/DEF+=="

	processed, err := repo.IsProcessed(ctx, deliveryID)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, repo.MarkProcessed(ctx, &models.LedgerEntry{
		DeliveryID:  deliveryID,
		Provider:    models.ProviderZoom,
		ProcessedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}))

	processed, err = repo.IsProcessed(ctx, deliveryID)
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = repo.IsProcessed(ctx, deliveryID+"-other")
	require.NoError(t, err)
	assert.False(t, processed)

	require.Equal(t, 1, kv.Len())
	keys, err := repo.base.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], KeyPrefixLedger+"/"))
	assert.NotContains(t, keys[0], "+")
	assert.NotContains(t, keys[0], "==")
}

func TestNatsLedgerRepository_MarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsLedgerRepository(kv)

	entry := &models.LedgerEntry{DeliveryID: "msg_1", Provider: models.ProviderFathom, ProcessedAt: time.Now()}
	require.NoError(t, repo.MarkProcessed(ctx, entry))
	require.NoError(t, repo.MarkProcessed(ctx, entry))

	assert.Equal(t, 1, kv.Len())
}

func TestNatsLedgerRepository_Validation(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsLedgerRepository(NewInMemoryKeyValue())

	_, err := repo.IsProcessed(ctx, "")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	err = repo.MarkProcessed(ctx, nil)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	err = repo.MarkProcessed(ctx, &models.LedgerEntry{Provider: models.ProviderFathom})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestNatsLedgerRepository_StoreErrors(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsLedgerRepository(kv)

	kv.getError = errors.New("connection lost")
	processed, err := repo.IsProcessed(ctx, "msg_1")
	assert.Error(t, err)
	assert.False(t, processed)

	kv.getError = nil
	kv.putError = errors.New("connection lost")
	err = repo.MarkProcessed(ctx, &models.LedgerEntry{DeliveryID: "msg_1"})
	assert.Error(t, err)
	assert.Equal(t, 0, kv.Len())
}
