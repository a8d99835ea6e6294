// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// MeetingRecordRepository defines the storage operations on meeting records.
// Records are addressed by UID or by the natural key (ownerID, externalID).
type MeetingRecordRepository interface {
	Get(ctx context.Context, uid string) (*models.MeetingRecord, error)
	GetByExternalID(ctx context.Context, ownerID, externalID string) (*models.MeetingRecord, error)
	// GetWithRevision returns the record and the store revision it was read at.
	GetWithRevision(ctx context.Context, uid string) (*models.MeetingRecord, uint64, error)
	// Upsert writes the record under its natural key, creating it when absent.
	Upsert(ctx context.Context, record *models.MeetingRecord) error
	// Update replaces an existing record only if it is still at revision.
	// A concurrent write in between yields a conflict error.
	Update(ctx context.Context, record *models.MeetingRecord, revision uint64) error
	// ListByOwnerInRange returns the owner's records whose start time falls in [from, to].
	ListByOwnerInRange(ctx context.Context, ownerID string, from, to time.Time) ([]*models.MeetingRecord, error)
}

// LedgerRepository is the idempotency ledger of fully processed deliveries.
type LedgerRepository interface {
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)
	MarkProcessed(ctx context.Context, entry *models.LedgerEntry) error
}

// DeliveryLogRepository stores the operator-visible outcome of each delivery.
type DeliveryLogRepository interface {
	Save(ctx context.Context, entry *models.DeliveryLog) error
	Get(ctx context.Context, uid string) (*models.DeliveryLog, error)
}

// UserSettingsRepository resolves sender emails to owners and their settings.
type UserSettingsRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.UserSettings, error)
	Put(ctx context.Context, settings *models.UserSettings) error
}
