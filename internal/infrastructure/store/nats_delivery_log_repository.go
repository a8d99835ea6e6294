// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// NatsDeliveryLogRepository stores delivery outcomes in the webhook-deliveries bucket.
type NatsDeliveryLogRepository struct {
	base *NatsBaseRepository[models.DeliveryLog]
	kb   *KeyBuilder
}

var _ domain.DeliveryLogRepository = (*NatsDeliveryLogRepository)(nil)

// NewNatsDeliveryLogRepository creates a new delivery log repository.
func NewNatsDeliveryLogRepository(kv INatsKeyValue) *NatsDeliveryLogRepository {
	return &NatsDeliveryLogRepository{
		base: NewNatsBaseRepository[models.DeliveryLog](kv, "delivery log"),
		kb:   NewKeyBuilder(""),
	}
}

// Save writes the log entry, replacing any previous state for the same UID.
func (r *NatsDeliveryLogRepository) Save(ctx context.Context, entry *models.DeliveryLog) error {
	if entry == nil || entry.UID == "" {
		return domain.NewValidationError("delivery log uid is required")
	}
	_, err := r.base.Put(ctx, r.kb.EntityKey(KeyPrefixDelivery, entry.UID), entry)
	return err
}

// Get returns the log entry with the given UID.
func (r *NatsDeliveryLogRepository) Get(ctx context.Context, uid string) (*models.DeliveryLog, error) {
	if uid == "" {
		return nil, domain.NewValidationError("delivery log uid is required")
	}
	return r.base.Get(ctx, r.kb.EntityKey(KeyPrefixDelivery, uid))
}
