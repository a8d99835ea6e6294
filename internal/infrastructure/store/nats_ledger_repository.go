// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"crypto/sha256"

	"github.com/akamensky/base58"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// NatsLedgerRepository is the idempotency ledger in the processed-webhooks bucket.
type NatsLedgerRepository struct {
	base *NatsBaseRepository[models.LedgerEntry]
	kb   *KeyBuilder
}

var _ domain.LedgerRepository = (*NatsLedgerRepository)(nil)

// NewNatsLedgerRepository creates a new ledger repository.
func NewNatsLedgerRepository(kv INatsKeyValue) *NatsLedgerRepository {
	return &NatsLedgerRepository{
		base: NewNatsBaseRepository[models.LedgerEntry](kv, "ledger entry"),
		kb:   NewKeyBuilder(""),
	}
}

// ledgerKey hashes the delivery id since provider ids may contain characters
// NATS does not allow in keys.
func (r *NatsLedgerRepository) ledgerKey(deliveryID string) string {
	hash := sha256.Sum256([]byte(deliveryID))
	return r.kb.EntityKey(KeyPrefixLedger, base58.Encode(hash[:]))
}

// IsProcessed reports whether the delivery has completed the pipeline before.
func (r *NatsLedgerRepository) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return false, domain.NewValidationError("delivery id is required")
	}
	return r.base.Exists(ctx, r.ledgerKey(deliveryID))
}

// MarkProcessed records the delivery as fully processed.
func (r *NatsLedgerRepository) MarkProcessed(ctx context.Context, entry *models.LedgerEntry) error {
	if entry == nil || entry.DeliveryID == "" {
		return domain.NewValidationError("delivery id is required")
	}
	_, err := r.base.Put(ctx, r.ledgerKey(entry.DeliveryID), entry)
	return err
}
