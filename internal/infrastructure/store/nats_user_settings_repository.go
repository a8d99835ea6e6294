// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"strings"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// NatsUserSettingsRepository maps sender emails to owners, their webhook
// secret and their dedup settings.
type NatsUserSettingsRepository struct {
	base *NatsBaseRepository[models.UserSettings]
	kb   *KeyBuilder
}

var _ domain.UserSettingsRepository = (*NatsUserSettingsRepository)(nil)

// NewNatsUserSettingsRepository creates a new user settings repository.
func NewNatsUserSettingsRepository(kv INatsKeyValue) *NatsUserSettingsRepository {
	return &NatsUserSettingsRepository{
		base: NewNatsBaseRepository[models.UserSettings](kv, "user settings"),
		kb:   NewKeyBuilder(""),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail returns the settings registered for the email.
func (r *NatsUserSettingsRepository) GetByEmail(ctx context.Context, email string) (*models.UserSettings, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("email is required")
	}
	return r.base.Get(ctx, r.kb.EntityKeyEncoded(KeyPrefixSettings, email))
}

// Put stores settings under their email.
func (r *NatsUserSettingsRepository) Put(ctx context.Context, settings *models.UserSettings) error {
	if settings == nil || normalizeEmail(settings.Email) == "" || settings.OwnerID == "" {
		return domain.NewValidationError("email and owner id are required")
	}
	settings.Email = normalizeEmail(settings.Email)
	_, err := r.base.Put(ctx, r.kb.EntityKeyEncoded(KeyPrefixSettings, settings.Email), settings)
	return err
}
