// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
)

// DefaultSettingsCacheTTL bounds how stale a cached sender lookup may be.
const DefaultSettingsCacheTTL = 5 * time.Minute

// CachedUserSettings fronts a UserSettingsRepository with a TTL cache.
// Misses are cached too, so unknown senders do not hit the store on every
// retry.
type CachedUserSettings struct {
	repo  domain.UserSettingsRepository
	cache *cache.Cache
}

var _ domain.UserSettingsRepository = (*CachedUserSettings)(nil)

// NewCachedUserSettings wraps repo. A ttl of zero uses DefaultSettingsCacheTTL.
func NewCachedUserSettings(repo domain.UserSettingsRepository, ttl time.Duration) *CachedUserSettings {
	if ttl <= 0 {
		ttl = DefaultSettingsCacheTTL
	}
	return &CachedUserSettings{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func settingsCacheKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail returns the cached settings, loading them on a miss.
func (c *CachedUserSettings) GetByEmail(ctx context.Context, email string) (*models.UserSettings, error) {
	key := settingsCacheKey(email)
	if v, found := c.cache.Get(key); found {
		if v == nil {
			return nil, domain.NewNotFoundError("user settings not found")
		}
		return v.(*models.UserSettings), nil
	}

	settings, err := c.repo.GetByEmail(ctx, email)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			c.cache.SetDefault(key, nil)
		}
		return nil, err
	}
	c.cache.SetDefault(key, settings)
	return settings, nil
}

// Put writes through and invalidates the cached entry.
func (c *CachedUserSettings) Put(ctx context.Context, settings *models.UserSettings) error {
	if err := c.repo.Put(ctx, settings); err != nil {
		return err
	}
	if settings != nil {
		c.cache.Delete(settingsCacheKey(settings.Email))
	}
	return nil
}

// SecretResolver returns the secrets to try for one provider: the sender's
// own webhook secret, then the provider's application secret, then the
// deployment-wide fallback.
type SecretResolver struct {
	settings  domain.UserSettingsRepository
	appSecret string
	fallback  string
}

var _ domain.SecretResolver = (*SecretResolver)(nil)

// NewSecretResolver creates a resolver. Empty secrets are skipped.
func NewSecretResolver(settings domain.UserSettingsRepository, appSecret, fallback string) *SecretResolver {
	return &SecretResolver{
		settings:  settings,
		appSecret: appSecret,
		fallback:  fallback,
	}
}

// Resolve returns the candidate secrets in the order they should be tried.
// A failing settings lookup is logged and skipped so the application and
// fallback secrets can still verify the delivery.
func (r *SecretResolver) Resolve(ctx context.Context, senderEmail string) ([]domain.Secret, error) {
	var secrets []domain.Secret
	seen := make(map[string]struct{})
	add := func(source domain.SecretSource, value string) {
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		secrets = append(secrets, domain.Secret{Source: source, Value: value})
	}

	if strings.TrimSpace(senderEmail) != "" && r.settings != nil {
		settings, err := r.settings.GetByEmail(ctx, senderEmail)
		switch {
		case err == nil:
			add(domain.SecretSourceUser, settings.WebhookSecret)
		case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
			slog.DebugContext(ctx, "no user webhook secret for sender")
		default:
			slog.WarnContext(ctx, "user settings lookup failed, using shared secrets", logging.ErrKey, err)
		}
	}

	add(domain.SecretSourceApp, r.appSecret)
	add(domain.SecretSourceFallback, r.fallback)

	return secrets, nil
}
