// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/platform"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/zoom/api"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/ratelimit"
)

// setupFetchers registers the recording fetchers of every platform that
// delivers artifacts by reference.
func setupFetchers(config zoomConfig, limiter *ratelimit.Limiter) *platform.Registry {
	registry := platform.NewRegistry()
	registry.RegisterFetcher(models.PlatformZoom, setupZoomFetcher(config, limiter))
	return registry
}

// setupZoomFetcher creates the transcript download client. Without account
// credentials it still works with the per-delivery download token, but a 401
// cannot be recovered.
func setupZoomFetcher(config zoomConfig, limiter *ratelimit.Limiter) *api.Client {
	if config.IsConfigured() {
		slog.Info("Zoom recording downloads configured",
			"account_id", config.AccountID,
			"client_id", config.ClientID)
	} else {
		slog.Warn("Zoom account credentials not configured - downloads rely on webhook download tokens",
			"has_account_id", config.AccountID != "",
			"has_client_id", config.ClientID != "",
			"has_client_secret", config.ClientSecret != "")
	}

	return api.NewClient(api.Config{
		AccountID:    config.AccountID,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
	}, limiter)
}
