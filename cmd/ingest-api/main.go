// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the recording ingest API. It accepts recording webhooks
// from Fathom, Zoom and automation senders, acknowledges them immediately and
// deduplicates the recordings in the background.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/ratelimit"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/utils"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}()

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	payloads, err := webhook.NewPayloadValidator()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error compiling payload schemas")
		return
	}

	if env.Secrets.Fallback == "" && (env.Secrets.Fathom == "" || env.Secrets.Zoom == "" || env.Secrets.Automation == "") {
		slog.Warn("some providers have no application webhook secret; only per-user secrets will verify them",
			"has_fathom_secret", env.Secrets.Fathom != "",
			"has_zoom_secret", env.Secrets.Zoom != "",
			"has_automation_secret", env.Secrets.Automation != "")
	}

	// One limiter for every outbound provider call, scoped per owner.
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: env.RateLimitPerMinute})

	settings := service.NewCachedUserSettings(repos.Settings, env.SecretCacheTTL)
	ingestService := service.NewIngestService(service.IngestDependencies{
		Verifier: webhook.NewVerifier(),
		Payloads: payloads,
		Secrets: map[models.Provider]domain.SecretResolver{
			models.ProviderFathom:     service.NewSecretResolver(settings, env.Secrets.Fathom, env.Secrets.Fallback),
			models.ProviderZoom:       service.NewSecretResolver(settings, env.Secrets.Zoom, env.Secrets.Fallback),
			models.ProviderAutomation: service.NewSecretResolver(settings, env.Secrets.Automation, env.Secrets.Fallback),
		},
		Records:    repos.Records,
		Ledger:     repos.Ledger,
		Deliveries: repos.Deliveries,
		Settings:   settings,
		Fetchers:   setupFetchers(env.Zoom, limiter),
		Publisher:  messaging.NewMessageBuilder(natsConn),
		Pool:       concurrent.NewWorkerPool(env.IngestWorkers),
	}, service.IngestConfig{
		ReplayMaxAge:          env.ReplayMaxAge,
		ReplayFutureTolerance: env.ReplayFutureTolerance,
		AutomationRateLimit:   env.RateLimitPerMinute,
	})

	webhookHandler := handlers.NewWebhookHandler(ingestService)
	httpServer := setupHTTPServer(flags, newHTTPHandler(webhookHandler, natsConn))

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, ingestService, &gracefulCloseWG, cancel)
}
