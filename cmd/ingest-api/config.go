// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/utils"
)

const (
	defaultPort         = "8080"
	defaultNATSURL      = "nats://localhost:4222"
	defaultIngestWorker = 8
)

// flags are the command line flags for the ingest service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the ingest service.
type environment struct {
	Port    string
	NATSURL string

	Secrets webhookSecrets
	Zoom    zoomConfig

	ReplayMaxAge          time.Duration
	ReplayFutureTolerance time.Duration
	RateLimitPerMinute    int
	IngestWorkers         int
	SecretCacheTTL        time.Duration
}

// webhookSecrets are the application-level signing secrets per provider.
type webhookSecrets struct {
	Fathom     string
	Zoom       string
	Automation string
	Fallback   string
}

// zoomConfig holds the Zoom server-to-server OAuth credentials used for
// recording downloads.
type zoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// IsConfigured returns true if all required Zoom credentials are provided
func (z zoomConfig) IsConfigured() bool {
	return z.AccountID != "" && z.ClientID != "" && z.ClientSecret != ""
}

// parseFlags parses command line flags for the ingest service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [log.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the ingest service
func parseEnv() environment {
	return environment{
		Port:    utils.Coalesce(os.Getenv("PORT"), defaultPort),
		NATSURL: utils.Coalesce(os.Getenv("NATS_URL"), defaultNATSURL),
		Secrets: webhookSecrets{
			Fathom:     os.Getenv("FATHOM_OAUTH_WEBHOOK_SECRET"),
			Zoom:       os.Getenv("ZOOM_WEBHOOK_SECRET_TOKEN"),
			Automation: os.Getenv("AUTOMATION_WEBHOOK_SECRET"),
			Fallback:   os.Getenv("WEBHOOK_FALLBACK_SECRET"),
		},
		Zoom: zoomConfig{
			AccountID:    os.Getenv("ZOOM_ACCOUNT_ID"),
			ClientID:     os.Getenv("ZOOM_CLIENT_ID"),
			ClientSecret: os.Getenv("ZOOM_CLIENT_SECRET"),
		},
		ReplayMaxAge:          envSeconds("REPLAY_MAX_AGE_SECONDS", constants.DefaultReplayMaxAge),
		ReplayFutureTolerance: envSeconds("REPLAY_FUTURE_TOLERANCE_SECONDS", constants.DefaultReplayFutureTolerance),
		RateLimitPerMinute:    envInt("RATE_LIMIT_PER_MINUTE", constants.DefaultRateLimitPerMinute),
		IngestWorkers:         envInt("INGEST_WORKERS", defaultIngestWorker),
		SecretCacheTTL:        envSeconds("SECRET_CACHE_TTL_SECONDS", 5*time.Minute),
	}
}

// envInt reads a positive integer, falling back to def when unset or invalid.
func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid integer environment variable, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func envSeconds(key string, def time.Duration) time.Duration {
	v := envInt(key, int(def/time.Second))
	return time.Duration(v) * time.Second
}
