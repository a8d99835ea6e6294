// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
)

// gracefulShutdownSeconds should be higher than the background processing
// timeout of a single delivery, and lower than the pod's
// terminationGracePeriodSeconds.
const gracefulShutdownSeconds = 25

// repositories are the KV-backed stores of the service.
type repositories struct {
	Records    *store.NatsMeetingRecordRepository
	Ledger     *store.NatsLedgerRepository
	Deliveries *store.NatsDeliveryLogRepository
	Settings   *store.NatsUserSettingsRepository
}

// setupNATS connects to NATS. The wait group is released by the closed
// handler once a graceful drain completes.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NATSURL,
		nats.Name("lfx-v2-recording-ingest-service"),
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if ctx.Err() != nil {
				// Graceful shutdown: let the remaining shutdown steps finish.
				gracefulCloseWG.Done()
				return
			}
			// Max reconnect attempts are exhausted.
			slog.Error("NATS max-reconnects exhausted; connection closed")
			done <- os.Interrupt
			time.Sleep(5 * time.Second)
			os.Exit(1)
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("error creating NATS client: %w", err)
	}
	slog.With("nats_url", env.NATSURL).Info("NATS connection established")
	return natsConn, nil
}

// getKeyValueStores binds the repositories to their KV buckets.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("error creating JetStream context: %w", err)
	}

	buckets := make(map[string]jetstream.KeyValue, len(store.KVStoreNames))
	for _, name := range store.KVStoreNames {
		kv, err := js.KeyValue(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s KV bucket: %w", name, err)
		}
		buckets[name] = kv
	}

	return &repositories{
		Records:    store.NewNatsMeetingRecordRepository(buckets[store.KVStoreNameMeetingRecords]),
		Ledger:     store.NewNatsLedgerRepository(buckets[store.KVStoreNameProcessedWebhooks]),
		Deliveries: store.NewNatsDeliveryLogRepository(buckets[store.KVStoreNameWebhookDeliveries]),
		Settings:   store.NewNatsUserSettingsRepository(buckets[store.KVStoreNameUserSettings]),
	}, nil
}
