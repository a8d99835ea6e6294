// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameMeetingRecords    = "meeting-records"
	KVStoreNameProcessedWebhooks = "processed-webhooks"
	KVStoreNameWebhookDeliveries = "webhook-deliveries"
	KVStoreNameUserSettings      = "user-settings"
)

// KVStoreNames lists every bucket the service needs at startup.
var KVStoreNames = []string{
	KVStoreNameMeetingRecords,
	KVStoreNameProcessedWebhooks,
	KVStoreNameWebhookDeliveries,
	KVStoreNameUserSettings,
}

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/store"

// INatsKeyValue is the subset of jetstream.KeyValue the repositories use.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	ListKeysFiltered(ctx context.Context, filters ...string) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}
