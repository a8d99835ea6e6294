// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// EventPublisher announces ingest results to downstream services.
type EventPublisher interface {
	PublishRecordIngested(ctx context.Context, msg models.RecordIngestedMessage) error
	PublishRecordsMerged(ctx context.Context, msg models.RecordsMergedMessage) error
}
