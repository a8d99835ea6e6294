// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
)

// INatsConn is the subset of a NATS connection the publisher needs.
type INatsConn interface {
	IsConnected() bool
	PublishMsg(m *nats.Msg) error
}

// MessageBuilder builds ingest events and sends them to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

var _ domain.EventPublisher = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// publish sends data on subject, carrying the request id of ctx as a header
// so consumers can correlate events with the webhook that caused them.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if requestID, ok := ctx.Value(constants.RequestIDContextID).(string); ok && requestID != "" {
		msg.Header.Set(constants.RequestIDHeader, requestID)
	}

	if err := m.NatsConn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

func (m *MessageBuilder) publishJSON(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}
	return m.publish(ctx, subject, data)
}

// PublishRecordIngested announces a created or updated record.
func (m *MessageBuilder) PublishRecordIngested(ctx context.Context, msg models.RecordIngestedMessage) error {
	return m.publishJSON(ctx, models.RecordIngestedSubject, msg)
}

// PublishRecordsMerged announces a merge decision.
func (m *MessageBuilder) PublishRecordsMerged(ctx context.Context, msg models.RecordsMergedMessage) error {
	return m.publishJSON(ctx, models.RecordsMergedSubject, msg)
}
