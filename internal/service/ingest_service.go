// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/ratelimit"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/utils"
)

const tracerName = "github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/service"

// Ingest response statuses.
const (
	StatusReceived         = "received"
	StatusAlreadyProcessed = "already_processed"
	StatusIgnored          = "ignored"
)

// DefaultProcessTimeout bounds one background run.
const DefaultProcessTimeout = 2 * time.Minute

// IngestResult is the acknowledgement returned to the sender. Challenge is
// set only for Zoom endpoint validation and replaces the status body.
type IngestResult struct {
	Status     string                            `json:"status,omitempty"`
	Event      string                            `json:"event,omitempty"`
	DeliveryID string                            `json:"-"`
	Challenge  *models.ZoomURLValidationResponse `json:"-"`
}

// IngestConfig holds the orchestrator settings. Zero values take defaults.
type IngestConfig struct {
	ReplayMaxAge          time.Duration
	ReplayFutureTolerance time.Duration
	// AutomationRateLimit is the per-user request budget per minute on the
	// automation endpoint.
	AutomationRateLimit int
	ProcessTimeout      time.Duration
	MergeLockTTL        time.Duration
}

// IngestService verifies, acknowledges and then processes webhook deliveries
// in the background. The idempotency ledger is written last, so any failure
// leaves the delivery eligible for a provider retry.
type IngestService struct {
	verifier   *webhook.Verifier
	replay     *webhook.ReplayGuard
	payloads   *webhook.PayloadValidator
	secrets    map[models.Provider]domain.SecretResolver
	records    domain.MeetingRecordRepository
	ledger     domain.LedgerRepository
	deliveries domain.DeliveryLogRepository
	settings   domain.UserSettingsRepository
	fetchers   domain.FetcherRegistry
	publisher  domain.EventPublisher
	pool       *concurrent.WorkerPool
	automation *ratelimit.Limiter
	locks      *mergeLock
	timeout    time.Duration
	now        func() time.Time
}

// IngestDependencies groups the collaborators of IngestService.
type IngestDependencies struct {
	Verifier   *webhook.Verifier
	Payloads   *webhook.PayloadValidator
	Secrets    map[models.Provider]domain.SecretResolver
	Records    domain.MeetingRecordRepository
	Ledger     domain.LedgerRepository
	Deliveries domain.DeliveryLogRepository
	Settings   domain.UserSettingsRepository
	Fetchers   domain.FetcherRegistry
	Publisher  domain.EventPublisher
	Pool       *concurrent.WorkerPool
}

// NewIngestService creates the orchestrator.
func NewIngestService(deps IngestDependencies, cfg IngestConfig) *IngestService {
	if deps.Verifier == nil {
		deps.Verifier = webhook.NewVerifier()
	}
	if deps.Pool == nil {
		deps.Pool = concurrent.NewWorkerPool(1)
	}
	if cfg.AutomationRateLimit <= 0 {
		cfg.AutomationRateLimit = constants.DefaultRateLimitPerMinute
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = DefaultProcessTimeout
	}

	return &IngestService{
		verifier:   deps.Verifier,
		replay:     webhook.NewReplayGuard(cfg.ReplayMaxAge, cfg.ReplayFutureTolerance),
		payloads:   deps.Payloads,
		secrets:    deps.Secrets,
		records:    deps.Records,
		ledger:     deps.Ledger,
		deliveries: deps.Deliveries,
		settings:   deps.Settings,
		fetchers:   deps.Fetchers,
		publisher:  deps.Publisher,
		pool:       deps.Pool,
		automation: ratelimit.New(ratelimit.Config{
			Window:      time.Minute,
			MaxRequests: cfg.AutomationRateLimit,
			Jitter:      -1,
		}),
		locks:   newMergeLock(cfg.MergeLockTTL),
		timeout: cfg.ProcessTimeout,
		now:     time.Now,
	}
}

// ServiceReady checks if the service is ready to process requests
func (s *IngestService) ServiceReady() bool {
	return s.records != nil && s.ledger != nil && s.deliveries != nil &&
		s.settings != nil && s.payloads != nil && len(s.secrets) > 0
}

// Drain waits for in-flight background work.
func (s *IngestService) Drain(ctx context.Context) error {
	return s.pool.Drain(ctx)
}

// Ingest runs the synchronous part of the pipeline: verify, replay check,
// parse, idempotency check and acknowledgement. Accepted deliveries continue
// on the worker pool after Ingest returns.
func (s *IngestService) Ingest(ctx context.Context, provider models.Provider, headers http.Header, body []byte) (*IngestResult, error) {
	ctx = logging.AppendCtx(ctx, slog.String("provider", string(provider)))

	resolver, ok := s.secrets[provider]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported provider %q", provider))
	}

	// Received -> Verified
	if !s.verifier.HasSignature(headers) {
		slog.WarnContext(ctx, "webhook rejected: missing signature headers")
		return nil, domain.NewUnauthorizedError("missing signature")
	}
	secrets, err := resolver.Resolve(ctx, senderHint(provider, body))
	if err != nil {
		return nil, domain.NewInternalError("failed to resolve webhook secrets", err)
	}
	if len(secrets) == 0 {
		slog.ErrorContext(ctx, "no webhook secret configured", logging.PriorityCritical())
		return nil, domain.NewInternalError("webhook secret not configured")
	}
	outcome := s.verifier.Verify(secrets, headers, body)
	if !outcome.Valid {
		slog.WarnContext(ctx, "webhook rejected: invalid signature", "candidates", len(secrets))
		return nil, domain.NewUnauthorizedError("invalid signature")
	}
	ctx = logging.AppendCtx(ctx, slog.String("scheme", outcome.Scheme))

	// Verified -> ReplayChecked
	freshness := s.replay.CheckFreshness(s.verifier.Timestamp(outcome, headers))
	if !freshness.Valid {
		slog.WarnContext(ctx, "webhook rejected: replay check failed", "reason", freshness.Reason)
		return nil, domain.NewUnauthorizedError("replay check failed: " + freshness.Reason)
	}

	if err := s.payloads.Validate(provider, body); err != nil {
		slog.WarnContext(ctx, "webhook rejected: malformed payload", logging.ErrKey, err)
		return nil, domain.NewValidationError("malformed payload", err)
	}
	parsed, err := parseDelivery(provider, headers, body)
	if err != nil {
		slog.WarnContext(ctx, "webhook rejected: malformed payload", logging.ErrKey, err)
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("delivery_id", parsed.deliveryID))
	ctx = logging.AppendCtx(ctx, slog.String("event", parsed.eventType))

	if parsed.challenge != nil {
		slog.InfoContext(ctx, "answering zoom endpoint validation")
		return &IngestResult{
			DeliveryID: parsed.deliveryID,
			Challenge: &models.ZoomURLValidationResponse{
				PlainToken:     parsed.challenge.PlainToken,
				EncryptedToken: webhook.ZoomChallengeResponse(secrets[0].Value, parsed.challenge.PlainToken),
			},
		}, nil
	}
	if parsed.ignored {
		slog.InfoContext(ctx, "webhook event ignored")
		return &IngestResult{Status: StatusIgnored, Event: parsed.eventType, DeliveryID: parsed.deliveryID}, nil
	}

	if provider == models.ProviderAutomation {
		scope := parsed.ownerHint
		if scope == "" {
			scope = settingsCacheKey(parsed.senderEmail)
		}
		if !s.automation.Allow(scope) {
			slog.WarnContext(ctx, "webhook rejected: sender over rate limit")
			return nil, domain.NewRateLimitedError("rate limit exceeded")
		}
	}

	// ReplayChecked -> {AlreadyProcessed | Accepted}
	processed, err := s.ledger.IsProcessed(ctx, parsed.deliveryID)
	if err != nil {
		return nil, domain.NewInternalError("failed to check delivery ledger", err)
	}
	if processed {
		slog.InfoContext(ctx, "webhook already processed")
		s.saveDeliveryLog(ctx, s.newDeliveryLog(provider, parsed, models.DeliveryStatusDuplicate))
		return &IngestResult{Status: StatusAlreadyProcessed, DeliveryID: parsed.deliveryID}, nil
	}

	entry := s.newDeliveryLog(provider, parsed, models.DeliveryStatusReceived)
	s.saveDeliveryLog(ctx, entry)

	background := context.WithoutCancel(ctx)
	if !s.pool.Submit(func() { s.process(background, parsed, entry) }) {
		s.finishDeliveryLog(ctx, entry, models.DeliveryStatusFailed, "ingest workers saturated")
		return nil, domain.NewUnavailableError("ingest workers are busy, retry later")
	}

	slog.InfoContext(ctx, "webhook accepted")
	return &IngestResult{Status: StatusReceived, DeliveryID: parsed.deliveryID}, nil
}

func (s *IngestService) newDeliveryLog(provider models.Provider, parsed *parsedDelivery, status models.DeliveryStatus) *models.DeliveryLog {
	return &models.DeliveryLog{
		UID:        uuid.NewString(),
		DeliveryID: parsed.deliveryID,
		Provider:   provider,
		EventType:  parsed.eventType,
		Status:     status,
		ReceivedAt: s.now().UTC(),
	}
}

// saveDeliveryLog is best effort; the log is for operators, not correctness.
func (s *IngestService) saveDeliveryLog(ctx context.Context, entry *models.DeliveryLog) {
	if err := s.deliveries.Save(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to save delivery log", logging.ErrKey, err, "status", entry.Status)
	}
}

func (s *IngestService) finishDeliveryLog(ctx context.Context, entry *models.DeliveryLog, status models.DeliveryStatus, message string) {
	completed := s.now().UTC()
	entry.Status = status
	entry.ErrorMessage = message
	entry.CompletedAt = &completed
	s.saveDeliveryLog(ctx, entry)
}

// process is the background continuation of an accepted delivery.
func (s *IngestService) process(ctx context.Context, parsed *parsedDelivery, entry *models.DeliveryLog) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.process")
	span.SetAttributes(
		attribute.String("delivery.provider", string(entry.Provider)),
		attribute.String("delivery.event", parsed.eventType),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic while processing webhook", "panic", r, logging.PriorityCritical())
			span.SetStatus(codes.Error, "panic")
			s.finishDeliveryLog(ctx, entry, models.DeliveryStatusFailed, "internal error")
		}
	}()

	record, err := s.ingestRecord(ctx, parsed, entry)
	if err != nil {
		slog.ErrorContext(ctx, "webhook processing failed", logging.ErrKey, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		s.finishDeliveryLog(ctx, entry, models.DeliveryStatusFailed, err.Error())
		return
	}

	s.finishDeliveryLog(ctx, entry, models.DeliveryStatusSuccess, "")

	// MarkedProcessed is always the final step.
	ledgerEntry := &models.LedgerEntry{
		DeliveryID:  parsed.deliveryID,
		Provider:    entry.Provider,
		ProcessedAt: s.now().UTC(),
	}
	if err := s.ledger.MarkProcessed(ctx, ledgerEntry); err != nil {
		slog.ErrorContext(ctx, "failed to mark delivery processed", logging.ErrKey, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger write failed")
		s.finishDeliveryLog(ctx, entry, models.DeliveryStatusFailed, "failed to mark delivery processed")
		return
	}

	slog.InfoContext(ctx, "webhook processed",
		"record_uid", record.UID,
		"is_primary", record.IsPrimary,
		"fuzzy_match_score", utils.Float64Value(record.FuzzyMatchScore),
	)
}

// resolveOwner maps the sender to the owning user.
func (s *IngestService) resolveOwner(ctx context.Context, parsed *parsedDelivery) (string, models.DedupSettings, error) {
	if parsed.senderEmail != "" {
		settings, err := s.settings.GetByEmail(ctx, parsed.senderEmail)
		switch {
		case err == nil:
			return settings.OwnerID, settings.Dedup.WithDefaults(), nil
		case domain.GetErrorType(err) != domain.ErrorTypeNotFound:
			return "", models.DedupSettings{}, fmt.Errorf("failed to look up sender: %w", err)
		}
	}
	if parsed.ownerHint != "" {
		return parsed.ownerHint, models.DedupSettings{}.WithDefaults(), nil
	}
	return "", models.DedupSettings{}, domain.NewNotFoundError("no user registered for sender")
}
