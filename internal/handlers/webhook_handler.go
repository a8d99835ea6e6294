// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
)

// Retry-After hints, in seconds.
const (
	retryAfterRateLimited = 60
	retryAfterUnavailable = 5
)

// Ingester is the part of service.IngestService the handler depends on.
type Ingester interface {
	Ingest(ctx context.Context, provider models.Provider, headers http.Header, body []byte) (*service.IngestResult, error)
	ServiceReady() bool
}

// WebhookHandler exposes the ingest pipeline over HTTP.
type WebhookHandler struct {
	ingester Ingester
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(ingester Ingester) *WebhookHandler {
	return &WebhookHandler{ingester: ingester}
}

// HandlerReady reports whether the ingest service is ready.
func (h *WebhookHandler) HandlerReady() bool {
	return h.ingester != nil && h.ingester.ServiceReady()
}

// Register mounts one POST route per provider on mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	for _, provider := range []models.Provider{
		models.ProviderFathom,
		models.ProviderZoom,
		models.ProviderAutomation,
	} {
		mux.Handle("POST "+middleware.WebhookPathPrefix+string(provider), h.Handle(provider))
	}
}

// Handle returns the handler for one provider's endpoint.
func (h *WebhookHandler) Handle(provider models.Provider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, ok := middleware.GetRawBodyFromContext(ctx)
		if !ok {
			var err error
			body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes))
			if err != nil {
				writeError(ctx, w, domain.NewValidationError("failed to read request body", err))
				return
			}
		}

		result, err := h.ingester.Ingest(ctx, provider, r.Header, body)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		if result.Challenge != nil {
			writeJSON(ctx, w, http.StatusOK, result.Challenge)
			return
		}
		writeJSON(ctx, w, http.StatusOK, result)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a domain error type to its HTTP status.
func statusFor(errType domain.ErrorType) int {
	switch errType {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the error response. Internal errors are logged and
// replaced by a generic message.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	errType := domain.GetErrorType(err)
	status := statusFor(errType)

	message := err.Error()
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	switch errType {
	case domain.ErrorTypeRateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterRateLimited))
	case domain.ErrorTypeUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterUnavailable))
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "webhook request failed", logging.ErrKey, err)
		message = "internal error"
	}

	writeJSON(ctx, w, status, errorResponse{Error: message})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(ctx, "failed to write response", logging.ErrKey, err)
	}
}
