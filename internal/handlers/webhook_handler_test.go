// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/service"
)

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) Ingest(ctx context.Context, provider models.Provider, headers http.Header, body []byte) (*service.IngestResult, error) {
	args := m.Called(ctx, provider, headers, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *mockIngester) ServiceReady() bool {
	return m.Called().Bool(0)
}

func newTestMux(ingester Ingester) http.Handler {
	mux := http.NewServeMux()
	NewWebhookHandler(ingester).Register(mux)
	return middleware.WebhookBodyCaptureMiddleware(0)(mux)
}

func TestWebhookHandler_Responses(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		provider       models.Provider
		result         *service.IngestResult
		err            error
		expectedStatus int
		expectedBody   string
		retryAfter     string
	}{
		{
			name:           "received",
			path:           "/webhooks/fathom",
			provider:       models.ProviderFathom,
			result:         &service.IngestResult{Status: service.StatusReceived, DeliveryID: "msg_1"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"received"}`,
		},
		{
			name:           "already processed",
			path:           "/webhooks/automation",
			provider:       models.ProviderAutomation,
			result:         &service.IngestResult{Status: service.StatusAlreadyProcessed},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"already_processed"}`,
		},
		{
			name:           "ignored",
			path:           "/webhooks/zoom",
			provider:       models.ProviderZoom,
			result:         &service.IngestResult{Status: service.StatusIgnored, Event: "meeting.started"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ignored","event":"meeting.started"}`,
		},
		{
			name:     "zoom challenge",
			path:     "/webhooks/zoom",
			provider: models.ProviderZoom,
			result: &service.IngestResult{Challenge: &models.ZoomURLValidationResponse{
				PlainToken: "plain", EncryptedToken: "abc123",
			}},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"plainToken":"plain","encryptedToken":"abc123"}`,
		},
		{
			name:           "invalid signature",
			path:           "/webhooks/fathom",
			provider:       models.ProviderFathom,
			err:            domain.NewUnauthorizedError("invalid signature"),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"invalid signature"}`,
		},
		{
			name:           "malformed payload hides the decoder error",
			path:           "/webhooks/fathom",
			provider:       models.ProviderFathom,
			err:            domain.NewValidationError("malformed payload", errors.New("unexpected EOF")),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"malformed payload"}`,
		},
		{
			name:           "rate limited",
			path:           "/webhooks/automation",
			provider:       models.ProviderAutomation,
			err:            domain.NewRateLimitedError("rate limit exceeded"),
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `{"error":"rate limit exceeded"}`,
			retryAfter:     "60",
		},
		{
			name:           "workers saturated",
			path:           "/webhooks/automation",
			provider:       models.ProviderAutomation,
			err:            domain.NewUnavailableError("ingest workers are busy, retry later"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"ingest workers are busy, retry later"}`,
			retryAfter:     "5",
		},
		{
			name:           "unexpected error is not leaked",
			path:           "/webhooks/zoom",
			provider:       models.ProviderZoom,
			err:            errors.New("kv: bucket not found"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"event":"test"}`
			ingester := &mockIngester{}
			ingester.On("Ingest", mock.Anything, tt.provider, mock.Anything, []byte(body)).
				Return(tt.result, tt.err)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(body))
			w := httptest.NewRecorder()
			newTestMux(ingester).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
			ingester.AssertExpectations(t)
		})
	}
}

func TestWebhookHandler_Routing(t *testing.T) {
	ingester := &mockIngester{}
	mux := newTestMux(ingester)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhooks/fathom", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/teams", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotFound, w.Code)

	ingester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_ReadsBodyWithoutMiddleware(t *testing.T) {
	ingester := &mockIngester{}
	ingester.On("Ingest", mock.Anything, models.ProviderFathom, mock.Anything, []byte("{}")).
		Return(&service.IngestResult{Status: service.StatusReceived}, nil)

	w := httptest.NewRecorder()
	NewWebhookHandler(ingester).Handle(models.ProviderFathom).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/fathom", strings.NewReader("{}")))

	assert.Equal(t, http.StatusOK, w.Code)
	ingester.AssertExpectations(t)
}

func TestWebhookHandler_HandlerReady(t *testing.T) {
	ready := &mockIngester{}
	ready.On("ServiceReady").Return(true)
	assert.True(t, NewWebhookHandler(ready).HandlerReady())

	notReady := &mockIngester{}
	notReady.On("ServiceReady").Return(false)
	assert.False(t, NewWebhookHandler(notReady).HandlerReady())

	assert.False(t, NewWebhookHandler(nil).HandlerReady())
}

func TestRegisterHealth(t *testing.T) {
	var failing bool
	mux := http.NewServeMux()
	RegisterHealth(mux, func() error {
		if failing {
			return errors.New("NATS connection not ready")
		}
		return nil
	})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	failing = true
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NATS connection not ready")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
