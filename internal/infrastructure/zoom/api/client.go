// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/ratelimit"
)

const (
	// AuthURL is the OAuth token endpoint
	AuthURL = "https://zoom.us/oauth/token"
	// DefaultClientTimeout is the default HTTP client timeout for Zoom downloads
	DefaultClientTimeout = 30 * time.Second
	// DefaultMaxRetries bounds retries on 429, 5xx and network errors.
	DefaultMaxRetries = 3
	// MaxDownloadBytes caps a single transcript download.
	MaxDownloadBytes = 50 << 20
)

// ErrUnauthorized is returned when the download is still rejected after the
// account token was refreshed.
var ErrUnauthorized = errors.New("zoom download unauthorized")

// Client downloads recording artifacts from Zoom. Every request first takes a
// slot from the shared rate limiter for its scope.
type Client struct {
	httpClient  *http.Client
	config      Config
	oauthConfig *clientcredentials.Config
	limiter     *ratelimit.Limiter
	backoff     ratelimit.Backoff

	tokenMu     sync.Mutex
	tokenSource oauth2.TokenSource

	sleep func(ctx context.Context, d time.Duration) error
}

// Config holds the configuration for the Zoom client
type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	// Optional: override auth URL for testing
	AuthURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries int
	Backoff    ratelimit.Backoff
}

// Ensure that Client implements RecordingFetcher
var _ domain.RecordingFetcher = (*Client)(nil)

// NewClient creates a new Zoom download client. limiter may be shared with
// other provider clients.
func NewClient(config Config, limiter *ratelimit.Limiter) *Client {
	if config.AuthURL == "" {
		config.AuthURL = AuthURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Config{})
	}

	// Zoom Server-to-Server OAuth requires specific grant_type and account_id
	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.AuthURL,
		EndpointParams: url.Values{
			"grant_type": []string{"account_credentials"},
			"account_id": []string{config.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config:      config,
		oauthConfig: oauthConfig,
		limiter:     limiter,
		backoff:     config.Backoff,
		sleep:       sleepContext,
	}
}

func (c *Client) hasAccountCredentials() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// accountToken returns the server-to-server token. refresh discards the
// cached token and fetches a new one.
func (c *Client) accountToken(ctx context.Context, refresh bool) (string, error) {
	if !c.hasAccountCredentials() {
		return "", fmt.Errorf("zoom account credentials are not configured")
	}

	c.tokenMu.Lock()
	if c.tokenSource == nil || refresh {
		c.tokenSource = c.oauthConfig.TokenSource(context.WithoutCancel(ctx))
	}
	ts := c.tokenSource
	c.tokenMu.Unlock()

	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get zoom access token: %w", err)
	}
	return tok.AccessToken, nil
}

// DownloadTranscript fetches the file behind downloadURL. accessToken is the
// webhook's download token; when it is empty or rejected with 401 the client
// switches to a freshly issued account token and retries once. 429 responses
// feed Retry-After into the limiter and back off before retrying.
func (c *Client) DownloadTranscript(ctx context.Context, downloadURL, accessToken, scope string) ([]byte, error) {
	if downloadURL == "" {
		return nil, fmt.Errorf("download url is required")
	}
	if scope == "" {
		scope = ratelimit.GlobalScope
	}

	token := accessToken
	usingAccount := false
	if token == "" {
		var err error
		if token, err = c.accountToken(ctx, false); err != nil {
			return nil, err
		}
		usingAccount = true
	}
	refreshed := false

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, scope); err != nil {
			return nil, err
		}

		start := time.Now()
		body, status, header, err := c.get(ctx, downloadURL, token)
		duration := time.Since(start)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err

		case status == http.StatusOK:
			slog.DebugContext(ctx, "zoom download completed",
				"status", status,
				"bytes", len(body),
				"duration", duration.String(),
				"attempt", attempt+1,
			)
			return body, nil

		case status == http.StatusUnauthorized:
			if refreshed || !c.hasAccountCredentials() {
				slog.ErrorContext(ctx, "zoom download rejected",
					"status", status,
					"account_token", usingAccount,
					"attempt", attempt+1,
				)
				return nil, ErrUnauthorized
			}
			slog.WarnContext(ctx, "zoom download unauthorized, refreshing token",
				"account_token", usingAccount,
				"attempt", attempt+1,
			)
			if token, err = c.accountToken(ctx, usingAccount); err != nil {
				return nil, err
			}
			usingAccount, refreshed = true, true
			// The retry with the new token does not use up an attempt.
			attempt--
			continue

		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("zoom download rate limited")
			if pause := c.limiter.UpdateFromHeaders(scope, header); pause > 0 {
				slog.WarnContext(ctx, "zoom download rate limited",
					"retry_after", pause.String(),
					"attempt", attempt+1,
				)
				continue
			}

		case status >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("zoom download failed with status %d", status)

		default:
			return nil, parseErrorResponse(status, body)
		}

		if attempt < c.config.MaxRetries {
			backoff := c.backoff.Duration(attempt)
			slog.WarnContext(ctx, "zoom download failed, retrying",
				"status", status,
				"duration", duration.String(),
				"attempt", attempt+1,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff.String(),
				logging.ErrKey, lastErr,
			)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	slog.ErrorContext(ctx, "zoom download failed after all retries",
		"attempts", c.config.MaxRetries+1,
		logging.ErrKey, lastErr,
		logging.PriorityCritical(),
	)
	return nil, fmt.Errorf("download failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) get(ctx context.Context, downloadURL, token string) ([]byte, int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes))
	if err != nil {
		return nil, resp.StatusCode, resp.Header, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, resp.Header, nil
}

// parseErrorResponse attempts to parse a Zoom API error response
func parseErrorResponse(status int, body []byte) error {
	var errResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("zoom API error (status %d, code %d): %s", status, errResp.Code, errResp.Message)
	}
	return fmt.Errorf("zoom API error (status %d)", status)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
