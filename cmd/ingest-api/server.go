// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/service"
)

// newHTTPHandler builds the routes and the middleware chain.
func newHTTPHandler(webhookHandler *handlers.WebhookHandler, natsConn *nats.Conn) http.Handler {
	mux := http.NewServeMux()
	webhookHandler.Register(mux)
	handlers.RegisterHealth(mux,
		func() error {
			if natsConn == nil {
				return errors.New("no NATS connection")
			}
			if !natsConn.IsConnected() || natsConn.IsDraining() {
				return errors.New("NATS connection not ready")
			}
			return nil
		},
		func() error {
			if !webhookHandler.HandlerReady() {
				return errors.New("ingest service not ready")
			}
			return nil
		},
	)

	var handler http.Handler = mux

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.WebhookBodyCaptureMiddleware(0)(handler)
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)

	return otelhttp.NewHandler(handler, "ingest-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
		}),
	)
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, handler http.Handler) *http.Server {
	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
	}()

	return httpServer
}

// gracefulShutdown stops accepting deliveries, waits for accepted ones to
// finish, then drains NATS. Accepted deliveries publish on NATS, so the
// connection must outlive the worker pool.
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, ingest *service.IngestService, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Debug("beginning graceful shutdown")

	ctx, stop := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer stop()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("http server shutdown error")
	}

	if err := ingest.Drain(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("in-flight deliveries did not finish before shutdown")
	}

	// Cancel the background context.
	cancel()

	if !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connection")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			os.Exit(1)
		}
	}

	slog.Debug("waiting for graceful shutdown steps to complete")
	gracefulCloseWG.Wait()
	slog.Debug("graceful shutdown steps completed")
}
