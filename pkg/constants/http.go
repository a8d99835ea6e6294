// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// ContentTypeJSON is the content type written on every webhook response
	ContentTypeJSON string = "application/json"
)

// Webhook signature headers. Names are fixed by the senders and compared
// case-insensitively through http.Header.
const (
	// HeaderWebhookSignature carries a header-keyed HMAC digest.
	HeaderWebhookSignature string = "X-Webhook-Signature"
	// HeaderSignature is the legacy alias of HeaderWebhookSignature.
	HeaderSignature string = "X-Signature"
	// HeaderWebhookTimestamp is the automation sender timestamp.
	HeaderWebhookTimestamp string = "X-Webhook-Timestamp"
	// HeaderWebhookUserID optionally names the automation user.
	HeaderWebhookUserID string = "X-Webhook-User-Id"

	// HeaderEnvelopeID is the Standard Webhooks delivery id.
	HeaderEnvelopeID string = "Webhook-Id"
	// HeaderEnvelopeTimestamp is the Standard Webhooks timestamp.
	HeaderEnvelopeTimestamp string = "Webhook-Timestamp"
	// HeaderEnvelopeSignature holds space-separated v1,<sig> entries.
	HeaderEnvelopeSignature string = "Webhook-Signature"

	// Svix aliases of the Standard Webhooks headers.
	HeaderSvixID        string = "Svix-Id"
	HeaderSvixTimestamp string = "Svix-Timestamp"
	HeaderSvixSignature string = "Svix-Signature"

	// HeaderZoomSignature is Zoom's v0=<hex> signature.
	HeaderZoomSignature string = "X-Zm-Signature"
	// HeaderZoomTimestamp is Zoom's request timestamp in seconds.
	HeaderZoomTimestamp string = "X-Zm-Request-Timestamp"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"
