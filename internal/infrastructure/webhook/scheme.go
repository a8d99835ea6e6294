// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
)

// Scheme names reported in a models.VerificationOutcome.
const (
	SchemeHeaderHMAC     = "header_hmac"
	SchemeSignedEnvelope = "signed_envelope"
	SchemeZoomV0         = "zoom_v0"
)

// Scheme is one signing convention. Implementations must not retain or
// expose the key or any computed digest.
type Scheme interface {
	Name() string
	// Present reports whether the headers carry this scheme's signature.
	Present(h http.Header) bool
	// Verify checks the signature with a single key form.
	Verify(key []byte, h http.Header, body []byte) bool
	// Timestamp returns the signed timestamp header value, if any.
	Timestamp(h http.Header) string
}

func firstHeader(h http.Header, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// HeaderHMACScheme verifies a digest carried in X-Webhook-Signature (or the
// older X-Signature). The digest may be hex or base64 and covers the raw
// body. Senders that add X-Webhook-Timestamp may instead sign
// "{timestamp}.{body}", so both contents are tried when the header is set.
type HeaderHMACScheme struct{}

func (HeaderHMACScheme) Name() string { return SchemeHeaderHMAC }

func (HeaderHMACScheme) Present(h http.Header) bool {
	return firstHeader(h, constants.HeaderWebhookSignature, constants.HeaderSignature) != ""
}

func (HeaderHMACScheme) Timestamp(h http.Header) string {
	return firstHeader(h, constants.HeaderWebhookTimestamp)
}

func (s HeaderHMACScheme) Verify(key []byte, h http.Header, body []byte) bool {
	provided := firstHeader(h, constants.HeaderWebhookSignature, constants.HeaderSignature)
	if provided == "" {
		return false
	}

	digests := [][]byte{sign(key, string(body))}
	if ts := s.Timestamp(h); ts != "" {
		digests = append(digests, sign(key, ts, ".", string(body)))
	}

	ok := false
	for _, digest := range digests {
		hexOK := ConstantTimeEqual(provided, hex.EncodeToString(digest))
		b64OK := ConstantTimeEqual(provided, base64.StdEncoding.EncodeToString(digest))
		ok = ok || hexOK || b64OK
	}
	return ok
}

// SignedEnvelopeScheme is the Standard Webhooks (Svix) convention: the
// signed content is "{id}.{timestamp}.{body}", the digest is base64 and the
// signature header lists space-separated "v1,<sig>" entries.
type SignedEnvelopeScheme struct{}

func (SignedEnvelopeScheme) Name() string { return SchemeSignedEnvelope }

func (SignedEnvelopeScheme) Present(h http.Header) bool {
	return firstHeader(h, constants.HeaderEnvelopeSignature, constants.HeaderSvixSignature) != ""
}

func (SignedEnvelopeScheme) Timestamp(h http.Header) string {
	return firstHeader(h, constants.HeaderEnvelopeTimestamp, constants.HeaderSvixTimestamp)
}

func (s SignedEnvelopeScheme) Verify(key []byte, h http.Header, body []byte) bool {
	id := EnvelopeID(h)
	ts := s.Timestamp(h)
	header := firstHeader(h, constants.HeaderEnvelopeSignature, constants.HeaderSvixSignature)
	if id == "" || ts == "" || header == "" {
		return false
	}

	expected := base64.StdEncoding.EncodeToString(sign(key, id, ".", ts, ".", string(body)))

	matched := false
	for _, entry := range strings.Fields(header) {
		version, sig, found := strings.Cut(entry, ",")
		if !found {
			sig = version
		} else if version != "v1" {
			continue
		}
		if ConstantTimeEqual(sig, expected) {
			matched = true
		}
	}
	return matched
}

// EnvelopeID returns the Standard Webhooks delivery id, if present.
func EnvelopeID(h http.Header) string {
	return firstHeader(h, constants.HeaderEnvelopeID, constants.HeaderSvixID)
}

// ZoomV0Scheme verifies Zoom's "v0=<hex>" signature over "v0:{ts}:{body}".
type ZoomV0Scheme struct{}

const zoomSignatureVersion = "v0"

func (ZoomV0Scheme) Name() string { return SchemeZoomV0 }

func (ZoomV0Scheme) Present(h http.Header) bool {
	return firstHeader(h, constants.HeaderZoomSignature) != ""
}

func (ZoomV0Scheme) Timestamp(h http.Header) string {
	return firstHeader(h, constants.HeaderZoomTimestamp)
}

func (s ZoomV0Scheme) Verify(key []byte, h http.Header, body []byte) bool {
	provided := firstHeader(h, constants.HeaderZoomSignature)
	ts := s.Timestamp(h)
	if provided == "" || ts == "" {
		return false
	}

	sig, ok := strings.CutPrefix(provided, zoomSignatureVersion+"=")
	if !ok {
		return false
	}

	expected := hex.EncodeToString(sign(key, zoomSignatureVersion, ":", ts, ":", string(body)))
	return ConstantTimeEqual(sig, expected)
}

// ZoomChallengeResponse computes the encryptedToken Zoom expects in reply to
// an endpoint.url_validation event.
func ZoomChallengeResponse(secret, plainToken string) string {
	return hex.EncodeToString(sign([]byte(secret), plainToken))
}
