// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
)

const testBody = `{"recording_id":123,"title":"Weekly Sync"}`

func hmacSHA256(key []byte, content string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(content))
	return mac.Sum(nil)
}

func secrets(values ...string) []domain.Secret {
	out := make([]domain.Secret, 0, len(values))
	for _, v := range values {
		out = append(out, domain.Secret{Source: domain.SecretSourceApp, Value: v})
	}
	return out
}

func envelopeHeaders(id, ts, sig string) http.Header {
	h := http.Header{}
	h.Set(constants.HeaderEnvelopeID, id)
	h.Set(constants.HeaderEnvelopeTimestamp, ts)
	h.Set(constants.HeaderEnvelopeSignature, sig)
	return h
}

func TestVerifier_SignedEnvelope(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(key)
	id, ts := "msg_2Lh9", "1700000000"
	sig := base64.StdEncoding.EncodeToString(hmacSHA256(key, id+"."+ts+"."+testBody))

	v := NewVerifier()

	t.Run("single v1 entry", func(t *testing.T) {
		out := v.Verify(secrets(secret), envelopeHeaders(id, ts, "v1,"+sig), []byte(testBody))
		assert.True(t, out.Valid)
		assert.Equal(t, SchemeSignedEnvelope, out.Scheme)
	})

	t.Run("any of several entries", func(t *testing.T) {
		header := "v1,bm90LWl0 v1," + sig + " v1,YWxzby1ub3Q="
		out := v.Verify(secrets(secret), envelopeHeaders(id, ts, header), []byte(testBody))
		assert.True(t, out.Valid)
	})

	t.Run("svix aliases", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderSvixID, id)
		h.Set(constants.HeaderSvixTimestamp, ts)
		h.Set(constants.HeaderSvixSignature, "v1,"+sig)
		out := v.Verify(secrets(secret), h, []byte(testBody))
		assert.True(t, out.Valid)
		assert.Equal(t, SchemeSignedEnvelope, out.Scheme)
	})

	t.Run("unknown version ignored", func(t *testing.T) {
		out := v.Verify(secrets(secret), envelopeHeaders(id, ts, "v2,"+sig), []byte(testBody))
		assert.False(t, out.Valid)
	})

	t.Run("missing id fails", func(t *testing.T) {
		out := v.Verify(secrets(secret), envelopeHeaders("", ts, "v1,"+sig), []byte(testBody))
		assert.False(t, out.Valid)
	})

	t.Run("single byte change in body fails", func(t *testing.T) {
		tampered := []byte(testBody)
		tampered[5] ^= 0x01
		out := v.Verify(secrets(secret), envelopeHeaders(id, ts, "v1,"+sig), tampered)
		assert.False(t, out.Valid)
		assert.Empty(t, out.Scheme)
	})

	t.Run("wrong secret then right secret", func(t *testing.T) {
		out := v.Verify(secrets("whsec_d3Jvbmc=", secret), envelopeHeaders(id, ts, "v1,"+sig), []byte(testBody))
		assert.True(t, out.Valid)
	})
}

func TestVerifier_HeaderHMAC(t *testing.T) {
	secret := "automation-secret"
	digest := hmacSHA256([]byte(secret), testBody)
	v := NewVerifier()

	t.Run("hex digest", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderWebhookSignature, hex.EncodeToString(digest))
		out := v.Verify(secrets(secret), h, []byte(testBody))
		assert.True(t, out.Valid)
		assert.Equal(t, SchemeHeaderHMAC, out.Scheme)
	})

	t.Run("base64 digest on legacy header", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderSignature, base64.StdEncoding.EncodeToString(digest))
		out := v.Verify(secrets(secret), h, []byte(testBody))
		assert.True(t, out.Valid)
	})

	t.Run("timestamped content", func(t *testing.T) {
		ts := "1700000000"
		h := http.Header{}
		h.Set(constants.HeaderWebhookTimestamp, ts)
		h.Set(constants.HeaderWebhookSignature, hex.EncodeToString(hmacSHA256([]byte(secret), ts+"."+testBody)))
		out := v.Verify(secrets(secret), h, []byte(testBody))
		assert.True(t, out.Valid)
		assert.Equal(t, ts, v.Timestamp(out, h))
	})

	t.Run("raw body digest alongside a timestamp header", func(t *testing.T) {
		for _, encoded := range []string{hex.EncodeToString(digest), base64.StdEncoding.EncodeToString(digest)} {
			h := http.Header{}
			h.Set(constants.HeaderWebhookTimestamp, "1700000000")
			h.Set(constants.HeaderWebhookSignature, encoded)
			out := v.Verify(secrets(secret), h, []byte(testBody))
			assert.True(t, out.Valid, encoded)
			assert.Equal(t, SchemeHeaderHMAC, out.Scheme)
			assert.Equal(t, "1700000000", v.Timestamp(out, h))
		}
	})

	t.Run("timestamped digest for another timestamp fails", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderWebhookTimestamp, "1700000001")
		h.Set(constants.HeaderWebhookSignature, hex.EncodeToString(hmacSHA256([]byte(secret), "1700000000."+testBody)))
		out := v.Verify(secrets(secret), h, []byte(testBody))
		assert.False(t, out.Valid)
	})

	t.Run("raw body digest over a different body fails", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderWebhookTimestamp, "1700000000")
		h.Set(constants.HeaderWebhookSignature, hex.EncodeToString(digest))
		out := v.Verify(secrets(secret), h, []byte(testBody+" "))
		assert.False(t, out.Valid)
	})

	t.Run("prefixed secret used stripped", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderWebhookSignature, hex.EncodeToString(digest))
		out := v.Verify(secrets("whsec_"+secret), h, []byte(testBody))
		assert.True(t, out.Valid)
	})
}

func TestVerifier_ZoomV0(t *testing.T) {
	secret := "zoom-secret-token"
	ts := "1700000000"
	sig := "v0=" + hex.EncodeToString(hmacSHA256([]byte(secret), "v0:"+ts+":"+testBody))
	v := NewVerifier()

	h := http.Header{}
	h.Set(constants.HeaderZoomSignature, sig)
	h.Set(constants.HeaderZoomTimestamp, ts)

	out := v.Verify(secrets(secret), h, []byte(testBody))
	assert.True(t, out.Valid)
	assert.Equal(t, SchemeZoomV0, out.Scheme)
	assert.Equal(t, ts, v.Timestamp(out, h))

	t.Run("missing prefix fails", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderZoomSignature, sig[3:])
		h.Set(constants.HeaderZoomTimestamp, ts)
		assert.False(t, v.Verify(secrets(secret), h, []byte(testBody)).Valid)
	})

	t.Run("different timestamp fails", func(t *testing.T) {
		h := http.Header{}
		h.Set(constants.HeaderZoomSignature, sig)
		h.Set(constants.HeaderZoomTimestamp, "1700000001")
		assert.False(t, v.Verify(secrets(secret), h, []byte(testBody)).Valid)
	})
}

func TestVerifier_NoSignatureOrSecrets(t *testing.T) {
	v := NewVerifier()

	assert.False(t, v.HasSignature(http.Header{}))
	assert.False(t, v.Verify(secrets("anything"), http.Header{}, []byte(testBody)).Valid)

	h := http.Header{}
	h.Set(constants.HeaderWebhookSignature, "deadbeef")
	assert.True(t, v.HasSignature(h))
	assert.False(t, v.Verify(nil, h, []byte(testBody)).Valid)
}

func TestVerifier_RestrictedSchemes(t *testing.T) {
	secret := "zoom-secret-token"
	ts := "1700000000"
	h := http.Header{}
	h.Set(constants.HeaderZoomSignature, "v0="+hex.EncodeToString(hmacSHA256([]byte(secret), "v0:"+ts+":"+testBody)))
	h.Set(constants.HeaderZoomTimestamp, ts)

	v := NewVerifier(HeaderHMACScheme{})
	assert.False(t, v.HasSignature(h))
	assert.False(t, v.Verify(secrets(secret), h, []byte(testBody)).Valid)
}

func TestZoomChallengeResponse(t *testing.T) {
	got := ZoomChallengeResponse("secret", "plain-token")
	assert.Equal(t, hex.EncodeToString(hmacSHA256([]byte("secret"), "plain-token")), got)
	assert.Len(t, got, 64)
}

func TestEnvelopeID(t *testing.T) {
	h := http.Header{}
	assert.Empty(t, EnvelopeID(h))
	h.Set(constants.HeaderSvixID, "svix-1")
	assert.Equal(t, "svix-1", EnvelopeID(h))
	h.Set(constants.HeaderEnvelopeID, "wh-1")
	assert.Equal(t, "wh-1", EnvelopeID(h))
}
