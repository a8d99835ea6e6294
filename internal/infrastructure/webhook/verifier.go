// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"net/http"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// Verifier checks a delivery against every configured scheme and every
// candidate secret. Senders are not consistent about which convention they
// use, so the first combination that verifies wins.
type Verifier struct {
	schemes []Scheme
}

// NewVerifier creates a verifier. With no schemes it uses all known schemes.
func NewVerifier(schemes ...Scheme) *Verifier {
	if len(schemes) == 0 {
		schemes = DefaultSchemes()
	}
	return &Verifier{schemes: schemes}
}

// DefaultSchemes returns the schemes tried by NewVerifier, in order.
func DefaultSchemes() []Scheme {
	return []Scheme{SignedEnvelopeScheme{}, ZoomV0Scheme{}, HeaderHMACScheme{}}
}

// HasSignature reports whether any scheme finds its signature header.
func (v *Verifier) HasSignature(headers http.Header) bool {
	for _, s := range v.schemes {
		if s.Present(headers) {
			return true
		}
	}
	return false
}

// Verify returns the outcome of checking headers and body against secrets.
// Secrets are tried in the order given. The outcome never carries digests.
func (v *Verifier) Verify(secrets []domain.Secret, headers http.Header, body []byte) models.VerificationOutcome {
	for _, secret := range secrets {
		forms := secretForms(secret.Value)
		for _, s := range v.schemes {
			if !s.Present(headers) {
				continue
			}
			for _, key := range forms {
				if s.Verify(key, headers, body) {
					return models.VerificationOutcome{Valid: true, Scheme: s.Name()}
				}
			}
		}
	}
	return models.VerificationOutcome{Valid: false}
}

// Timestamp returns the signed timestamp for the scheme that verified the
// delivery, falling back to the first timestamp any scheme can find.
func (v *Verifier) Timestamp(outcome models.VerificationOutcome, headers http.Header) string {
	for _, s := range v.schemes {
		if s.Name() == outcome.Scheme {
			if ts := s.Timestamp(headers); ts != "" {
				return ts
			}
		}
	}
	for _, s := range v.schemes {
		if ts := s.Timestamp(headers); ts != "" {
			return ts
		}
	}
	return ""
}
