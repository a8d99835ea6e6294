// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"log/slog"
)

// SecretSource names where a candidate secret came from.
type SecretSource string

const (
	SecretSourceUser     SecretSource = "user"
	SecretSourceApp      SecretSource = "app"
	SecretSourceFallback SecretSource = "fallback"
)

// Secret is a candidate signing secret. Value must never be logged.
type Secret struct {
	Source SecretSource
	Value  string
}

// String hides the secret value from fmt and slog output.
func (s Secret) String() string {
	return "secret(" + string(s.Source) + ")"
}

// LogValue keeps the secret value out of structured logs.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// SecretResolver returns the candidate secrets to try for a sender, in order.
type SecretResolver interface {
	Resolve(ctx context.Context, senderEmail string) ([]Secret, error)
}
