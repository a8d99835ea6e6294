// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecret_NeverPrintsValue(t *testing.T) {
	s := Secret{Source: SecretSourceUser, Value: "whsec_c3VwZXJzZWNyZXQ="}

	assert.Equal(t, "secret(user)", s.String())
	assert.NotContains(t, fmt.Sprintf("%v", s), "whsec_")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("resolved", "secret", s)
	assert.NotContains(t, buf.String(), "whsec_")
	assert.Contains(t, buf.String(), "secret(user)")
}
