// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

func TestPayloadValidator(t *testing.T) {
	v, err := NewPayloadValidator()
	require.NoError(t, err)

	tests := []struct {
		name     string
		provider models.Provider
		body     string
		wantErr  bool
	}{
		{name: "fathom ok", provider: models.ProviderFathom, body: `{"recording_id":123,"recorded_by":{"email":"a@b.c"}}`},
		{name: "fathom string id", provider: models.ProviderFathom, body: `{"recording_id":"123"}`},
		{name: "fathom missing id", provider: models.ProviderFathom, body: `{"title":"x"}`, wantErr: true},
		{name: "fathom transcript wrong type", provider: models.ProviderFathom, body: `{"recording_id":1,"transcript":"text"}`, wantErr: true},
		{name: "zoom ok", provider: models.ProviderZoom, body: `{"event":"recording.transcript_completed","event_ts":1700000000000,"payload":{}}`},
		{name: "zoom missing payload", provider: models.ProviderZoom, body: `{"event":"x"}`, wantErr: true},
		{name: "automation ok", provider: models.ProviderAutomation, body: `{"event":"meeting.completed","external_id":"ext-1","owner_email":"a@b.c","start_time":"2025-03-10T15:00:00Z"}`},
		{name: "automation missing owner", provider: models.ProviderAutomation, body: `{"event":"meeting.completed","external_id":"ext-1","start_time":"2025-03-10T15:00:00Z"}`, wantErr: true},
		{name: "not json", provider: models.ProviderFathom, body: `{not json`, wantErr: true},
		{name: "array body", provider: models.ProviderZoom, body: `[]`, wantErr: true},
		{name: "unknown provider needs only json", provider: models.Provider("other"), body: `{"anything":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.provider, []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
