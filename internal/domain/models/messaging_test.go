// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagingSubjects(t *testing.T) {
	assert.Equal(t, "lfx.recording-ingest.record_ingested", RecordIngestedSubject)
	assert.Equal(t, "lfx.recording-ingest.records_merged", RecordsMergedSubject)
}

func TestRecordIngestedMessage_JSON(t *testing.T) {
	msg := RecordIngestedMessage{
		Action:         ActionCreated,
		RecordUID:      "uid-1",
		ExternalID:     "12345",
		OwnerID:        "owner-1",
		SourcePlatform: PlatformFathom,
		IsPrimary:      true,
		DeliveryID:     "msg_1",
		IngestedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "created", raw["action"])
	assert.Equal(t, "uid-1", raw["record_uid"])
	assert.Equal(t, true, raw["is_primary"])
	assert.Equal(t, "2025-01-02T03:04:05Z", raw["ingested_at"])
}
