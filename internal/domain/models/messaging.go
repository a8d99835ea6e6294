// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the ingest service sends messages about.
const (
	// RecordIngestedSubject is published after a recording is persisted.
	// The subject is of the form: lfx.recording-ingest.record_ingested
	RecordIngestedSubject = "lfx.recording-ingest.record_ingested"

	// RecordsMergedSubject is published when two records are merged into one cluster.
	// The subject is of the form: lfx.recording-ingest.records_merged
	RecordsMergedSubject = "lfx.recording-ingest.records_merged"
)

// MessageAction is a type for the action of an ingest message.
type MessageAction string

// MessageAction constants for the action of an ingest message.
const (
	// ActionCreated is the action for a record creation message.
	ActionCreated MessageAction = "created"
	// ActionUpdated is the action for a record update message.
	ActionUpdated MessageAction = "updated"
)

// RecordIngestedMessage is the schema of the message sent when a record is persisted.
type RecordIngestedMessage struct {
	Action         MessageAction `json:"action"`
	RecordUID      string        `json:"record_uid"`
	ExternalID     string        `json:"external_id"`
	OwnerID        string        `json:"owner_id"`
	SourcePlatform string        `json:"source_platform"`
	IsPrimary      bool          `json:"is_primary"`
	DeliveryID     string        `json:"delivery_id"`
	IngestedAt     time.Time     `json:"ingested_at"`
}

// RecordsMergedMessage is the schema of the message sent after a merge decision.
type RecordsMergedMessage struct {
	OwnerID    string   `json:"owner_id"`
	PrimaryUID string   `json:"primary_uid"`
	DemotedUID string   `json:"demoted_uid"`
	MergedFrom []string `json:"merged_from"`
	Score      float64  `json:"score"`
	NewPrimary bool     `json:"new_primary"`
}
