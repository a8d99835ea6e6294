// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"net/http"
	"time"
)

// Provider identifies the webhook sender.
type Provider string

const (
	ProviderFathom     Provider = "fathom"
	ProviderZoom       Provider = "zoom"
	ProviderAutomation Provider = "automation"
)

// Delivery is a single inbound webhook request. It is immutable once built.
type Delivery struct {
	Provider   Provider
	ID         string
	EventType  string
	Headers    http.Header
	Body       []byte
	SenderHint string
	ReceivedAt time.Time
}

// VerificationOutcome reports whether a delivery verified and under which scheme.
// It never carries computed or expected digests.
type VerificationOutcome struct {
	Valid  bool   `json:"valid"`
	Scheme string `json:"scheme,omitempty"`
}

// LedgerEntry marks a delivery as fully processed.
type LedgerEntry struct {
	DeliveryID  string    `json:"delivery_id" msgpack:"delivery_id"`
	Provider    Provider  `json:"provider" msgpack:"provider"`
	ProcessedAt time.Time `json:"processed_at" msgpack:"processed_at"`
}

// DeliveryStatus is the lifecycle state of a delivery log entry.
type DeliveryStatus string

const (
	DeliveryStatusReceived  DeliveryStatus = "received"
	DeliveryStatusSuccess   DeliveryStatus = "success"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusDuplicate DeliveryStatus = "duplicate"
	DeliveryStatusIgnored   DeliveryStatus = "ignored"
)

// DeliveryLog is the operator-visible record of what happened to a delivery
// after it was acknowledged.
type DeliveryLog struct {
	UID          string         `json:"uid" msgpack:"uid"`
	DeliveryID   string         `json:"delivery_id" msgpack:"delivery_id"`
	Provider     Provider       `json:"provider" msgpack:"provider"`
	EventType    string         `json:"event_type,omitempty" msgpack:"event_type,omitempty"`
	OwnerID      string         `json:"owner_id,omitempty" msgpack:"owner_id,omitempty"`
	RecordUID    string         `json:"record_uid,omitempty" msgpack:"record_uid,omitempty"`
	Status       DeliveryStatus `json:"status" msgpack:"status"`
	ErrorMessage string         `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
	ReceivedAt   time.Time      `json:"received_at" msgpack:"received_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" msgpack:"completed_at,omitempty"`
}
