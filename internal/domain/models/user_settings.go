// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// PriorityMode selects which record of a matched pair becomes primary.
type PriorityMode string

const (
	PriorityFirstSynced       PriorityMode = "first_synced"
	PriorityMostRecent        PriorityMode = "most_recent"
	PriorityPlatformHierarchy PriorityMode = "platform_hierarchy"
	PriorityLongestTranscript PriorityMode = "longest_transcript"
)

// Valid reports whether the mode is one the merge resolver understands.
func (m PriorityMode) Valid() bool {
	switch m {
	case PriorityFirstSynced, PriorityMostRecent, PriorityPlatformHierarchy, PriorityLongestTranscript:
		return true
	}
	return false
}

// DefaultPlatformOrder is used for platform_hierarchy when an owner has none configured.
var DefaultPlatformOrder = []string{PlatformFathom, PlatformZoom, PlatformGoogleMeet}

// DedupSettings holds an owner's deduplication preferences.
type DedupSettings struct {
	Disabled      bool         `json:"disabled,omitempty" msgpack:"disabled,omitempty"`
	PriorityMode  PriorityMode `json:"priority_mode,omitempty" msgpack:"priority_mode,omitempty"`
	PlatformOrder []string     `json:"platform_order,omitempty" msgpack:"platform_order,omitempty"`
}

// WithDefaults fills unset fields.
func (s DedupSettings) WithDefaults() DedupSettings {
	if !s.PriorityMode.Valid() {
		s.PriorityMode = PriorityFirstSynced
	}
	if len(s.PlatformOrder) == 0 {
		s.PlatformOrder = append([]string(nil), DefaultPlatformOrder...)
	}
	return s
}

// UserSettings maps a sender email to the owning user and their webhook
// configuration.
type UserSettings struct {
	OwnerID       string        `json:"owner_id" msgpack:"owner_id"`
	Email         string        `json:"email" msgpack:"email"`
	WebhookSecret string        `json:"webhook_secret,omitempty" msgpack:"webhook_secret,omitempty"`
	Dedup         DedupSettings `json:"dedup" msgpack:"dedup"`
}
