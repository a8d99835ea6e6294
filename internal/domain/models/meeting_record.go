// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"crypto/sha256"
	"strings"
	"time"

	"github.com/akamensky/base58"
)

// Source platforms that deliver recordings.
const (
	PlatformFathom     = "fathom"
	PlatformZoom       = "zoom"
	PlatformGoogleMeet = "google_meet"
	PlatformAutomation = "automation"
)

// DefaultRecordDuration is assumed when a record has no end time.
const DefaultRecordDuration = time.Hour

// Invitee is a calendar invitee attached to a recording.
type Invitee struct {
	Name  string `json:"name,omitempty" msgpack:"name,omitempty"`
	Email string `json:"email,omitempty" msgpack:"email,omitempty"`
}

// MeetingRecord is the canonical stored form of an ingested recording.
//
// Records are keyed by the natural key (ExternalID, OwnerID). Within a merge
// cluster exactly one record is primary. Secondaries point back at their
// primary through MergedInto, and only primaries carry MergedFrom.
type MeetingRecord struct {
	UID              string     `json:"uid" msgpack:"uid"`
	ExternalID       string     `json:"external_id" msgpack:"external_id"`
	OwnerID          string     `json:"owner_id" msgpack:"owner_id"`
	Title            string     `json:"title" msgpack:"title"`
	StartTime        time.Time  `json:"start_time" msgpack:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty" msgpack:"end_time,omitempty"`
	SourcePlatform   string     `json:"source_platform,omitempty" msgpack:"source_platform,omitempty"`
	IsPrimary        bool       `json:"is_primary" msgpack:"is_primary"`
	MergedFrom       []string   `json:"merged_from,omitempty" msgpack:"merged_from,omitempty"`
	MergedInto       string     `json:"merged_into,omitempty" msgpack:"merged_into,omitempty"`
	FuzzyMatchScore  *float64   `json:"fuzzy_match_score,omitempty" msgpack:"fuzzy_match_score,omitempty"`
	SyncedAt         *time.Time `json:"synced_at,omitempty" msgpack:"synced_at,omitempty"`
	TranscriptText   string     `json:"transcript_text,omitempty" msgpack:"transcript_text,omitempty"`
	TranscriptLength int        `json:"transcript_length" msgpack:"transcript_length"`
	HostEmail        string     `json:"host_email,omitempty" msgpack:"host_email,omitempty"`
	HostName         string     `json:"host_name,omitempty" msgpack:"host_name,omitempty"`
	Invitees         []Invitee  `json:"invitees,omitempty" msgpack:"invitees,omitempty"`
	RecordingURL     string     `json:"recording_url,omitempty" msgpack:"recording_url,omitempty"`
	ShareURL         string     `json:"share_url,omitempty" msgpack:"share_url,omitempty"`
	Summary          string     `json:"summary,omitempty" msgpack:"summary,omitempty"`
	Fingerprint      string     `json:"fingerprint,omitempty" msgpack:"fingerprint,omitempty"`
	CreatedAt        time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" msgpack:"updated_at"`
}

// RecordUID derives the stable record identifier from the natural key, so
// repeated deliveries for the same recording always address the same record.
func RecordUID(ownerID, externalID string) string {
	hash := sha256.Sum256([]byte(ownerID + "/" + externalID))
	return base58.Encode(hash[:])
}

// EffectiveEndTime returns the end time, or start plus one hour when unknown.
func (r *MeetingRecord) EffectiveEndTime() time.Time {
	if r.EndTime != nil && !r.EndTime.IsZero() {
		return *r.EndTime
	}
	return r.StartTime.Add(DefaultRecordDuration)
}

// DurationMinutes returns the record duration in whole and fractional minutes.
func (r *MeetingRecord) DurationMinutes() float64 {
	return r.EffectiveEndTime().Sub(r.StartTime).Minutes()
}

// ParticipantEmails returns the host email followed by every invitee email.
func (r *MeetingRecord) ParticipantEmails() []string {
	emails := make([]string, 0, len(r.Invitees)+1)
	if r.HostEmail != "" {
		emails = append(emails, r.HostEmail)
	}
	for _, inv := range r.Invitees {
		if strings.TrimSpace(inv.Email) != "" {
			emails = append(emails, inv.Email)
		}
	}
	return emails
}

// HasMerged reports whether uid is already in the merged set.
func (r *MeetingRecord) HasMerged(uid string) bool {
	for _, m := range r.MergedFrom {
		if m == uid {
			return true
		}
	}
	return false
}
