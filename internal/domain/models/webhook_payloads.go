// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Zoom event types handled by the ingest pipeline.
const (
	ZoomEventURLValidation       = "endpoint.url_validation"
	ZoomEventTranscriptCompleted = "recording.transcript_completed"
)

// ZoomWebhookEvent is the outer envelope of every Zoom webhook.
type ZoomWebhookEvent struct {
	Event   string `json:"event"`
	EventTS int64  `json:"event_ts"`
	// DownloadToken authorizes recording downloads for about 24 hours.
	DownloadToken string          `json:"download_token,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ZoomURLValidationPayload is sent when Zoom validates the endpoint URL.
type ZoomURLValidationPayload struct {
	PlainToken string `json:"plainToken"`
}

// ZoomURLValidationResponse answers a Zoom endpoint validation challenge.
type ZoomURLValidationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// ZoomTranscriptCompletedPayload is the payload of recording.transcript_completed.
type ZoomTranscriptCompletedPayload struct {
	AccountID     string              `json:"account_id"`
	DownloadToken string              `json:"download_token,omitempty"`
	Object        ZoomRecordingObject `json:"object"`
}

// ZoomRecordingObject describes a cloud recording.
type ZoomRecordingObject struct {
	UUID           string              `json:"uuid"`
	ID             json.Number         `json:"id"`
	HostID         string              `json:"host_id"`
	HostEmail      string              `json:"host_email"`
	Topic          string              `json:"topic"`
	StartTime      time.Time           `json:"start_time"`
	Timezone       string              `json:"timezone"`
	Duration       int                 `json:"duration"`
	ShareURL       string              `json:"share_url,omitempty"`
	RecordingFiles []ZoomRecordingFile `json:"recording_files"`
}

// ZoomRecordingFile represents a recording file in webhook payloads.
type ZoomRecordingFile struct {
	ID             string    `json:"id"`
	MeetingID      string    `json:"meeting_id"`
	RecordingStart time.Time `json:"recording_start"`
	RecordingEnd   time.Time `json:"recording_end"`
	FileType       string    `json:"file_type"`
	FileExtension  string    `json:"file_extension"`
	FileSize       int64     `json:"file_size"`
	PlayURL        string    `json:"play_url,omitempty"`
	DownloadURL    string    `json:"download_url,omitempty"`
	Status         string    `json:"status"`
	RecordingType  string    `json:"recording_type"`
}

// IsTranscript reports whether the file holds the audio transcript.
func (f ZoomRecordingFile) IsTranscript() bool {
	return f.FileType == "TRANSCRIPT" || f.RecordingType == "audio_transcript"
}

// TranscriptFile returns the first transcript file, if any.
func (o ZoomRecordingObject) TranscriptFile() (ZoomRecordingFile, bool) {
	for _, f := range o.RecordingFiles {
		if f.IsTranscript() && f.DownloadURL != "" {
			return f, true
		}
	}
	return ZoomRecordingFile{}, false
}

// EndTime is the latest recording end, or start plus the scheduled duration.
func (o ZoomRecordingObject) EndTime() time.Time {
	var end time.Time
	for _, f := range o.RecordingFiles {
		if f.RecordingEnd.After(end) {
			end = f.RecordingEnd
		}
	}
	if end.IsZero() {
		end = o.StartTime.Add(time.Duration(o.Duration) * time.Minute)
	}
	return end
}

// ToURLValidationPayload converts the event to a typed url validation payload
func (z *ZoomWebhookEvent) ToURLValidationPayload() (*ZoomURLValidationPayload, error) {
	if z.Event != ZoomEventURLValidation {
		return nil, fmt.Errorf("invalid event type: expected %s, got %s", ZoomEventURLValidation, z.Event)
	}

	var payload ZoomURLValidationPayload
	if err := json.Unmarshal(z.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to url validation payload: %w", err)
	}

	return &payload, nil
}

// ToTranscriptCompletedPayload converts the event to a typed transcript completed payload
func (z *ZoomWebhookEvent) ToTranscriptCompletedPayload() (*ZoomTranscriptCompletedPayload, error) {
	if z.Event != ZoomEventTranscriptCompleted {
		return nil, fmt.Errorf("invalid event type: expected %s, got %s", ZoomEventTranscriptCompleted, z.Event)
	}

	var payload ZoomTranscriptCompletedPayload
	if err := json.Unmarshal(z.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to transcript completed payload: %w", err)
	}

	return &payload, nil
}

// FathomMeetingPayload is the body of a Fathom new-meeting webhook.
type FathomMeetingPayload struct {
	RecordingID        json.Number               `json:"recording_id"`
	Title              string                    `json:"title"`
	MeetingTitle       string                    `json:"meeting_title,omitempty"`
	URL                string                    `json:"url,omitempty"`
	ShareURL           string                    `json:"share_url,omitempty"`
	CreatedAt          *time.Time                `json:"created_at,omitempty"`
	RecordingStartTime time.Time                 `json:"recording_start_time"`
	RecordingEndTime   *time.Time                `json:"recording_end_time,omitempty"`
	RecordedBy         FathomRecordedBy          `json:"recorded_by"`
	CalendarInvitees   []Invitee                 `json:"calendar_invitees,omitempty"`
	Transcript         []FathomTranscriptSegment `json:"transcript,omitempty"`
	DefaultSummary     *FathomSummary            `json:"default_summary,omitempty"`
}

// FathomRecordedBy identifies the Fathom user who recorded the meeting.
type FathomRecordedBy struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Team  string `json:"team,omitempty"`
}

// FathomTranscriptSegment is one spoken segment.
type FathomTranscriptSegment struct {
	Speaker   FathomSpeaker `json:"speaker"`
	Text      string        `json:"text"`
	Timestamp string        `json:"timestamp,omitempty"`
}

// FathomSpeaker names the speaker of a segment.
type FathomSpeaker struct {
	DisplayName                 string `json:"display_name,omitempty"`
	MatchedCalendarInviteeEmail string `json:"matched_calendar_invitee_email,omitempty"`
}

// FathomSummary holds the generated summary.
type FathomSummary struct {
	TemplateName      string `json:"template_name,omitempty"`
	MarkdownFormatted string `json:"markdown_formatted,omitempty"`
}

// DisplayTitle prefers the meeting title and falls back to the recording title.
func (p *FathomMeetingPayload) DisplayTitle() string {
	if strings.TrimSpace(p.Title) != "" {
		return p.Title
	}
	return p.MeetingTitle
}

// ConsolidatedTranscript joins consecutive segments by the same speaker into
// turns of the form "[hh:mm:ss] Speaker: text", separated by blank lines.
func (p *FathomMeetingPayload) ConsolidatedTranscript() string {
	var (
		turns     []string
		speaker   string
		timestamp string
		texts     []string
		started   bool
	)
	flush := func() {
		if started && len(texts) > 0 {
			turns = append(turns, fmt.Sprintf("[%s] %s: %s", timestamp, speaker, strings.Join(texts, " ")))
		}
	}
	for _, seg := range p.Transcript {
		name := seg.Speaker.DisplayName
		if name == "" {
			name = "Unknown"
		}
		if !started || name != speaker {
			flush()
			started = true
			speaker = name
			timestamp = seg.Timestamp
			if timestamp == "" {
				timestamp = "00:00:00"
			}
			texts = []string{seg.Text}
			continue
		}
		texts = append(texts, seg.Text)
	}
	flush()
	return strings.Join(turns, "\n\n")
}

// AutomationPayload is the body accepted on the generic automation endpoint.
type AutomationPayload struct {
	Event        string     `json:"event"`
	ExternalID   string     `json:"external_id"`
	OwnerEmail   string     `json:"owner_email"`
	Platform     string     `json:"platform,omitempty"`
	Title        string     `json:"title"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Participants []string   `json:"participants,omitempty"`
	Transcript   string     `json:"transcript,omitempty"`
	RecordingURL string     `json:"recording_url,omitempty"`
}
