// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/dedup"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/utils"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/constants"
)

// AutomationEventRecordingReady is the only automation event that creates records.
const AutomationEventRecordingReady = "recording.ready"

// ZoomDownloadDomains are the hosts a transcript download_url may point at.
var ZoomDownloadDomains = []string{"zoom.us", "zoom.com"}

// parsedDelivery is a verified delivery decoded into exactly one provider
// variant. Fields of the other variants stay nil.
type parsedDelivery struct {
	deliveryID  string
	eventType   string
	senderEmail string
	ownerHint   string
	ignored     bool

	challenge  *models.ZoomURLValidationPayload
	fathom     *models.FathomMeetingPayload
	zoom       *models.ZoomTranscriptCompletedPayload
	automation *models.AutomationPayload
}

// senderHint extracts the sender email used to look up a per-user secret.
// It runs before verification, so malformed bodies just yield no hint.
func senderHint(provider models.Provider, body []byte) string {
	switch provider {
	case models.ProviderFathom:
		var p struct {
			RecordedBy struct {
				Email string `json:"email"`
			} `json:"recorded_by"`
		}
		if json.Unmarshal(body, &p) == nil {
			return p.RecordedBy.Email
		}
	case models.ProviderZoom:
		var p struct {
			Payload struct {
				Object struct {
					HostEmail string `json:"host_email"`
				} `json:"object"`
			} `json:"payload"`
		}
		if json.Unmarshal(body, &p) == nil {
			return p.Payload.Object.HostEmail
		}
	case models.ProviderAutomation:
		var p struct {
			OwnerEmail string `json:"owner_email"`
		}
		if json.Unmarshal(body, &p) == nil {
			return p.OwnerEmail
		}
	}
	return ""
}

// parseDelivery decodes a verified body. Errors are validation errors.
func parseDelivery(provider models.Provider, headers http.Header, body []byte) (*parsedDelivery, error) {
	switch provider {
	case models.ProviderFathom:
		return parseFathom(headers, body)
	case models.ProviderZoom:
		return parseZoom(headers, body)
	case models.ProviderAutomation:
		return parseAutomation(headers, body)
	}
	return nil, domain.NewValidationError(fmt.Sprintf("unsupported provider %q", provider))
}

func parseFathom(headers http.Header, body []byte) (*parsedDelivery, error) {
	var p models.FathomMeetingPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.NewValidationError("invalid fathom payload", err)
	}
	if p.RecordingID.String() == "" {
		return nil, domain.NewValidationError("missing recording_id")
	}
	if p.RecordingStartTime.IsZero() {
		return nil, domain.NewValidationError("missing recording_start_time")
	}

	id := webhook.EnvelopeID(headers)
	if id == "" {
		id = "fathom_" + p.RecordingID.String()
	}
	return &parsedDelivery{
		deliveryID:  id,
		eventType:   "new_meeting",
		senderEmail: p.RecordedBy.Email,
		fathom:      &p,
	}, nil
}

func parseZoom(headers http.Header, body []byte) (*parsedDelivery, error) {
	var event models.ZoomWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, domain.NewValidationError("invalid zoom payload", err)
	}

	parsed := &parsedDelivery{eventType: event.Event}

	switch event.Event {
	case models.ZoomEventURLValidation:
		challenge, err := event.ToURLValidationPayload()
		if err != nil {
			return nil, domain.NewValidationError("invalid url validation payload", err)
		}
		if challenge.PlainToken == "" {
			return nil, domain.NewValidationError("missing plainToken in validation payload")
		}
		parsed.challenge = challenge

	case models.ZoomEventTranscriptCompleted:
		payload, err := event.ToTranscriptCompletedPayload()
		if err != nil {
			return nil, domain.NewValidationError("invalid transcript payload", err)
		}
		if payload.Object.UUID == "" && payload.Object.ID.String() == "" {
			return nil, domain.NewValidationError("missing recording identifier")
		}
		if payload.DownloadToken == "" {
			payload.DownloadToken = event.DownloadToken
		}
		// The token is sent to download_url, so it must stay on zoom hosts.
		if file, ok := payload.Object.TranscriptFile(); ok && !utils.IsHTTPSURLInDomains(file.DownloadURL, ZoomDownloadDomains...) {
			return nil, domain.NewValidationError("transcript download url is not a zoom host")
		}
		parsed.zoom = payload
		parsed.senderEmail = payload.Object.HostEmail

	default:
		parsed.ignored = true
	}

	parsed.deliveryID = webhook.EnvelopeID(headers)
	if parsed.deliveryID == "" {
		var uuid string
		if parsed.zoom != nil {
			uuid = parsed.zoom.Object.UUID
		}
		parsed.deliveryID = fmt.Sprintf("zoom_%s_%d_%s", event.Event, event.EventTS, uuid)
	}
	return parsed, nil
}

func parseAutomation(headers http.Header, body []byte) (*parsedDelivery, error) {
	var p models.AutomationPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.NewValidationError("invalid automation payload", err)
	}
	if strings.TrimSpace(p.ExternalID) == "" || strings.TrimSpace(p.OwnerEmail) == "" {
		return nil, domain.NewValidationError("external_id and owner_email are required")
	}

	parsed := &parsedDelivery{
		eventType:   p.Event,
		senderEmail: p.OwnerEmail,
		ownerHint:   headers.Get(constants.HeaderWebhookUserID),
		ignored:     p.Event != AutomationEventRecordingReady,
	}
	if !parsed.ignored {
		parsed.automation = &p
	}

	parsed.deliveryID = webhook.EnvelopeID(headers)
	if parsed.deliveryID == "" {
		parsed.deliveryID = fmt.Sprintf("automation_%s_%s", p.ExternalID, headers.Get(constants.HeaderWebhookTimestamp))
	}
	return parsed, nil
}

// buildRecord maps the parsed variant onto a record owned by ownerID.
// Zoom transcripts are downloaded through the fetcher registered for zoom.
func buildRecord(ctx context.Context, parsed *parsedDelivery, ownerID string, fetchers domain.FetcherRegistry) (*models.MeetingRecord, error) {
	var record *models.MeetingRecord

	switch {
	case parsed.fathom != nil:
		p := parsed.fathom
		record = &models.MeetingRecord{
			ExternalID:     p.RecordingID.String(),
			Title:          p.DisplayTitle(),
			StartTime:      p.RecordingStartTime.UTC(),
			EndTime:        p.RecordingEndTime,
			SourcePlatform: models.PlatformFathom,
			TranscriptText: p.ConsolidatedTranscript(),
			HostEmail:      p.RecordedBy.Email,
			HostName:       p.RecordedBy.Name,
			Invitees:       p.CalendarInvitees,
			RecordingURL:   p.URL,
			ShareURL:       p.ShareURL,
		}
		if p.DefaultSummary != nil {
			record.Summary = p.DefaultSummary.MarkdownFormatted
		}

	case parsed.zoom != nil:
		obj := parsed.zoom.Object
		externalID := obj.UUID
		if externalID == "" {
			externalID = obj.ID.String()
		}
		end := obj.EndTime().UTC()
		record = &models.MeetingRecord{
			ExternalID:     externalID,
			Title:          obj.Topic,
			StartTime:      obj.StartTime.UTC(),
			EndTime:        &end,
			SourcePlatform: models.PlatformZoom,
			HostEmail:      obj.HostEmail,
			ShareURL:       obj.ShareURL,
		}
		if file, ok := obj.TranscriptFile(); ok {
			if fetchers == nil {
				return nil, domain.NewUnavailableError("recording fetcher is not configured")
			}
			fetcher, err := fetchers.GetFetcher(models.PlatformZoom)
			if err != nil {
				return nil, domain.NewUnavailableError("recording fetcher is not configured", err)
			}
			transcript, err := fetcher.DownloadTranscript(ctx, file.DownloadURL, parsed.zoom.DownloadToken, ownerID)
			if err != nil {
				return nil, fmt.Errorf("failed to download zoom transcript: %w", err)
			}
			record.TranscriptText = string(transcript)
			record.RecordingURL = file.PlayURL
		}

	case parsed.automation != nil:
		p := parsed.automation
		platform := p.Platform
		if platform == "" {
			platform = models.PlatformAutomation
		}
		invitees := make([]models.Invitee, 0, len(p.Participants))
		for _, email := range p.Participants {
			invitees = append(invitees, models.Invitee{Email: email})
		}
		record = &models.MeetingRecord{
			ExternalID:     p.ExternalID,
			Title:          p.Title,
			StartTime:      p.StartTime.UTC(),
			EndTime:        p.EndTime,
			SourcePlatform: platform,
			TranscriptText: p.Transcript,
			HostEmail:      p.OwnerEmail,
			Invitees:       invitees,
			RecordingURL:   p.RecordingURL,
		}

	default:
		return nil, domain.NewValidationError("delivery carries no recording")
	}

	record.OwnerID = ownerID
	record.UID = models.RecordUID(ownerID, record.ExternalID)
	record.TranscriptLength = utf8.RuneCountInString(record.TranscriptText)
	record.Fingerprint = dedup.ReconstructFingerprint(record).String()
	return record, nil
}
