// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

const (
	// TimeBucketMinutes is the start time bucket width.
	TimeBucketMinutes = 15
	// DurationBucketMinutes is the duration rounding step.
	DurationBucketMinutes = 5

	fingerprintTitleLen = 50
	fingerprintHashLen  = 16
	noParticipantHash   = "none"
	bucketTimeLayout    = "2006-01-02T15:04:05.000Z07:00"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Fingerprint is a comparable summary of a meeting.
type Fingerprint struct {
	TitleNormalized   string
	StartTimeBucket   time.Time
	DurationBucket    int
	ParticipantHash   string
	ParticipantEmails []string
}

// NormalizeTitle lowercases, strips punctuation and collapses whitespace.
func NormalizeTitle(title string) string {
	t := strings.ToLower(title)
	t = nonWordPattern.ReplaceAllString(t, "")
	t = whitespacePattern.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// RoundToTimeBucket floors t to the start of its 15-minute bucket in UTC.
func RoundToTimeBucket(t time.Time) time.Time {
	t = t.UTC()
	minute := t.Minute() - t.Minute()%TimeBucketMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, time.UTC)
}

// RoundDuration rounds a duration in minutes to the nearest 5-minute step.
// Halves round up.
func RoundDuration(minutes float64) int {
	return int(math.Floor(minutes/DurationBucketMinutes+0.5)) * DurationBucketMinutes
}

// NormalizeParticipants lowercases and trims identifiers, drops empty ones,
// removes duplicates and sorts the result.
func NormalizeParticipants(participants []string) []string {
	seen := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		n := strings.TrimSpace(strings.ToLower(p))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HashParticipants returns the SHA-256 hex digest of the comma-joined list,
// or the empty string when the list is empty. The list must be normalized.
func HashParticipants(normalized []string) string {
	if len(normalized) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, ",")))
	return hex.EncodeToString(sum[:])
}

// GenerateFingerprint derives the fingerprint of a meeting.
func GenerateFingerprint(title string, start time.Time, durationMinutes float64, participants []string) Fingerprint {
	emails := NormalizeParticipants(participants)
	return Fingerprint{
		TitleNormalized:   NormalizeTitle(title),
		StartTimeBucket:   RoundToTimeBucket(start),
		DurationBucket:    RoundDuration(durationMinutes),
		ParticipantHash:   HashParticipants(emails),
		ParticipantEmails: emails,
	}
}

// ReconstructFingerprint rebuilds the fingerprint of a stored record from its
// title, start and end times, host email and invitees.
func ReconstructFingerprint(record *models.MeetingRecord) Fingerprint {
	minutes := math.Floor(record.DurationMinutes() + 0.5)
	return GenerateFingerprint(record.Title, record.StartTime, minutes, record.ParticipantEmails())
}

// String renders the indexable form title|bucket|duration|hash.
func (f Fingerprint) String() string {
	title := []rune(f.TitleNormalized)
	if len(title) > fingerprintTitleLen {
		title = title[:fingerprintTitleLen]
	}
	hash := f.ParticipantHash
	if len(hash) > fingerprintHashLen {
		hash = hash[:fingerprintHashLen]
	}
	if hash == "" {
		hash = noParticipantHash
	}
	return fmt.Sprintf("%s|%s|%d|%s", string(title), f.StartTimeBucket.UTC().Format(bucketTimeLayout), f.DurationBucket, hash)
}

// End returns the end of the bucketed interval.
func (f Fingerprint) End() time.Time {
	return f.StartTimeBucket.Add(time.Duration(f.DurationBucket) * time.Minute)
}
