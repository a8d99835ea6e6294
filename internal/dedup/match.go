// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package dedup

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
)

// CandidateWindow bounds how far apart two meetings may start and still be compared.
const CandidateWindow = 24 * time.Hour

// Combined score weights.
const (
	titleWeight       = 0.4
	timeWeight        = 0.4
	participantWeight = 0.2
	criteriaRequired  = 2
)

// Thresholds are the minimum similarity values for each criterion.
type Thresholds struct {
	Title        float64
	Time         float64
	Participants float64
}

// DefaultThresholds are used by CheckMatch.
var DefaultThresholds = Thresholds{
	Title:        0.80,
	Time:         0.50,
	Participants: 0.60,
}

// CriteriaMet records which thresholds were cleared.
type CriteriaMet struct {
	Title        bool `json:"title"`
	Time         bool `json:"time"`
	Participants bool `json:"participants"`
}

func (c CriteriaMet) count() int {
	n := 0
	for _, met := range []bool{c.Title, c.Time, c.Participants} {
		if met {
			n++
		}
	}
	return n
}

// MatchDetails holds the raw similarity measures.
type MatchDetails struct {
	TitleSimilarity    float64 `json:"title_similarity"`
	TimeOverlap        float64 `json:"time_overlap"`
	ParticipantOverlap float64 `json:"participant_overlap"`
}

// MatchResult is the outcome of comparing two fingerprints.
type MatchResult struct {
	IsMatch     bool         `json:"is_match"`
	Score       float64      `json:"score"`
	CriteriaMet CriteriaMet  `json:"criteria_met"`
	Details     MatchDetails `json:"details"`
}

// TitleSimilarity is one minus the normalized Levenshtein distance.
func TitleSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0.0
	}
	maxLen := max(la, lb)
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// TimeOverlap is the overlap of two intervals over the shorter interval.
func TimeOverlap(startA time.Time, durationA int, startB time.Time, durationB int) float64 {
	endA := startA.Add(time.Duration(durationA) * time.Minute)
	endB := startB.Add(time.Duration(durationB) * time.Minute)

	shortest := min(endA.Sub(startA), endB.Sub(startB))
	if shortest <= 0 {
		return 0
	}

	overlapStart := startA
	if startB.After(overlapStart) {
		overlapStart = startB
	}
	overlapEnd := endA
	if endB.Before(overlapEnd) {
		overlapEnd = endB
	}
	overlap := max(overlapEnd.Sub(overlapStart), 0)

	return float64(overlap) / float64(shortest)
}

// ParticipantOverlap is the Jaccard similarity of two identifier sets.
// An empty set on either side yields 0, so missing participant data is never
// evidence of a match.
func ParticipantOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, p := range a {
		setA[p] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, p := range b {
		setB[p] = struct{}{}
	}
	intersection := 0
	for p := range setA {
		if _, ok := setB[p]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Evaluate applies the thresholds to precomputed details.
func Evaluate(details MatchDetails, th Thresholds) MatchResult {
	criteria := CriteriaMet{
		Title:        details.TitleSimilarity >= th.Title,
		Time:         details.TimeOverlap >= th.Time,
		Participants: details.ParticipantOverlap >= th.Participants,
	}
	return MatchResult{
		IsMatch:     criteria.count() >= criteriaRequired,
		Score:       details.TitleSimilarity*titleWeight + details.TimeOverlap*timeWeight + details.ParticipantOverlap*participantWeight,
		CriteriaMet: criteria,
		Details:     details,
	}
}

// CheckMatch compares two fingerprints with the default thresholds.
func CheckMatch(a, b Fingerprint) MatchResult {
	return CheckMatchWith(a, b, DefaultThresholds)
}

// CheckMatchWith compares two fingerprints with custom thresholds.
func CheckMatchWith(a, b Fingerprint, th Thresholds) MatchResult {
	return Evaluate(MatchDetails{
		TitleSimilarity:    TitleSimilarity(a.TitleNormalized, b.TitleNormalized),
		TimeOverlap:        TimeOverlap(a.StartTimeBucket, a.DurationBucket, b.StartTimeBucket, b.DurationBucket),
		ParticipantOverlap: ParticipantOverlap(a.ParticipantEmails, b.ParticipantEmails),
	}, th)
}

// Candidate is an existing record that matched a new fingerprint.
type Candidate struct {
	Record *models.MeetingRecord
	Match  MatchResult
}

// FindCandidates returns the records that match fp, best score first.
// Records starting more than CandidateWindow away from the fingerprint bucket
// are skipped. Ties keep scan order.
func FindCandidates(fp Fingerprint, records []*models.MeetingRecord) []Candidate {
	from := fp.StartTimeBucket.Add(-CandidateWindow)
	to := fp.StartTimeBucket.Add(CandidateWindow)

	var candidates []Candidate
	for _, record := range records {
		if record == nil || record.StartTime.Before(from) || record.StartTime.After(to) {
			continue
		}
		result := CheckMatch(fp, ReconstructFingerprint(record))
		if !result.IsMatch {
			continue
		}
		candidates = append(candidates, Candidate{Record: record, Match: result})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Match.Score > candidates[j].Match.Score
	})
	return candidates
}
