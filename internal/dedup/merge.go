// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package dedup

import (
	"slices"
	"time"
	"unicode/utf8"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/utils"
)

// Resolution is the merge decision for a matched pair.
type Resolution struct {
	PrimaryUID   string
	DemotedUID   string
	NewIsPrimary bool
	Score        float64
}

func syncedAtOrEpoch(r *models.MeetingRecord) time.Time {
	if r.SyncedAt == nil || r.SyncedAt.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return *r.SyncedAt
}

func transcriptLength(r *models.MeetingRecord) int {
	if r.TranscriptLength > 0 {
		return r.TranscriptLength
	}
	return utf8.RuneCountInString(r.TranscriptText)
}

func platformRank(platform string, order []string) int {
	if i := slices.Index(order, platform); i >= 0 {
		return i
	}
	return len(order)
}

func newSyncedFirst(newRecord, existing *models.MeetingRecord) bool {
	return syncedAtOrEpoch(newRecord).Before(syncedAtOrEpoch(existing))
}

// ShouldNewBePrimary reports whether newRecord wins primary status over existing.
func ShouldNewBePrimary(newRecord, existing *models.MeetingRecord, mode models.PriorityMode, platformOrder []string) bool {
	switch mode {
	case models.PriorityMostRecent:
		return syncedAtOrEpoch(newRecord).After(syncedAtOrEpoch(existing))

	case models.PriorityPlatformHierarchy:
		existingPlatform := existing.SourcePlatform
		if existingPlatform == "" {
			existingPlatform = models.PlatformFathom
		}
		newRank := platformRank(newRecord.SourcePlatform, platformOrder)
		existingRank := platformRank(existingPlatform, platformOrder)
		if newRank != existingRank {
			return newRank < existingRank
		}
		return newSyncedFirst(newRecord, existing)

	case models.PriorityLongestTranscript:
		newLen, existingLen := transcriptLength(newRecord), transcriptLength(existing)
		if newLen != existingLen {
			return newLen > existingLen
		}
		return newSyncedFirst(newRecord, existing)

	default:
		return newSyncedFirst(newRecord, existing)
	}
}

// Resolve decides which record of a matched pair becomes primary.
// existing should be the primary of its cluster.
func Resolve(newRecord *models.MeetingRecord, existing Candidate, mode models.PriorityMode, platformOrder []string) Resolution {
	if ShouldNewBePrimary(newRecord, existing.Record, mode, platformOrder) {
		return Resolution{
			PrimaryUID:   newRecord.UID,
			DemotedUID:   existing.Record.UID,
			NewIsPrimary: true,
			Score:        existing.Match.Score,
		}
	}
	return Resolution{
		PrimaryUID:   existing.Record.UID,
		DemotedUID:   newRecord.UID,
		NewIsPrimary: false,
		Score:        existing.Match.Score,
	}
}

// ApplyMerge folds demoted into primary. The demoted record's own merged set
// is re-parented onto primary, and the returned UIDs are those re-parented
// records, whose MergedInto must be pointed at primary by the caller.
// The primary never lists itself and never lists a UID twice.
func ApplyMerge(primary, demoted *models.MeetingRecord, score float64) []string {
	inherited := demoted.MergedFrom

	merged := make([]string, 0, len(primary.MergedFrom)+len(inherited)+1)
	seen := map[string]struct{}{primary.UID: {}}
	add := func(uid string) bool {
		if uid == "" {
			return false
		}
		if _, ok := seen[uid]; ok {
			return false
		}
		seen[uid] = struct{}{}
		merged = append(merged, uid)
		return true
	}

	for _, uid := range primary.MergedFrom {
		add(uid)
	}
	add(demoted.UID)

	var reparented []string
	for _, uid := range inherited {
		if add(uid) {
			reparented = append(reparented, uid)
		}
	}

	primary.IsPrimary = true
	primary.MergedInto = ""
	primary.MergedFrom = merged
	primary.FuzzyMatchScore = utils.Float64Ptr(score)

	demoted.IsPrimary = false
	demoted.MergedFrom = nil
	demoted.MergedInto = primary.UID
	demoted.FuzzyMatchScore = utils.Float64Ptr(score)

	return reparented
}
