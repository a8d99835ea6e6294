// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/dedup"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/utils"
)

// maxClusterHops bounds the walk from a secondary to its primary. Merged
// records always point straight at their primary, so more than one hop only
// happens after an interrupted merge.
const maxClusterHops = 8

// maxMergeAttempts bounds how often a merge restarts after the cluster
// primary changed between the candidate scan and the write.
const maxMergeAttempts = 3

type mergeOutcome struct {
	resolution dedup.Resolution
	mergedFrom []string
}

// ingestRecord runs fetch, fingerprint, match, merge, persist and publish.
// Every write is an upsert on the natural key, so a repeated run converges.
func (s *IngestService) ingestRecord(ctx context.Context, parsed *parsedDelivery, entry *models.DeliveryLog) (*models.MeetingRecord, error) {
	ownerID, dedupSettings, err := s.resolveOwner(ctx, parsed)
	if err != nil {
		return nil, err
	}
	entry.OwnerID = ownerID
	ctx = logging.AppendCtx(ctx, slog.String("owner_id", ownerID))

	// Fetched
	record, err := buildRecord(ctx, parsed, ownerID, s.fetchers)
	if err != nil {
		return nil, err
	}
	entry.RecordUID = record.UID
	ctx = logging.AppendCtx(ctx, slog.String("record_uid", record.UID))

	// Fingerprinted
	fp := dedup.ReconstructFingerprint(record)

	// Candidate windows of different start buckets overlap, so merges are
	// serialized per owner.
	release, err := s.locks.Acquire(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire merge lock: %w", err)
	}
	defer release()

	existing, err := s.records.GetByExternalID(ctx, ownerID, record.ExternalID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			return nil, fmt.Errorf("failed to load existing record: %w", err)
		}
		existing = nil
	}

	now := s.now().UTC()
	action := models.ActionCreated
	if existing != nil {
		action = models.ActionUpdated
		carryOver(record, existing, now)
	} else {
		record.CreatedAt = now
		record.SyncedAt = utils.TimePtr(now)
		record.IsPrimary = true
	}
	record.UpdatedAt = now

	var merge *mergeOutcome
	if !dedupSettings.Disabled && !inCluster(existing) {
		merge, err = s.mergeWithRetry(ctx, record, fp, dedupSettings, now)
		if err != nil {
			return nil, err
		}
	}
	if merge == nil {
		// Unmatched, or a redelivery of a record whose cluster is settled.
		if err := s.records.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to persist record: %w", err)
		}
	}

	if err := s.publish(ctx, parsed, record, action, merge); err != nil {
		return nil, err
	}
	return record, nil
}

// carryOver keeps the lineage and first sync time of an already stored
// record so redeliveries do not change merge decisions.
func carryOver(record, existing *models.MeetingRecord, now time.Time) {
	record.CreatedAt = existing.CreatedAt
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.SyncedAt = existing.SyncedAt
	if record.SyncedAt == nil {
		record.SyncedAt = utils.TimePtr(now)
	}
	record.IsPrimary = existing.IsPrimary
	record.MergedFrom = existing.MergedFrom
	record.MergedInto = existing.MergedInto
	record.FuzzyMatchScore = existing.FuzzyMatchScore
}

func inCluster(r *models.MeetingRecord) bool {
	return r != nil && (r.MergedInto != "" || len(r.MergedFrom) > 0)
}

// mergeWithRetry runs matchAndMerge from the same starting record until it
// stops conflicting with a concurrent write to the cluster primary.
func (s *IngestService) mergeWithRetry(ctx context.Context, record *models.MeetingRecord, fp dedup.Fingerprint, settings models.DedupSettings, now time.Time) (*mergeOutcome, error) {
	snapshot := *record
	snapshot.MergedFrom = append([]string(nil), record.MergedFrom...)

	for attempt := 1; ; attempt++ {
		merge, err := s.matchAndMerge(ctx, record, fp, settings, now)
		if err == nil || domain.GetErrorType(err) != domain.ErrorTypeConflict || attempt >= maxMergeAttempts {
			return merge, err
		}
		slog.DebugContext(ctx, "cluster primary changed during merge, retrying",
			logging.ErrKey, err, "attempt", attempt)

		*record = snapshot
		record.MergedFrom = append([]string(nil), snapshot.MergedFrom...)
	}
}

// matchAndMerge looks for the best matching record of the same owner and
// merges record with the primary of that record's cluster. It returns nil
// when nothing matched and nothing was written.
func (s *IngestService) matchAndMerge(ctx context.Context, record *models.MeetingRecord, fp dedup.Fingerprint, settings models.DedupSettings, now time.Time) (*mergeOutcome, error) {
	from := fp.StartTimeBucket.Add(-dedup.CandidateWindow)
	to := fp.StartTimeBucket.Add(dedup.CandidateWindow)
	nearby, err := s.records.ListByOwnerInRange(ctx, record.OwnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate records: %w", err)
	}

	others := make([]*models.MeetingRecord, 0, len(nearby))
	for _, r := range nearby {
		if r.UID != record.UID {
			others = append(others, r)
		}
	}

	candidates := dedup.FindCandidates(fp, others)
	if len(candidates) == 0 {
		slog.DebugContext(ctx, "no matching records", "scanned", len(others))
		return nil, nil
	}

	best := candidates[0]
	primary, err := s.clusterPrimary(ctx, best.Record)
	if err != nil {
		return nil, err
	}
	if primary.UID == record.UID {
		return nil, nil
	}

	// The stored primary is written with a revision check, so a merge that
	// raced this one from another replica makes this attempt start over.
	stored, revision, err := s.records.GetWithRevision(ctx, primary.UID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewConflictError("cluster primary disappeared", err)
		}
		return nil, fmt.Errorf("failed to reload cluster primary: %w", err)
	}
	if stored.MergedInto != primary.MergedInto {
		return nil, domain.NewConflictError(fmt.Sprintf("record %s joined another cluster", primary.UID))
	}
	primary = stored
	best.Record = primary

	resolution := dedup.Resolve(record, best, settings.PriorityMode, settings.PlatformOrder)
	winner, loser := primary, record
	if resolution.NewIsPrimary {
		winner, loser = record, primary
	}

	reparented := dedup.ApplyMerge(winner, loser, resolution.Score)
	winner.UpdatedAt, loser.UpdatedAt = now, now

	if err := s.records.Update(ctx, primary, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist cluster primary: %w", err)
	}

	for _, uid := range reparented {
		child, err := s.records.Get(ctx, uid)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				slog.WarnContext(ctx, "re-parented record no longer exists", "child_uid", uid)
				continue
			}
			return nil, fmt.Errorf("failed to load re-parented record: %w", err)
		}
		child.IsPrimary = false
		child.MergedFrom = nil
		child.MergedInto = winner.UID
		child.UpdatedAt = now
		if err := s.records.Upsert(ctx, child); err != nil {
			return nil, fmt.Errorf("failed to re-parent record: %w", err)
		}
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist merged record: %w", err)
	}

	slog.InfoContext(ctx, "records merged",
		"primary_uid", resolution.PrimaryUID,
		"demoted_uid", resolution.DemotedUID,
		"new_is_primary", resolution.NewIsPrimary,
		"score", resolution.Score,
		"priority_mode", settings.PriorityMode,
		"candidates", len(candidates),
	)
	return &mergeOutcome{resolution: resolution, mergedFrom: winner.MergedFrom}, nil
}

// clusterPrimary follows MergedInto to the primary of r's cluster.
func (s *IngestService) clusterPrimary(ctx context.Context, r *models.MeetingRecord) (*models.MeetingRecord, error) {
	current := r
	for hops := 0; current.MergedInto != "" && hops < maxClusterHops; hops++ {
		next, err := s.records.Get(ctx, current.MergedInto)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				slog.WarnContext(ctx, "merged record points at a missing primary",
					"record_uid", current.UID, "merged_into", current.MergedInto)
				return current, nil
			}
			return nil, fmt.Errorf("failed to load cluster primary: %w", err)
		}
		current = next
	}
	return current, nil
}

func (s *IngestService) publish(ctx context.Context, parsed *parsedDelivery, record *models.MeetingRecord, action models.MessageAction, merge *mergeOutcome) error {
	if s.publisher == nil {
		return nil
	}

	err := s.publisher.PublishRecordIngested(ctx, models.RecordIngestedMessage{
		Action:         action,
		RecordUID:      record.UID,
		ExternalID:     record.ExternalID,
		OwnerID:        record.OwnerID,
		SourcePlatform: record.SourcePlatform,
		IsPrimary:      record.IsPrimary,
		DeliveryID:     parsed.deliveryID,
		IngestedAt:     record.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish record ingested event: %w", err)
	}

	if merge == nil {
		return nil
	}
	err = s.publisher.PublishRecordsMerged(ctx, models.RecordsMergedMessage{
		OwnerID:    record.OwnerID,
		PrimaryUID: merge.resolution.PrimaryUID,
		DemotedUID: merge.resolution.DemotedUID,
		MergedFrom: merge.mergedFrom,
		Score:      merge.resolution.Score,
		NewPrimary: merge.resolution.NewIsPrimary,
	})
	if err != nil {
		return fmt.Errorf("failed to publish records merged event: %w", err)
	}
	return nil
}
