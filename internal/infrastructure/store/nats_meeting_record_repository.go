// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/logging"
)

// maxRangeHourFilters bounds the per-hour subject filters of one range scan.
// The dedup window of +-24h needs 49.
const maxRangeHourFilters = 72

// NatsMeetingRecordRepository stores meeting records in the meeting-records
// bucket. Each record has an owner/hour index entry in the same bucket so a
// dedup candidate scan only touches the owner's records near the new start time.
type NatsMeetingRecordRepository struct {
	base *NatsBaseRepository[models.MeetingRecord]
	kb   *KeyBuilder
}

var _ domain.MeetingRecordRepository = (*NatsMeetingRecordRepository)(nil)

// NewNatsMeetingRecordRepository creates a new meeting record repository.
func NewNatsMeetingRecordRepository(kv INatsKeyValue) *NatsMeetingRecordRepository {
	return &NatsMeetingRecordRepository{
		base: NewNatsBaseRepository[models.MeetingRecord](kv, "meeting record"),
		kb:   NewKeyBuilder(""),
	}
}

func (r *NatsMeetingRecordRepository) recordKey(uid string) string {
	return r.kb.EntityKey(KeyPrefixRecord, uid)
}

// Get returns the record with the given UID.
func (r *NatsMeetingRecordRepository) Get(ctx context.Context, uid string) (*models.MeetingRecord, error) {
	if uid == "" {
		return nil, domain.NewValidationError("record uid is required")
	}
	return r.base.Get(ctx, r.recordKey(uid))
}

// GetWithRevision returns the record with the given UID and its revision.
func (r *NatsMeetingRecordRepository) GetWithRevision(ctx context.Context, uid string) (*models.MeetingRecord, uint64, error) {
	if uid == "" {
		return nil, 0, domain.NewValidationError("record uid is required")
	}
	return r.base.GetWithRevision(ctx, r.recordKey(uid))
}

// GetByExternalID returns the record for the natural key (ownerID, externalID).
func (r *NatsMeetingRecordRepository) GetByExternalID(ctx context.Context, ownerID, externalID string) (*models.MeetingRecord, error) {
	if ownerID == "" || externalID == "" {
		return nil, domain.NewValidationError("owner id and external id are required")
	}
	return r.Get(ctx, models.RecordUID(ownerID, externalID))
}

// Upsert writes the record under its natural key and keeps the owner/hour
// index in step with the start time.
func (r *NatsMeetingRecordRepository) Upsert(ctx context.Context, record *models.MeetingRecord) error {
	if record == nil || record.OwnerID == "" || record.ExternalID == "" {
		return domain.NewValidationError("record owner id and external id are required")
	}

	uid := models.RecordUID(record.OwnerID, record.ExternalID)
	if record.UID != "" && record.UID != uid {
		return domain.NewValidationError(fmt.Sprintf("record uid %s does not match its natural key", record.UID))
	}
	record.UID = uid

	previous, err := r.base.Get(ctx, r.recordKey(uid))
	if err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		return err
	}

	if _, err := r.base.Put(ctx, r.recordKey(uid), record); err != nil {
		return err
	}
	return r.syncIndex(ctx, previous, record)
}

// Update replaces a stored record if it is still at revision. The start time
// is part of the record read at that revision, so a changed start moves the
// owner/hour index the same way Upsert does.
func (r *NatsMeetingRecordRepository) Update(ctx context.Context, record *models.MeetingRecord, revision uint64) error {
	if record == nil || record.UID == "" {
		return domain.NewValidationError("record uid is required")
	}
	if record.UID != models.RecordUID(record.OwnerID, record.ExternalID) {
		return domain.NewValidationError(fmt.Sprintf("record uid %s does not match its natural key", record.UID))
	}

	previous, err := r.base.Get(ctx, r.recordKey(record.UID))
	if err != nil {
		return err
	}

	if err := r.base.Update(ctx, r.recordKey(record.UID), record, revision); err != nil {
		return err
	}
	return r.syncIndex(ctx, previous, record)
}

// syncIndex points the owner/hour index at record's start time and drops the
// entry of the previous start time.
func (r *NatsMeetingRecordRepository) syncIndex(ctx context.Context, previous, record *models.MeetingRecord) error {
	newIndex := r.kb.OwnerHourIndexKeyEncoded(record.OwnerID, record.StartTime, record.UID)
	if err := r.base.PutIndex(ctx, newIndex); err != nil {
		return err
	}

	if previous != nil {
		oldIndex := r.kb.OwnerHourIndexKeyEncoded(previous.OwnerID, previous.StartTime, record.UID)
		if oldIndex != newIndex {
			if err := r.base.DeleteIndex(ctx, oldIndex); err != nil {
				// A stale index entry only costs an extra read during range scans.
				slog.WarnContext(ctx, "failed to remove stale record index",
					logging.ErrKey, err, "record_uid", record.UID)
			}
		}
	}
	return nil
}

// ListByOwnerInRange returns the owner's records whose start time falls in
// [from, to], ordered by start time.
func (r *NatsMeetingRecordRepository) ListByOwnerInRange(ctx context.Context, ownerID string, from, to time.Time) ([]*models.MeetingRecord, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner id is required")
	}

	if to.Before(from) {
		return nil, nil
	}

	keys, err := r.base.ListKeys(ctx, r.ownerRangeFilters(ownerID, from, to)...)
	if err != nil {
		return nil, err
	}

	fromBucket, toBucket := HourBucket(from), HourBucket(to)
	seen := make(map[string]struct{})
	var records []*models.MeetingRecord

	for _, key := range keys {
		hour, uid, ok := r.parseOwnerIndexKey(key)
		if !ok {
			slog.WarnContext(ctx, "skipping malformed record index key", "key", key)
			continue
		}
		// The layout sorts lexicographically in time order.
		if hour < fromBucket || hour > toBucket {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		record, err := r.Get(ctx, uid)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			return nil, err
		}
		if record.OwnerID != ownerID || record.StartTime.Before(from) || record.StartTime.After(to) {
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	return records, nil
}

// ownerRangeFilters returns one subject filter per hour bucket in [from, to].
// Ranges wider than maxRangeHourFilters fall back to the owner-wide filter.
func (r *NatsMeetingRecordRepository) ownerRangeFilters(ownerID string, from, to time.Time) []string {
	first := from.UTC().Truncate(time.Hour)
	last := to.UTC().Truncate(time.Hour)
	if int(last.Sub(first)/time.Hour)+1 > maxRangeHourFilters {
		return []string{r.kb.OwnerIndexFilterEncoded(ownerID)}
	}

	var filters []string
	for hour := first; !hour.After(last); hour = hour.Add(time.Hour) {
		filters = append(filters, r.kb.OwnerHourIndexFilterEncoded(ownerID, hour))
	}
	return filters
}

// parseOwnerIndexKey extracts the hour bucket and record uid from an encoded
// "index/owner/<owner>/<hour>/<uid>" key.
func (r *NatsMeetingRecordRepository) parseOwnerIndexKey(key string) (string, string, bool) {
	decoded, err := r.kb.DecodeKey(key)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(decoded, "/"), "/")
	if len(parts) < 5 || parts[0] != KeyPrefixIndex || parts[1] != KeyPrefixIndexOwner {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}
