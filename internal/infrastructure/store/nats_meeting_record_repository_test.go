// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-ingest-service/pkg/utils"
)

func newRecord(owner, externalID string, start time.Time) *models.MeetingRecord {
	return &models.MeetingRecord{
		ExternalID:     externalID,
		OwnerID:        owner,
		Title:          "Weekly Sync",
		StartTime:      start,
		EndTime:        utils.TimePtr(start.Add(30 * time.Minute)),
		SourcePlatform: models.PlatformFathom,
		IsPrimary:      true,
	}
}

func TestNatsMeetingRecordRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(NewInMemoryKeyValue())
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	record := newRecord("owner-1", "fathom-1", start)
	require.NoError(t, repo.Upsert(ctx, record))
	assert.Equal(t, models.RecordUID("owner-1", "fathom-1"), record.UID)

	got, err := repo.Get(ctx, record.UID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly Sync", got.Title)
	assert.True(t, got.StartTime.Equal(start))

	byNaturalKey, err := repo.GetByExternalID(ctx, "owner-1", "fathom-1")
	require.NoError(t, err)
	assert.Equal(t, record.UID, byNaturalKey.UID)

	_, err = repo.GetByExternalID(ctx, "owner-2", "fathom-1")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsMeetingRecordRepository_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(NewInMemoryKeyValue())

	err := repo.Upsert(ctx, &models.MeetingRecord{OwnerID: "o"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	rec := newRecord("o", "e", time.Now())
	rec.UID = "someone-else"
	err = repo.Upsert(ctx, rec)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestNatsMeetingRecordRepository_ListByOwnerInRange(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(NewInMemoryKeyValue())
	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "in-1", base.Add(-23*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "in-2", base.Add(10*time.Minute))))
	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "out-early", base.Add(-25*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "out-late", base.Add(30*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, newRecord("owner-2", "other-owner", base)))

	records, err := repo.ListByOwnerInRange(ctx, "owner-1", base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ExternalID)
	}
	assert.Equal(t, []string{"in-1", "in-2"}, ids)
}

func TestNatsMeetingRecordRepository_UpsertMovesIndex(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	record := newRecord("owner-1", "fathom-1", start)
	require.NoError(t, repo.Upsert(ctx, record))
	assert.Equal(t, 2, kv.Len())

	record.StartTime = start.Add(48 * time.Hour)
	require.NoError(t, repo.Upsert(ctx, record))
	assert.Equal(t, 2, kv.Len(), "old index entry is removed")

	records, err := repo.ListByOwnerInRange(ctx, "owner-1", start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = repo.ListByOwnerInRange(ctx, "owner-1", start.Add(47*time.Hour), start.Add(49*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.UID, records[0].UID)
}

func TestNatsMeetingRecordRepository_MergeFieldsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(NewInMemoryKeyValue())
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	record := newRecord("owner-1", "zoom-1", start)
	record.IsPrimary = false
	record.MergedInto = "primary-uid"
	record.FuzzyMatchScore = utils.Float64Ptr(0.87)
	record.Invitees = []models.Invitee{{Name: "Alice", Email: "alice@example.com"}}
	require.NoError(t, repo.Upsert(ctx, record))

	got, err := repo.Get(ctx, record.UID)
	require.NoError(t, err)
	assert.False(t, got.IsPrimary)
	assert.Equal(t, "primary-uid", got.MergedInto)
	require.NotNil(t, got.FuzzyMatchScore)
	assert.InDelta(t, 0.87, *got.FuzzyMatchScore, 1e-9)
	assert.Equal(t, record.Invitees, got.Invitees)
}

func TestNatsMeetingRecordRepository_ListByOwnerInRangeUsesHourFilters(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)
	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "in", base)))
	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "far", base.Add(10*24*time.Hour))))

	records, err := repo.ListByOwnerInRange(ctx, "owner-1", base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "in", records[0].ExternalID)

	require.Len(t, kv.lastFilters, 49)
	owner := repo.kb.OwnerIndexFilterEncoded("owner-1")
	for _, filter := range kv.lastFilters {
		assert.NotEqual(t, owner, filter)
		assert.True(t, strings.HasSuffix(filter, ".*"))
	}
	assert.Equal(t, repo.kb.OwnerHourIndexFilterEncoded("owner-1", base.Add(-24*time.Hour)), kv.lastFilters[0])
	assert.Equal(t, repo.kb.OwnerHourIndexFilterEncoded("owner-1", base.Add(24*time.Hour)), kv.lastFilters[48])
}

func TestNatsMeetingRecordRepository_ListByOwnerInRangeWideAndEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)
	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "early", base)))
	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "late", base.Add(10*24*time.Hour))))

	records, err := repo.ListByOwnerInRange(ctx, "owner-1", base.Add(-time.Hour), base.Add(11*24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []string{repo.kb.OwnerIndexFilterEncoded("owner-1")}, kv.lastFilters)

	records, err = repo.ListByOwnerInRange(ctx, "owner-1", base, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNatsMeetingRecordRepository_UpdateChecksRevision(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(NewInMemoryKeyValue())
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "fathom-1", start)))
	uid := models.RecordUID("owner-1", "fathom-1")

	first, revision, err := repo.GetWithRevision(ctx, uid)
	require.NoError(t, err)
	stale, staleRevision, err := repo.GetWithRevision(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, revision, staleRevision)

	first.MergedFrom = []string{"a"}
	require.NoError(t, repo.Update(ctx, first, revision))

	stale.MergedFrom = []string{"b"}
	err = repo.Update(ctx, stale, staleRevision)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))

	got, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.MergedFrom)
}

func TestNatsMeetingRecordRepository_UpdateValidationAndIndex(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)
	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	missing := newRecord("owner-1", "missing", start)
	missing.UID = models.RecordUID("owner-1", "missing")
	err := repo.Update(ctx, missing, 1)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	err = repo.Update(ctx, newRecord("owner-1", "no-uid", start), 1)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	require.NoError(t, repo.Upsert(ctx, newRecord("owner-1", "moved", start)))
	record, revision, err := repo.GetWithRevision(ctx, models.RecordUID("owner-1", "moved"))
	require.NoError(t, err)
	record.StartTime = start.Add(3 * time.Hour)
	require.NoError(t, repo.Update(ctx, record, revision))
	assert.Equal(t, 2, kv.Len(), "old index entry is removed")

	records, err := repo.ListByOwnerInRange(ctx, "owner-1", start.Add(2*time.Hour), start.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "moved", records[0].ExternalID)
}
