package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verityapp/verity-server/internal/db"
	"github.com/verityapp/verity-server/internal/utils/pagination"
)

// InterestRepository provides data access for interest edges and seen
// records. All writes are idempotent: edges tolerate duplicate inserts and
// seen records overwrite on conflict.
type InterestRepository struct {
	db *gorm.DB
}

func NewInterestRepository(database *gorm.DB) *InterestRepository {
	return &InterestRepository{db: database}
}

// UpsertSeen records that user evaluated candidate. Re-evaluation
// overwrites the action and timestamp, which is what makes undo work.
func (r *InterestRepository) UpsertSeen(ctx context.Context, userID, candidateID uint64, action string) error {
	record := db.SeenRecord{
		UserID:      userID,
		CandidateID: candidateID,
		Action:      action,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
		}).
		Create(&record).Error
}

// CreateInterest inserts the directional edge, treating a duplicate-key
// outcome as success-no-op. Returns whether a new edge was written.
func (r *InterestRepository) CreateInterest(ctx context.Context, fromUserID, toUserID uint64) (bool, error) {
	edge := db.InterestEvent{FromUserID: fromUserID, ToUserID: toUserID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasInterest checks for the directional edge fromUserID -> toUserID.
func (r *InterestRepository) HasInterest(ctx context.Context, fromUserID, toUserID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.InterestEvent{}).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Count(&count).Error
	return count > 0, err
}

// SeenCandidateIDs returns every candidate the user has already evaluated.
func (r *InterestRepository) SeenCandidateIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.SeenRecord{}).
		Where("user_id = ?", userID).
		Pluck("candidate_id", &ids).Error
	return ids, err
}

// LatestPass returns the most recent pass the user made, or
// gorm.ErrRecordNotFound if they have none.
func (r *InterestRepository) LatestPass(ctx context.Context, userID uint64) (*db.SeenRecord, error) {
	var record db.SeenRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND action = ?", userID, db.SeenActionPass).
		Order("updated_at DESC, candidate_id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeletePass removes a pass record, restoring the candidate's visibility.
// The action predicate makes it impossible to resurrect an interest row.
func (r *InterestRepository) DeletePass(ctx context.Context, userID, candidateID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND candidate_id = ? AND action = ?", userID, candidateID, db.SeenActionPass).
		Delete(&db.SeenRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Admirers returns users who expressed interest in the recipient, newest
// first, excluding anyone the recipient has already passed on. Supports
// cursor-based pagination.
func (r *InterestRepository) Admirers(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.InterestEvent, *string, error) {
	var edges []db.InterestEvent

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("interest_events e").
		Where("e.to_user_id = ?", userID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM seen_records s
				WHERE s.user_id = ?
				  AND s.candidate_id = e.from_user_id
				  AND s.action = ?
			)`, userID, db.SeenActionPass).
		Order("e.created_at DESC, e.from_user_id DESC").
		Limit(limit + 1)

	if cursor.LastID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(e.created_at < ? OR (e.created_at = ? AND e.from_user_id < ?))",
			ts, ts, cursor.LastID,
		)
	}

	if err := query.Find(&edges).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(edges) > limit {
		last := edges[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LastID:      last.FromUserID,
			UpdatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		edges = edges[:limit]
	}

	return edges, nextToken, nil
}

// CountAdmirers counts interest edges pointing at the recipient, excluding
// anyone the recipient has passed on. Used with the redis cache (DB is the
// fallback).
func (r *InterestRepository) CountAdmirers(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("interest_events e").
		Where("e.to_user_id = ?", userID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM seen_records s
				WHERE s.user_id = ?
				  AND s.candidate_id = e.from_user_id
				  AND s.action = ?
			)`, userID, db.SeenActionPass).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
