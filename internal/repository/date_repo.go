package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verityapp/verity-server/internal/db"
)

// DateRepository provides data access for verity dates. The nullable
// active_key unique index guarantees at most one active date per match; the
// conditional updates guarantee write-once room references and feedback
// slots.
type DateRepository struct {
	db *gorm.DB
}

func NewDateRepository(database *gorm.DB) *DateRepository {
	return &DateRepository{db: database}
}

func activeKeyFor(matchID uint64) string {
	return fmt.Sprintf("%d", matchID)
}

// CreateActive creates a new active date for the match, or returns the
// existing active one if a concurrent (or earlier) creation won.
func (r *DateRepository) CreateActive(ctx context.Context, matchID uint64) (*db.VerityDate, bool, error) {
	key := activeKeyFor(matchID)
	date := db.VerityDate{
		MatchID:   matchID,
		ActiveKey: &key,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&date)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &date, true, nil
	}

	existing, err := r.ActiveForMatch(ctx, matchID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("active date for match %d vanished during creation", matchID)
	}
	return existing, false, nil
}

// Get loads a date by id.
func (r *DateRepository) Get(ctx context.Context, dateID uint64) (*db.VerityDate, error) {
	var date db.VerityDate
	if err := r.db.WithContext(ctx).First(&date, dateID).Error; err != nil {
		return nil, err
	}
	return &date, nil
}

// ActiveForMatch returns the match's active (not completed) date, or nil.
func (r *DateRepository) ActiveForMatch(ctx context.Context, matchID uint64) (*db.VerityDate, error) {
	var date db.VerityDate
	err := r.db.WithContext(ctx).
		Where("active_key = ?", activeKeyFor(matchID)).
		First(&date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// ListForMatch returns all dates for a match, oldest first.
func (r *DateRepository) ListForMatch(ctx context.Context, matchID uint64) ([]db.VerityDate, error) {
	var dates []db.VerityDate
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("id ASC").
		Find(&dates).Error
	return dates, err
}

// SetRoomReference sets the room reference and session start exactly once.
// Returns false when another call already provisioned the room.
func (r *DateRepository) SetRoomReference(ctx context.Context, dateID uint64, roomURL string, startedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.VerityDate{}).
		Where("id = ? AND room_reference IS NULL", dateID).
		Updates(map[string]interface{}{
			"room_reference":     roomURL,
			"session_started_at": startedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetScheduledAt moves a pending date to a new time. Only valid while the
// room has not been provisioned and the date is not completed.
func (r *DateRepository) SetScheduledAt(ctx context.Context, dateID uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.VerityDate{}).
		Where("id = ? AND room_reference IS NULL AND completed = ?", dateID, false).
		Update("scheduled_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SubmitFeedback writes a verdict into the caller's slot if and only if the
// slot is still empty. slot is 1 for the match's UserA side, 2 for UserB.
func (r *DateRepository) SubmitFeedback(ctx context.Context, dateID uint64, slot int, verdict string) (bool, error) {
	column := "user1_feedback"
	if slot == 2 {
		column = "user2_feedback"
	}

	res := r.db.WithContext(ctx).
		Model(&db.VerityDate{}).
		Where(fmt.Sprintf("id = ? AND %s IS NULL", column), dateID).
		Update(column, verdict)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteIfBothSubmitted finishes the date once both verdicts are present.
// Exactly one concurrent caller observes true: the conditional update on
// completed makes the terminal transition single-winner.
func (r *DateRepository) CompleteIfBothSubmitted(ctx context.Context, dateID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.VerityDate{}).
		Where("id = ? AND completed = ? AND user1_feedback IS NOT NULL AND user2_feedback IS NOT NULL", dateID, false).
		Updates(map[string]interface{}{
			"completed":  true,
			"active_key": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteAbandoned closes sessions that elapsed long ago with no feedback
// from either side. No unlock can result: both slots stay empty.
func (r *DateRepository) CompleteAbandoned(ctx context.Context, startedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.VerityDate{}).
		Where("completed = ? AND session_started_at IS NOT NULL AND session_started_at < ? AND user1_feedback IS NULL AND user2_feedback IS NULL",
			false, startedBefore).
		Updates(map[string]interface{}{
			"completed":  true,
			"active_key": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountStalePending counts date requests that nobody accepted within the
// window. Logged by the reconciler for operability; pending requests do not
// auto-expire.
func (r *DateRepository) CountStalePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.VerityDate{}).
		Where("completed = ? AND room_reference IS NULL AND created_at < ?", false, createdBefore).
		Count(&count).Error
	return count, err
}
