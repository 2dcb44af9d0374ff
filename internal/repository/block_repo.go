package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verityapp/verity-server/internal/db"
)

// BlockRepository provides data access for block edges and reports.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create inserts the directional block edge; duplicate blocks are no-ops.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID uint64) error {
	edge := db.Block{BlockerID: blockerID, BlockedID: blockedID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error
}

// Delete removes the directional block edge.
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&db.Block{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsBlockedEither checks both directions of the pair.
func (r *BlockRepository) IsBlockedEither(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// BlockedIDs returns every user blocked by userID or blocking userID.
func (r *BlockRepository) BlockedIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var edges []db.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(edges))
	for _, e := range edges {
		if e.BlockerID == userID {
			ids = append(ids, e.BlockedID)
		} else {
			ids = append(ids, e.BlockerID)
		}
	}
	return ids, nil
}

// CreateReport files a moderation report and returns its reference.
func (r *BlockRepository) CreateReport(ctx context.Context, reporterID, reportedID uint64, reason string) (string, error) {
	report := db.Report{
		Reference:  uuid.NewString(),
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     reason,
	}
	if err := r.db.WithContext(ctx).Create(&report).Error; err != nil {
		return "", err
	}
	return report.Reference, nil
}
