package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verityapp/verity-server/internal/db"
)

// MatchRepository provides data access for match rows. The pair_key unique
// index is the storage-level guard against duplicate concurrent creation;
// application code never relies on check-then-insert alone.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// GetOrCreate returns the match for the unordered pair, creating it if
// absent. Under a concurrent symmetric race exactly one insert wins; the
// loser detects the existing row via the unique index and reuses it.
func (r *MatchRepository) GetOrCreate(ctx context.Context, userA, userB uint64) (*db.Match, bool, error) {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}

	match := db.Match{
		PairKey:        db.PairKeyFor(lo, hi),
		UserAID:        lo,
		UserBID:        hi,
		BothInterested: true,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&match)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected > 0 {
		return &match, true, nil
	}

	// lost the race (or the match already existed): fetch the winner's row
	var existing db.Match
	if err := r.db.WithContext(ctx).
		Where("pair_key = ?", match.PairKey).
		First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// Get loads a match by id.
func (r *MatchRepository) Get(ctx context.Context, matchID uint64) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, matchID).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// GetByPair loads the match for an unordered pair, or nil when none exists.
func (r *MatchRepository) GetByPair(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", db.PairKeyFor(userA, userB)).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns every match the user is a member of.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}

// UnlockChat flips chat_unlocked false -> true. Returns whether this call
// performed the transition; the flag never reverts.
func (r *MatchRepository) UnlockChat(ctx context.Context, matchID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND chat_unlocked = ?", matchID, false).
		Update("chat_unlocked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteCascade hard-deletes the match together with its dependent
// verity dates and messages, in one transaction.
func (r *MatchRepository) DeleteCascade(ctx context.Context, matchID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("match_id = ?", matchID).Delete(&db.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", matchID).Delete(&db.VerityDate{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Match{}, matchID).Error
	})
}
