package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/verityapp/verity-server/internal/db"
)

// ProfileRepository provides data access for profile rows.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get loads a profile by id.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).First(&profile, userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetMany loads profiles for a set of ids, keyed by id.
func (r *ProfileRepository) GetMany(ctx context.Context, ids []uint64) (map[uint64]*db.Profile, error) {
	result := make(map[uint64]*db.Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for i := range profiles {
		result[profiles[i].ID] = &profiles[i]
	}
	return result, nil
}

// TouchLastActive updates the heartbeat timestamp.
func (r *ProfileRepository) TouchLastActive(ctx context.Context, userID uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", userID).
		Update("last_active_at", at).Error
}

// UpdateLocation moves the profile's geographic point.
func (r *ProfileRepository) UpdateLocation(ctx context.Context, userID uint64, lat, lng float64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"lat": lat, "lng": lng}).Error
}

// SetBoost sets the boost expiry.
func (r *ProfileRepository) SetBoost(ctx context.Context, userID uint64, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", userID).
		Update("boost_expires_at", until).Error
}

// ClearExpiredBoosts nulls out boost expiries in the past.
func (r *ProfileRepository) ClearExpiredBoosts(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("boost_expires_at IS NOT NULL AND boost_expires_at < ?", now).
		Update("boost_expires_at", nil)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// NearbyFallback returns profiles inside a rough bounding box around the
// point. Used when the redis geo index is unavailable; the caller refines
// distances and ordering in memory.
func (r *ProfileRepository) NearbyFallback(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]db.Profile, error) {
	// ~111km per degree latitude; stretch longitude generously rather than
	// correct for latitude, the in-memory distance pass trims the excess.
	latDelta := radiusKM / 111.0
	lngDelta := radiusKM / 70.0

	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("lat BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("lng BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta).
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// All returns every profile. Used by the seeding path that fills the geo
// index on boot.
func (r *ProfileRepository) All(ctx context.Context) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).Find(&profiles).Error
	return profiles, err
}

// RebuildMatchCounts recomputes every profile's cached match count from the
// matches table. The cache is a read optimization, never a source of truth.
func (r *ProfileRepository) RebuildMatchCounts(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE profiles SET cached_match_count = (
			SELECT COUNT(*) FROM matches
			WHERE matches.user_a_id = profiles.id OR matches.user_b_id = profiles.id
		)`).Error
}
