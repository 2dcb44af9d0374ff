package profile

import (
	"context"
	"time"

	"github.com/verityapp/verity-server/internal/app"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/repository"
)

// boostDuration is how long an activated boost keeps a profile sorted ahead
// of non-boosted candidates.
const boostDuration = 30 * time.Minute

// Service handles the profile touch-ups the lifecycle depends on: activity
// heartbeats, location moves with geo-index write-through, and boosts.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository

	now func() time.Time
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		now:         time.Now,
	}
}

// Heartbeat records that the user's client is alive. Coarse-grained; feeds
// the active-recently discovery filter.
func (s *Service) Heartbeat(ctx context.Context, userID uint64) error {
	return s.profileRepo.TouchLastActive(ctx, userID, s.now())
}

// UpdateLocation moves the profile and writes through to the geo index. The
// DB is the source of truth; a failed index write only degrades discovery
// freshness until the next update.
func (s *Service) UpdateLocation(ctx context.Context, userID uint64, lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return svcErr.Validation("coordinates out of range")
	}

	if err := s.profileRepo.UpdateLocation(ctx, userID, lat, lng); err != nil {
		return err
	}

	if err := s.appCtx.RedisCache.GeoUpsert(ctx, userID, lat, lng); err != nil {
		s.appCtx.Logger.Warn("geo index write failed", "user_id", userID, "err", err)
	}
	return nil
}

// ActivateBoost starts (or extends) the user's discovery boost.
func (s *Service) ActivateBoost(ctx context.Context, userID uint64) (time.Time, error) {
	until := s.now().Add(boostDuration)
	if err := s.profileRepo.SetBoost(ctx, userID, until); err != nil {
		return time.Time{}, err
	}
	s.appCtx.Logger.Info("boost activated", "user_id", userID, "until", until)
	return until, nil
}

// SeedGeoIndex loads every profile into the geo index. Called on boot so
// discovery works from a cold redis.
func (s *Service) SeedGeoIndex(ctx context.Context) error {
	profiles, err := s.profileRepo.All(ctx)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if err := s.appCtx.RedisCache.GeoUpsert(ctx, p.ID, p.Lat, p.Lng); err != nil {
			return err
		}
	}
	s.appCtx.Logger.Info("geo index seeded", "profiles", len(profiles))
	return nil
}
