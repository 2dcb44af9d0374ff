package discovery

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/cache"
	"github.com/verityapp/verity-server/internal/db"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/metrics"
	"github.com/verityapp/verity-server/internal/repository"
)

const (
	defaultRadiusKM = 50.0
	defaultPageSize = 10
	// geo index over-fetch factor: the exclusion set and filters thin the
	// raw candidate list considerably
	fetchMultiplier = 8
)

// Prefs are the requester's standing discovery preferences.
type Prefs struct {
	RadiusKM float64  `json:"radiusKm"`
	AgeMin   int      `json:"ageMin"`
	AgeMax   int      `json:"ageMax"`
	Genders  []string `json:"genders"`
}

// Filters are optional narrowing predicates. A candidate missing an
// optional attribute fails the corresponding filter rather than passing.
type Filters struct {
	VerifiedOnly  bool     `json:"verifiedOnly"`
	ActiveWithin  string   `json:"activeWithin,omitempty"` // duration string, e.g. "24h"
	HeightMinCM   int      `json:"heightMinCm"`
	HeightMaxCM   int      `json:"heightMaxCm"`
	AnyOfTags     []string `json:"anyOfTags,omitempty"`
}

// Candidate is one feed entry.
type Candidate struct {
	UserID      uint64   `json:"userId"`
	DisplayName string   `json:"displayName"`
	Age         int      `json:"age"`
	Gender      string   `json:"gender"`
	Bio         string   `json:"bio"`
	PhotoRefs   []string `json:"photoRefs"`
	Verified    bool     `json:"verified"`
	Boosted     bool     `json:"boosted"`
	DistanceKM  float64  `json:"distanceKm"`
	Tags        []string `json:"tags,omitempty"`
}

// Service builds the discovery feed: nearby, preference-matching,
// non-excluded candidates with boosted profiles surfaced first.
type Service struct {
	appCtx       *app.AppContext
	profileRepo  *repository.ProfileRepository
	interestRepo *repository.InterestRepository
	blockRepo    *repository.BlockRepository

	now func() time.Time
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:       appCtx,
		profileRepo:  repository.NewProfileRepository(appCtx.DB),
		interestRepo: repository.NewInterestRepository(appCtx.DB),
		blockRepo:    repository.NewBlockRepository(appCtx.DB),
		now:          time.Now,
	}
}

// BuildFeed assembles one ordered feed page. offset skips already-served
// candidates so the pager can pull successive windows of the same ordering.
func (s *Service) BuildFeed(ctx context.Context, userID uint64, prefs Prefs, filters Filters, pageSize, offset int) ([]Candidate, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if prefs.RadiusKM <= 0 {
		prefs.RadiusKM = defaultRadiusKM
	}

	requester, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		if svcErr.Is(err, svcErr.KindNotFound) {
			return nil, svcErr.NotFound("profile not found")
		}
		return nil, err
	}

	excluded, err := s.exclusionSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	nearby, err := s.nearbyCandidates(ctx, requester, prefs, pageSize+offset)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(nearby))
	distances := make(map[uint64]float64, len(nearby))
	for _, n := range nearby {
		if _, skip := excluded[n.UserID]; skip {
			continue
		}
		ids = append(ids, n.UserID)
		distances[n.UserID] = n.DistanceKM
	}

	profiles, err := s.profileRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		p, ok := profiles[id]
		if !ok {
			continue
		}
		if !matchesPrefs(p, prefs) || !passesFilters(p, filters, now) {
			continue
		}
		candidates = append(candidates, toCandidate(p, distances[id], now))
	}

	// boosted profiles sort strictly before non-boosted; within each group
	// nearest first. SliceStable keeps equal-distance ordering deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Boosted != candidates[j].Boosted {
			return candidates[i].Boosted
		}
		return candidates[i].DistanceKM < candidates[j].DistanceKM
	})

	if offset >= len(candidates) {
		return []Candidate{}, nil
	}
	candidates = candidates[offset:]
	if len(candidates) > pageSize {
		candidates = candidates[:pageSize]
	}

	metrics.FeedPagesTotal.Inc()
	return candidates, nil
}

// exclusionSet is self ∪ seen ∪ blocked-either-direction.
func (s *Service) exclusionSet(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	excluded := map[uint64]struct{}{userID: {}}

	seen, err := s.interestRepo.SeenCandidateIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range seen {
		excluded[id] = struct{}{}
	}

	blocked, err := s.blockRepo.BlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range blocked {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

// nearbyCandidates queries the redis geo index, falling back to a DB
// bounding-box scan with in-memory haversine distances when redis is
// unavailable. Discovery keeps working, just a little slower.
func (s *Service) nearbyCandidates(ctx context.Context, requester *db.Profile, prefs Prefs, want int) ([]cache.Nearby, error) {
	fetch := want * fetchMultiplier
	nearby, err := s.appCtx.RedisCache.GeoNearby(ctx, requester.Lat, requester.Lng, prefs.RadiusKM, fetch)
	if err == nil {
		return nearby, nil
	}
	s.appCtx.Logger.Warn("geo index unavailable, using DB fallback", "err", err)

	profiles, err := s.profileRepo.NearbyFallback(ctx, requester.Lat, requester.Lng, prefs.RadiusKM, fetch)
	if err != nil {
		return nil, err
	}

	out := make([]cache.Nearby, 0, len(profiles))
	for _, p := range profiles {
		d := haversineKM(requester.Lat, requester.Lng, p.Lat, p.Lng)
		if d > prefs.RadiusKM {
			continue
		}
		out = append(out, cache.Nearby{UserID: p.ID, DistanceKM: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	return out, nil
}

func matchesPrefs(p *db.Profile, prefs Prefs) bool {
	if prefs.AgeMin > 0 && p.Age < prefs.AgeMin {
		return false
	}
	if prefs.AgeMax > 0 && p.Age > prefs.AgeMax {
		return false
	}
	if len(prefs.Genders) > 0 {
		found := false
		for _, g := range prefs.Genders {
			if strings.EqualFold(g, p.Gender) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func passesFilters(p *db.Profile, f Filters, now time.Time) bool {
	if f.VerifiedOnly && !p.Verified {
		return false
	}
	if f.ActiveWithin != "" {
		window, err := time.ParseDuration(f.ActiveWithin)
		if err != nil || p.LastActiveAt.IsZero() || p.LastActiveAt.Before(now.Add(-window)) {
			return false
		}
	}
	if f.HeightMinCM > 0 || f.HeightMaxCM > 0 {
		// no recorded height fails the filter
		if p.HeightCM == nil {
			return false
		}
		if f.HeightMinCM > 0 && *p.HeightCM < f.HeightMinCM {
			return false
		}
		if f.HeightMaxCM > 0 && *p.HeightCM > f.HeightMaxCM {
			return false
		}
	}
	if len(f.AnyOfTags) > 0 {
		tags := splitList(p.Tags)
		overlap := false
		for _, want := range f.AnyOfTags {
			for _, have := range tags {
				if strings.EqualFold(want, have) {
					overlap = true
					break
				}
			}
		}
		if !overlap {
			return false
		}
	}
	return true
}

func toCandidate(p *db.Profile, distanceKM float64, now time.Time) Candidate {
	return Candidate{
		UserID:      p.ID,
		DisplayName: p.DisplayName,
		Age:         p.Age,
		Gender:      p.Gender,
		Bio:         p.Bio,
		PhotoRefs:   splitList(p.PhotoRefs),
		Verified:    p.Verified,
		Boosted:     p.BoostActive(now),
		DistanceKM:  math.Round(distanceKM*10) / 10,
		Tags:        splitList(p.Tags),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

const earthRadiusKM = 6371.0

// haversineKM computes the great-circle distance between two points.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
