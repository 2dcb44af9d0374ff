package interest

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/db"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/metrics"
	"github.com/verityapp/verity-server/internal/ratelimit"
	"github.com/verityapp/verity-server/internal/repository"
	"github.com/verityapp/verity-server/internal/service/dates"
)

// Service owns the interest ledger: likes, passes, undo, and the admirer
// views built on top of them. Mutual interest hands off to the date
// orchestrator for match creation.
type Service struct {
	appCtx       *app.AppContext
	interestRepo *repository.InterestRepository
	blockRepo    *repository.BlockRepository
	profileRepo  *repository.ProfileRepository
	limiter      *ratelimit.Limiter
	advisory     *ratelimit.Advisory
	dates        *dates.Service
}

func NewService(appCtx *app.AppContext, limiter *ratelimit.Limiter, advisory *ratelimit.Advisory, datesSvc *dates.Service) *Service {
	return &Service{
		appCtx:       appCtx,
		interestRepo: repository.NewInterestRepository(appCtx.DB),
		blockRepo:    repository.NewBlockRepository(appCtx.DB),
		profileRepo:  repository.NewProfileRepository(appCtx.DB),
		limiter:      limiter,
		advisory:     advisory,
		dates:        datesSvc,
	}
}

// ExpressResult is returned by ExpressInterest.
type ExpressResult struct {
	IsMatch          bool    `json:"isMatch"`
	MatchID          *uint64 `json:"matchId,omitempty"`
	AlreadyExpressed bool    `json:"alreadyExpressed"`
	Remaining        int     `json:"remaining"`
}

// ExpressInterest records a directional like. Every step is individually
// idempotent, so a retried call converges on the same state: the seen
// record upserts, the edge insert tolerates duplicates, and match creation
// reuses an existing match. The advisory limiter runs first to spare an
// obviously-over-limit caller the round trip; the redis limiter is the
// authority.
func (s *Service) ExpressInterest(ctx context.Context, fromUserID, toUserID uint64) (*ExpressResult, error) {
	if fromUserID == toUserID {
		return nil, svcErr.Validation("cannot express interest in yourself")
	}

	if !s.advisory.Allow(fromUserID, ratelimit.ActionExpressInterest) {
		return nil, svcErr.RateLimited("daily like limit reached")
	}

	decision := s.limiter.Check(ctx, fromUserID, ratelimit.ActionExpressInterest)
	if !decision.Allowed {
		return nil, svcErr.RateLimited("like limit reached, try again in " + decision.RetryAfter.Round(time.Second).String())
	}

	// Blocked pairs are mutually invisible; do not reveal that a block
	// exists.
	blocked, err := s.blockRepo.IsBlockedEither(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, svcErr.NotFound("profile not found")
	}

	if err := s.interestRepo.UpsertSeen(ctx, fromUserID, toUserID, db.SeenActionInterest); err != nil {
		return nil, err
	}

	created, err := s.interestRepo.CreateInterest(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.InterestsTotal.WithLabelValues("expressed").Inc()
		// the recipient's admirer count changed
		_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForAdmirerCount(toUserID))
	} else {
		metrics.InterestsTotal.WithLabelValues("duplicate").Inc()
	}

	reverse, err := s.interestRepo.HasInterest(ctx, toUserID, fromUserID)
	if err != nil {
		return nil, err
	}

	result := &ExpressResult{
		AlreadyExpressed: !created,
		Remaining:        decision.Remaining,
	}
	if !reverse {
		return result, nil
	}

	outcome, err := s.dates.EnsureMatch(ctx, fromUserID, toUserID)
	if err != nil {
		// a block created moments ago can abort match creation; the like
		// itself stands
		if svcErr.Is(err, svcErr.KindInvariant) {
			return result, nil
		}
		return nil, err
	}

	if outcome.MatchCreated {
		metrics.InterestsTotal.WithLabelValues("match").Inc()
	}
	result.IsMatch = true
	result.MatchID = &outcome.Match.ID
	return result, nil
}

// ExpressPass records that the user is not interested. Only touches the
// seen record; no interest edge is ever written for a pass.
func (s *Service) ExpressPass(ctx context.Context, fromUserID, toUserID uint64) error {
	if fromUserID == toUserID {
		return svcErr.Validation("cannot pass on yourself")
	}

	if err := s.interestRepo.UpsertSeen(ctx, fromUserID, toUserID, db.SeenActionPass); err != nil {
		return err
	}
	metrics.PassesTotal.Inc()

	// a pass hides the candidate from the passer's own admirer list
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForAdmirerCount(fromUserID))
	return nil
}

// UndoResult is returned by UndoLastPass.
type UndoResult struct {
	Undone      bool   `json:"undone"`
	CandidateID uint64 `json:"candidateId,omitempty"`
}

// UndoLastPass deletes the user's most recent pass, restoring that
// candidate's visibility. Gated on the caller's premium entitlement. The
// delete predicate matches only pass actions, so an interest recorded in
// the meantime can never be resurrected into a pass slot or removed.
func (s *Service) UndoLastPass(ctx context.Context, userID uint64, premiumEntitled bool) (*UndoResult, error) {
	if !premiumEntitled {
		return nil, svcErr.Validation("undo requires a premium subscription")
	}

	latest, err := s.interestRepo.LatestPass(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &UndoResult{Undone: false}, nil
	}
	if err != nil {
		return nil, err
	}

	removed, err := s.interestRepo.DeletePass(ctx, userID, latest.CandidateID)
	if err != nil {
		return nil, err
	}
	if !removed {
		// the record changed under us (re-evaluated as interest): nothing
		// to undo anymore
		return &UndoResult{Undone: false}, nil
	}

	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForAdmirerCount(userID))
	return &UndoResult{Undone: true, CandidateID: latest.CandidateID}, nil
}

// Admirer is one entry in the admirer list.
type Admirer struct {
	UserID      uint64    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Age         int       `json:"age"`
	Verified    bool      `json:"verified"`
	LikedAt     time.Time `json:"likedAt"`
}

// ListAdmirers pages through the users who expressed interest in userID,
// newest first, excluding anyone userID has already passed on.
func (s *Service) ListAdmirers(ctx context.Context, userID uint64, token *string, limit int) ([]Admirer, *string, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	edges, nextToken, err := s.interestRepo.Admirers(ctx, userID, token, limit)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uint64, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FromUserID)
	}
	profiles, err := s.profileRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	admirers := make([]Admirer, 0, len(edges))
	for _, e := range edges {
		p, ok := profiles[e.FromUserID]
		if !ok {
			continue // profile deleted since the like
		}
		admirers = append(admirers, Admirer{
			UserID:      p.ID,
			DisplayName: p.DisplayName,
			Age:         p.Age,
			Verified:    p.Verified,
			LikedAt:     e.CreatedAt,
		})
	}
	return admirers, nextToken, nil
}

// CountAdmirers returns the admirer count, serving from the redis cache
// when warm and falling back to the DB (refilling the cache) otherwise.
func (s *Service) CountAdmirers(ctx context.Context, userID uint64) (int64, error) {
	count, hit, err := s.appCtx.RedisCache.GetAdmirerCount(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("admirer count cache unavailable", "user_id", userID, "err", err)
	} else if hit {
		return count, nil
	}

	count, err = s.interestRepo.CountAdmirers(ctx, userID)
	if err != nil {
		return 0, err
	}
	if cacheErr := s.appCtx.RedisCache.SetAdmirerCount(ctx, userID, count); cacheErr != nil {
		s.appCtx.Logger.Warn("admirer count cache write failed", "user_id", userID, "err", cacheErr)
	}
	return count, nil
}
