package safety

import (
	"context"

	"github.com/verityapp/verity-server/internal/app"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/events"
	"github.com/verityapp/verity-server/internal/repository"
)

// Service owns blocks, reports and unmatching. Block edges take effect
// immediately for feed builds and interest expressions; they are consulted
// synchronously by those paths, never cached here.
type Service struct {
	appCtx    *app.AppContext
	blockRepo *repository.BlockRepository
	matchRepo *repository.MatchRepository
	bus       events.Bus
}

func NewService(appCtx *app.AppContext, bus events.Bus) *Service {
	return &Service{
		appCtx:    appCtx,
		blockRepo: repository.NewBlockRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		bus:       bus,
	}
}

// Block records the directional edge. Re-blocking is a no-op. An existing
// match between the pair is left standing; the blocker can unmatch
// separately.
func (s *Service) Block(ctx context.Context, blockerID, blockedID uint64) error {
	if blockerID == blockedID {
		return svcErr.Validation("cannot block yourself")
	}
	if err := s.blockRepo.Create(ctx, blockerID, blockedID); err != nil {
		return err
	}
	s.appCtx.Logger.Info("user blocked", "blocker_id", blockerID, "blocked_id", blockedID)
	return nil
}

// Unblock removes the directional edge. Returns whether an edge existed.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	return s.blockRepo.Delete(ctx, blockerID, blockedID)
}

// IsBlocked checks both directions of the pair.
func (s *Service) IsBlocked(ctx context.Context, a, b uint64) (bool, error) {
	return s.blockRepo.IsBlockedEither(ctx, a, b)
}

// Report files a moderation report and returns its reference. Append-only:
// nothing in this service consumes reports beyond filing them.
func (s *Service) Report(ctx context.Context, reporterID, reportedID uint64, reason string) (string, error) {
	if reporterID == reportedID {
		return "", svcErr.Validation("cannot report yourself")
	}
	if reason == "" {
		return "", svcErr.Validation("a reason is required")
	}

	ref, err := s.blockRepo.CreateReport(ctx, reporterID, reportedID, reason)
	if err != nil {
		return "", err
	}
	s.appCtx.Logger.Info("report filed", "reference", ref, "reporter_id", reporterID, "reported_id", reportedID)
	return ref, nil
}

// Unmatch hard-deletes the match with its verity dates and messages. Only a
// member of the match may do it.
func (s *Service) Unmatch(ctx context.Context, matchID, callerID uint64) error {
	match, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		if svcErr.Is(err, svcErr.KindNotFound) {
			// already gone: the state the caller asked for
			return svcErr.Conflict("match already removed")
		}
		return err
	}
	if !match.HasUser(callerID) {
		return svcErr.Validation("caller is not part of this match")
	}

	if err := s.matchRepo.DeleteCascade(ctx, matchID); err != nil {
		return err
	}

	s.appCtx.Logger.Info("match removed", "match_id", matchID, "by", callerID)
	_ = s.bus.Publish(ctx, events.New(matchID, events.KindMatchRemoved, callerID, 0))
	return nil
}
