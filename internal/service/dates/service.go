package dates

import (
	"context"
	"errors"
	"time"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/db"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/events"
	"github.com/verityapp/verity-server/internal/metrics"
	"github.com/verityapp/verity-server/internal/notify"
	"github.com/verityapp/verity-server/internal/repository"
	"github.com/verityapp/verity-server/internal/rooms"
)

// State is the derived lifecycle position of a verity date. It is computed
// from the row on every read, never stored, so the in-session →
// feedback-collection transition happens server-side without any client
// staying connected.
type State string

const (
	StateRequested          State = "date-requested"
	StateInSession          State = "in-session"
	StateFeedbackCollection State = "feedback-collection"
	StateResolved           State = "resolved"
)

// Service owns the match + verity-date state machine: match creation on
// mutual interest, room provisioning on acceptance, and the derived session
// timeline.
type Service struct {
	appCtx      *app.AppContext
	matchRepo   *repository.MatchRepository
	dateRepo    *repository.DateRepository
	blockRepo   *repository.BlockRepository
	provisioner rooms.Provisioner
	notifier    notify.Notifier
	bus         events.Bus

	sessionDuration time.Duration
	now             func() time.Time
}

func NewService(appCtx *app.AppContext, provisioner rooms.Provisioner, notifier notify.Notifier, bus events.Bus) *Service {
	return &Service{
		appCtx:          appCtx,
		matchRepo:       repository.NewMatchRepository(appCtx.DB),
		dateRepo:        repository.NewDateRepository(appCtx.DB),
		blockRepo:       repository.NewBlockRepository(appCtx.DB),
		provisioner:     provisioner,
		notifier:        notifier,
		bus:             bus,
		sessionDuration: appCtx.Config.Session.Duration,
		now:             time.Now,
	}
}

// MatchOutcome reports the result of a mutual-interest detection.
type MatchOutcome struct {
	Match        *db.Match
	Date         *db.VerityDate
	MatchCreated bool
}

// EnsureMatch creates (or reuses) the match for a mutual pair and makes
// sure an active verity date exists unless chat is already unlocked. Safe
// under the symmetric race: the pair-key unique index lets exactly one
// creation win and the loser reuses the row.
//
// Block status is re-checked here, immediately before creation: an
// interest edge recorded before a block must not mint a match after it.
func (s *Service) EnsureMatch(ctx context.Context, userA, userB uint64) (*MatchOutcome, error) {
	blocked, err := s.blockRepo.IsBlockedEither(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, svcErr.Invariant("blocked pair cannot match")
	}

	match, created, err := s.matchRepo.GetOrCreate(ctx, userA, userB)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.MatchesCreatedTotal.Inc()
		s.appCtx.Logger.Info("match created", "match_id", match.ID, "user_a", match.UserAID, "user_b", match.UserBID)

		s.notifier.Notify(ctx, match.UserAID, notify.KindNewMatch, "It's a match!", "You both want to meet. Your verity date is ready to schedule.", match.ID)
		s.notifier.Notify(ctx, match.UserBID, notify.KindNewMatch, "It's a match!", "You both want to meet. Your verity date is ready to schedule.", match.ID)
		_ = s.bus.Publish(ctx, events.New(match.ID, events.KindMatchCreated, 0, 0))
	}

	outcome := &MatchOutcome{Match: match, MatchCreated: created}

	// Chat already unlocked means the gate has been passed; no further
	// dates are needed.
	if match.ChatUnlocked {
		return outcome, nil
	}

	date, _, err := s.dateRepo.CreateActive(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	outcome.Date = date

	return outcome, nil
}

// DateView is the caller-facing snapshot of a date.
type DateView struct {
	ID            uint64     `json:"id"`
	MatchID       uint64     `json:"matchId"`
	State         State      `json:"state"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	RoomURL       *string    `json:"roomUrl,omitempty"`
	SessionEndsAt *time.Time `json:"sessionEndsAt,omitempty"`
	Completed     bool       `json:"completed"`
}

// StateOf derives the lifecycle state of a date row.
func (s *Service) StateOf(d *db.VerityDate) State {
	switch {
	case d.Completed:
		return StateResolved
	case d.RoomReference == nil:
		return StateRequested
	case d.User1Feedback != nil && d.User2Feedback != nil:
		return StateFeedbackCollection
	case !d.SessionElapsed(s.now(), s.sessionDuration):
		return StateInSession
	default:
		return StateFeedbackCollection
	}
}

func (s *Service) viewOf(d *db.VerityDate) *DateView {
	view := &DateView{
		ID:          d.ID,
		MatchID:     d.MatchID,
		State:       s.StateOf(d),
		ScheduledAt: d.ScheduledAt,
		RoomURL:     d.RoomReference,
		Completed:   d.Completed,
	}
	if d.SessionStartedAt != nil {
		end := d.SessionStartedAt.Add(s.sessionDuration)
		view.SessionEndsAt = &end
	}
	return view
}

// loadForCaller loads a date and its match, verifying the caller belongs to
// the pair.
func (s *Service) loadForCaller(ctx context.Context, dateID, callerID uint64) (*db.VerityDate, *db.Match, error) {
	date, err := s.dateRepo.Get(ctx, dateID)
	if err != nil {
		if svcErr.Is(err, svcErr.KindNotFound) {
			return nil, nil, svcErr.NotFound("verity date not found")
		}
		return nil, nil, err
	}

	match, err := s.matchRepo.Get(ctx, date.MatchID)
	if err != nil {
		return nil, nil, err
	}
	if !match.HasUser(callerID) {
		return nil, nil, svcErr.Validation("caller is not part of this match")
	}
	return date, match, nil
}

// AcceptResult is returned by AcceptDate.
type AcceptResult struct {
	Date               *DateView `json:"date"`
	RoomURL            string    `json:"roomUrl"`
	AlreadyProvisioned bool      `json:"alreadyProvisioned"`
}

// AcceptDate moves a requested date into session by provisioning its video
// room. Idempotent: a second acceptance (double-click, stale tab, the other
// party) returns the existing room reference instead of re-provisioning.
func (s *Service) AcceptDate(ctx context.Context, dateID, callerID uint64) (*AcceptResult, error) {
	date, match, err := s.loadForCaller(ctx, dateID, callerID)
	if err != nil {
		return nil, err
	}

	if date.Completed {
		return nil, svcErr.Conflict("verity date already completed")
	}

	if date.RoomReference != nil {
		return &AcceptResult{Date: s.viewOf(date), RoomURL: *date.RoomReference, AlreadyProvisioned: true}, nil
	}

	roomURL, err := s.provisioner.CreateRoom(ctx, date.ID)
	if err != nil {
		metrics.RoomProvisionFailuresTotal.Inc()
		// enough context for manual remediation
		s.appCtx.Logger.Error("room provisioning failed",
			"verity_date_id", date.ID,
			"match_id", match.ID,
			"user_a", match.UserAID,
			"user_b", match.UserBID,
			"at", s.now().UTC(),
			"err", err,
		)
		if errors.Is(err, rooms.ErrUnavailable) {
			return nil, svcErr.Unavailable("could not start your video room, please try again", err)
		}
		return nil, err
	}

	set, err := s.dateRepo.SetRoomReference(ctx, date.ID, roomURL, s.now())
	if err != nil {
		return nil, err
	}
	if !set {
		// a concurrent acceptance won; the vendor call is idempotent per
		// date id so both callers hold the same room
		date, err = s.dateRepo.Get(ctx, date.ID)
		if err != nil {
			return nil, err
		}
		if date.RoomReference == nil {
			return nil, svcErr.Invariant("room reference missing after concurrent acceptance")
		}
		return &AcceptResult{Date: s.viewOf(date), RoomURL: *date.RoomReference, AlreadyProvisioned: true}, nil
	}

	metrics.RoomsProvisionedTotal.Inc()
	s.appCtx.Logger.Info("room provisioned", "verity_date_id", date.ID, "match_id", match.ID)

	other := match.OtherUserID(callerID)
	s.notifier.Notify(ctx, other, notify.KindDateAccepted, "Your verity date is starting", "Your match accepted the date. Join the room now!", date.ID)
	_ = s.bus.Publish(ctx, events.New(match.ID, events.KindDateAccepted, callerID, date.ID))

	date, err = s.dateRepo.Get(ctx, date.ID)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{Date: s.viewOf(date), RoomURL: roomURL}, nil
}

// RescheduleDate is the explicit alternate transition out of
// date-requested: instead of accepting, a party proposes a different time.
// Not available once the session has started.
func (s *Service) RescheduleDate(ctx context.Context, dateID, callerID uint64, at time.Time) (*DateView, error) {
	date, match, err := s.loadForCaller(ctx, dateID, callerID)
	if err != nil {
		return nil, err
	}

	if date.Completed {
		return nil, svcErr.Conflict("verity date already completed")
	}
	if date.RoomReference != nil {
		return nil, svcErr.Conflict("session already started")
	}

	set, err := s.dateRepo.SetScheduledAt(ctx, date.ID, at)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, svcErr.Conflict("date can no longer be rescheduled")
	}

	other := match.OtherUserID(callerID)
	s.notifier.Notify(ctx, other, notify.KindDateRescheduled, "New time proposed", "Your match suggested a new time for your verity date.", date.ID)
	_ = s.bus.Publish(ctx, events.New(match.ID, events.KindDateRescheduled, callerID, date.ID))

	date, err = s.dateRepo.Get(ctx, date.ID)
	if err != nil {
		return nil, err
	}
	return s.viewOf(date), nil
}

// RequestNewDate creates a fresh verity date on a match whose previous date
// resolved without unlocking chat.
func (s *Service) RequestNewDate(ctx context.Context, matchID, callerID uint64) (*DateView, error) {
	match, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(callerID) {
		return nil, svcErr.Validation("caller is not part of this match")
	}
	if match.ChatUnlocked {
		return nil, svcErr.Conflict("chat is already unlocked")
	}

	date, created, err := s.dateRepo.CreateActive(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !created {
		// an active date already exists: reuse it rather than erroring
		return s.viewOf(date), nil
	}

	other := match.OtherUserID(callerID)
	s.notifier.Notify(ctx, other, notify.KindNewMatch, "Another verity date?", "Your match wants to try another video date.", date.ID)

	return s.viewOf(date), nil
}

// ActiveDate returns the match's active date, or the latest resolved one
// when none is active.
func (s *Service) ActiveDate(ctx context.Context, matchID, callerID uint64) (*DateView, error) {
	match, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(callerID) {
		return nil, svcErr.Validation("caller is not part of this match")
	}

	date, err := s.dateRepo.ActiveForMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if date == nil {
		dates, err := s.dateRepo.ListForMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, svcErr.NotFound("no verity date for this match")
		}
		date = &dates[len(dates)-1]
	}
	return s.viewOf(date), nil
}
