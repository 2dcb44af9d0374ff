package feedback

import (
	"context"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/db"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/events"
	"github.com/verityapp/verity-server/internal/metrics"
	"github.com/verityapp/verity-server/internal/notify"
	"github.com/verityapp/verity-server/internal/repository"
)

// Result names the caller-visible outcome of a feedback submission.
const (
	ResultWaitingOnOther = "waiting-on-other"
	ResultMutualYes      = "mutual-yes"
	ResultNotMutual      = "not-mutual"
)

// Service collects post-date verdicts and resolves the chat gate. A
// non-mutual resolution is always framed neutrally: the response never
// reveals which side said no, or whether the other side answered at all.
type Service struct {
	appCtx    *app.AppContext
	matchRepo *repository.MatchRepository
	dateRepo  *repository.DateRepository
	notifier  notify.Notifier
	bus       events.Bus
}

func NewService(appCtx *app.AppContext, notifier notify.Notifier, bus events.Bus) *Service {
	return &Service{
		appCtx:    appCtx,
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		dateRepo:  repository.NewDateRepository(appCtx.DB),
		notifier:  notifier,
		bus:       bus,
	}
}

// Framing adjusts how a non-mutual outcome is presented: a "no" verdict is
// a respectful decline, while maybes without a "no" read as no decision yet.
const (
	FramingDeclined = "declined"
	FramingPending  = "pending"
)

// Outcome is returned to the submitter.
type Outcome struct {
	Result       string `json:"result"`
	Framing      string `json:"framing,omitempty"`
	Message      string `json:"message"`
	ChatUnlocked bool   `json:"chatUnlocked"`
}

func validVerdict(v string) bool {
	switch v {
	case db.VerdictYes, db.VerdictMaybe, db.VerdictNo:
		return true
	}
	return false
}

// Submit records the caller's verdict for a date. Each side writes exactly
// once; the second write is rejected as a conflict. When both verdicts are
// in, exactly one submission performs the terminal transition (and, on
// mutual yes, the one-way chat unlock).
func (s *Service) Submit(ctx context.Context, dateID, callerID uint64, verdict string) (*Outcome, error) {
	if !validVerdict(verdict) {
		return nil, svcErr.Validationf("verdict must be one of %q, %q, %q", db.VerdictYes, db.VerdictMaybe, db.VerdictNo)
	}

	date, err := s.dateRepo.Get(ctx, dateID)
	if err != nil {
		if svcErr.Is(err, svcErr.KindNotFound) {
			return nil, svcErr.NotFound("verity date not found")
		}
		return nil, err
	}

	match, err := s.matchRepo.Get(ctx, date.MatchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(callerID) {
		return nil, svcErr.Validation("caller is not part of this match")
	}

	if date.RoomReference == nil {
		return nil, svcErr.Validation("feedback opens once the video date has started")
	}
	if date.Completed {
		return nil, svcErr.Conflict("feedback for this date is already closed")
	}

	slot := 1
	if callerID == match.UserBID {
		slot = 2
	}

	wrote, err := s.dateRepo.SubmitFeedback(ctx, dateID, slot, verdict)
	if err != nil {
		return nil, err
	}
	if !wrote {
		return nil, svcErr.Conflict("feedback already submitted for this date")
	}

	metrics.FeedbackSubmittedTotal.WithLabelValues(verdict).Inc()
	_ = s.bus.Publish(ctx, events.New(match.ID, events.KindFeedbackSubmitted, callerID, dateID))

	date, err = s.dateRepo.Get(ctx, dateID)
	if err != nil {
		return nil, err
	}

	if date.User1Feedback == nil || date.User2Feedback == nil {
		return &Outcome{
			Result:  ResultWaitingOnOther,
			Message: "Thanks! We'll let you know once your match has answered too.",
		}, nil
	}

	completed, err := s.dateRepo.CompleteIfBothSubmitted(ctx, dateID)
	if err != nil {
		return nil, err
	}
	if !completed {
		// a concurrent submission won the terminal transition; exactly one
		// caller observes the outcome
		return &Outcome{
			Result:  ResultWaitingOnOther,
			Message: "Thanks! We'll let you know once your match has answered too.",
		}, nil
	}

	v1, v2 := *date.User1Feedback, *date.User2Feedback
	mutualYes := v1 == db.VerdictYes && v2 == db.VerdictYes

	s.resolve(ctx, match, dateID, mutualYes)

	if mutualYes {
		return &Outcome{
			Result:       ResultMutualYes,
			Message:      "It's mutual! Chat is now open.",
			ChatUnlocked: true,
		}, nil
	}
	if v1 == db.VerdictNo || v2 == db.VerdictNo {
		return &Outcome{
			Result:  ResultNotMutual,
			Framing: FramingDeclined,
			Message: "This one didn't turn into a chat. Keep exploring!",
		}, nil
	}
	return &Outcome{
		Result:  ResultNotMutual,
		Framing: FramingPending,
		Message: "No decision this time. You can request another verity date whenever you're ready.",
	}, nil
}

// resolve runs the single-winner terminal side effects.
func (s *Service) resolve(ctx context.Context, match *db.Match, dateID uint64, mutualYes bool) {
	s.appCtx.Logger.Info("verity date resolved", "verity_date_id", dateID, "match_id", match.ID, "mutual_yes", mutualYes)

	if !mutualYes {
		return
	}

	unlocked, err := s.matchRepo.UnlockChat(ctx, match.ID)
	if err != nil {
		s.appCtx.Logger.Error("chat unlock failed", "match_id", match.ID, "err", err)
		return
	}
	if !unlocked {
		return
	}

	metrics.ChatUnlocksTotal.Inc()
	s.notifier.Notify(ctx, match.UserAID, notify.KindChatUnlocked, "Chat unlocked", "You both said yes. Say hi!", match.ID)
	s.notifier.Notify(ctx, match.UserBID, notify.KindChatUnlocked, "Chat unlocked", "You both said yes. Say hi!", match.ID)
	_ = s.bus.Publish(ctx, events.New(match.ID, events.KindChatUnlocked, 0, dateID))
}
