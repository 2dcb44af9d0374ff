package chat

import (
	"context"
	"strings"
	"time"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/db"
	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/events"
	"github.com/verityapp/verity-server/internal/metrics"
	"github.com/verityapp/verity-server/internal/notify"
	"github.com/verityapp/verity-server/internal/ratelimit"
	"github.com/verityapp/verity-server/internal/repository"
)

const maxMessageLen = 2000

// Service gates and persists chat. Messages only flow once a match's chat
// has been unlocked by a mutual-yes verity date.
type Service struct {
	appCtx      *app.AppContext
	matchRepo   *repository.MatchRepository
	messageRepo *repository.MessageRepository
	limiter     *ratelimit.Limiter
	notifier    notify.Notifier
	bus         events.Bus
}

func NewService(appCtx *app.AppContext, limiter *ratelimit.Limiter, notifier notify.Notifier, bus events.Bus) *Service {
	return &Service{
		appCtx:      appCtx,
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		limiter:     limiter,
		notifier:    notifier,
		bus:         bus,
	}
}

// MessageView is the caller-facing shape of a message.
type MessageView struct {
	ID        uint64    `json:"id"`
	MatchID   uint64    `json:"matchId"`
	SenderID  uint64    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewOf(m *db.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		MatchID:   m.MatchID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// Send persists a message on an unlocked match.
func (s *Service) Send(ctx context.Context, matchID, senderID uint64, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, svcErr.Validation("message content is required")
	}
	if len(content) > maxMessageLen {
		return nil, svcErr.Validationf("message exceeds %d characters", maxMessageLen)
	}

	match, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		if svcErr.Is(err, svcErr.KindNotFound) {
			return nil, svcErr.NotFound("match not found")
		}
		return nil, err
	}
	if !match.HasUser(senderID) {
		return nil, svcErr.Validation("caller is not part of this match")
	}
	if !match.ChatUnlocked {
		return nil, svcErr.Validation("chat unlocks after a mutual-yes verity date")
	}

	decision := s.limiter.Check(ctx, senderID, ratelimit.ActionSendMessage)
	if !decision.Allowed {
		return nil, svcErr.RateLimited("sending too fast, slow down")
	}

	message, err := s.messageRepo.Create(ctx, matchID, senderID, content)
	if err != nil {
		return nil, err
	}

	metrics.MessagesSentTotal.Inc()

	other := match.OtherUserID(senderID)
	s.notifier.Notify(ctx, other, notify.KindNewMessage, "New message", content, matchID)
	_ = s.bus.Publish(ctx, events.New(matchID, events.KindMessageCreated, senderID, message.ID))

	view := viewOf(message)
	return &view, nil
}

// List pages a match's messages newest first.
func (s *Service) List(ctx context.Context, matchID, callerID uint64, token *string, limit int) ([]MessageView, *string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	match, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		if svcErr.Is(err, svcErr.KindNotFound) {
			return nil, nil, svcErr.NotFound("match not found")
		}
		return nil, nil, err
	}
	if !match.HasUser(callerID) {
		return nil, nil, svcErr.Validation("caller is not part of this match")
	}

	messages, nextToken, err := s.messageRepo.ListByMatch(ctx, matchID, token, limit)
	if err != nil {
		return nil, nil, err
	}

	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, viewOf(&messages[i]))
	}
	return views, nextToken, nil
}
