package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event kinds emitted by the match lifecycle.
const (
	KindMatchCreated      = "match-created"
	KindDateAccepted      = "date-accepted"
	KindDateRescheduled   = "date-rescheduled"
	KindFeedbackSubmitted = "feedback-submitted"
	KindChatUnlocked      = "chat-unlocked"
	KindMessageCreated    = "message-created"
	KindMatchRemoved      = "match-removed"
)

// Event is a domain event on a match's channel. Delivery mechanism (poll,
// push, long-lived connection) is the subscriber's concern, not ours.
type Event struct {
	ID        string    `json:"id"`
	MatchID   uint64    `json:"matchId"`
	Kind      string    `json:"kind"`
	ActorID   uint64    `json:"actorId,omitempty"`
	RelatedID uint64    `json:"relatedId,omitempty"`
	At        time.Time `json:"at"`
}

// New builds an event with a fresh id and timestamp.
func New(matchID uint64, kind string, actorID, relatedID uint64) Event {
	return Event{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		Kind:      kind,
		ActorID:   actorID,
		RelatedID: relatedID,
		At:        time.Now().UTC(),
	}
}

// Bus fans domain events out to subscribers keyed by match id. Publishing
// is best-effort: a failed or absent delivery never affects the state
// transition that produced the event.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for the match and a cancel
	// function. The channel closes on cancel.
	Subscribe(ctx context.Context, matchID uint64) (<-chan Event, func(), error)
}
