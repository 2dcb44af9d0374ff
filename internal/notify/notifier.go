package notify

import (
	"context"
	"log/slog"
)

// Notification kinds used by the lifecycle.
const (
	KindNewMatch      = "new_match"
	KindDateAccepted  = "date_accepted"
	KindDateRescheduled = "date_rescheduled"
	KindChatUnlocked  = "chat_unlocked"
	KindDateResolved  = "date_resolved"
	KindNewMessage    = "new_message"
)

// Notifier is the push/toast delivery boundary. Delivery is fire-and-forget:
// implementations must never let a failed delivery roll back or block the
// state transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, kind, title, message string, relatedID uint64)
}

// LogNotifier writes notifications to the log. Stands in for the managed
// push service in development and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID uint64, kind, title, message string, relatedID uint64) {
	n.Logger.Info("notification",
		"user_id", userID,
		"kind", kind,
		"title", title,
		"message", message,
		"related_id", relatedID,
	)
}
