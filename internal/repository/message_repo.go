package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/verityapp/verity-server/internal/db"
	"github.com/verityapp/verity-server/internal/utils/pagination"
)

// MessageRepository provides data access for chat messages.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists a message.
func (r *MessageRepository) Create(ctx context.Context, matchID, senderID uint64, content string) (*db.Message, error) {
	message := db.Message{
		MatchID:  matchID,
		SenderID: senderID,
		Content:  content,
	}
	if err := r.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByMatch returns messages newest first with cursor pagination.
func (r *MessageRepository) ListByMatch(
	ctx context.Context,
	matchID uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("id DESC").
		Limit(limit + 1)

	if cursor.LastID > 0 {
		query = query.Where("id < ?", cursor.LastID)
	}

	var messages []db.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{LastID: last.ID})
		nextToken = &token
		messages = messages[:limit]
	}

	return messages, nextToken, nil
}
