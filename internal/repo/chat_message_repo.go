package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// CreateChatMessage appends an utterance to a conversation. IDs are UUIDv7
// so rows written in the same instant still sort in insertion order.
func CreateChatMessage(ctx context.Context, db *gorm.DB, conversationID string, role domain.ChatRole, content string, at time.Time) (*domain.ChatMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	m := &domain.ChatMessage{
		ID:             id.String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      at.UTC(),
	}
	if err := db.WithContext(ctx).Omit("Conversation").Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// LastChatMessages returns the newest limit messages of a conversation,
// newest first. Callers reorder for chronological use.
func LastChatMessages(ctx context.Context, db *gorm.DB, conversationID string, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountChatMessages returns the number of messages in a conversation.
func CountChatMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error
	return total, err
}

// ListChatMessagesPage returns a page ordered (CreatedAt ASC, ID ASC).
func ListChatMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
