package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// GetConversationByPair returns the conversation between userID and
// recipientID, or ErrNotFound.
func GetConversationByPair(ctx context.Context, db *gorm.DB, userID, recipientID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("user_id = ? AND recipient_id = ?", userID, recipientID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversationByToken resolves an access token. The recipient is
// preloaded for persona assembly.
func GetConversationByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Preload("Recipient").
		Preload("User").
		Where("access_token = ?", token).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation inserts a conversation for the pair with token. A lost
// race on either unique index yields ErrDuplicate.
func CreateConversation(ctx context.Context, db *gorm.DB, userID, recipientID, token string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		RecipientID: recipientID,
		AccessToken: token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Omit("User", "Recipient").Create(c).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// TouchConversation bumps updated_at.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at.UTC()).Error
}

// DeleteConversationsByRecipient removes every conversation with
// recipientID and their chat messages, invalidating their access tokens.
func DeleteConversationsByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	ids := db.Model(&domain.Conversation{}).Select("id").Where("recipient_id = ?", recipientID)
	if err := db.WithContext(ctx).
		Where("conversation_id IN (?)", ids).
		Delete(&domain.ChatMessage{}).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Delete(&domain.Conversation{})
	return res.RowsAffected, res.Error
}
