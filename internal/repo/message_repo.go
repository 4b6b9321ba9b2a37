// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: owner-scoped CRUD, the delivery sweep's candidate queries, and the
// conditional status transitions (delivered, viewed).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// CreateMessage inserts m, assigning its ID and timestamps. Associations are
// never written.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	now := time.Now().UTC()
	m.ID = uuid.NewString()
	m.CreatedAt, m.UpdatedAt = now, now
	if m.Status == "" {
		m.Status = domain.StatusScheduled
	}
	return db.WithContext(ctx).Omit("User", "Recipient").Create(m).Error
}

// GetMessage fetches a message by ID with its recipient preloaded.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Preload("Recipient").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessageWithSender fetches a message with both its recipient and author.
func GetMessageWithSender(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Preload("Recipient").
		Preload("User").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages returns the number of messages owned by userID.
func CountMessages(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a page of userID's messages, newest first, with
// recipients preloaded.
func ListMessagesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("Recipient").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateMessage persists the author-editable fields of m.
func UpdateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	m.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND user_id = ?", m.ID, m.UserID).
		Select("recipient_id", "title", "type", "content", "thumbnail", "duration",
			"delivery_type", "scheduled_date", "milestone", "status", "note", "updated_at").
		Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage removes a message owned by userID.
func DeleteMessage(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessagesByRecipient removes every message addressed to recipientID
// and returns how many rows went away.
func DeleteMessagesByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Delete(&domain.Message{})
	return res.RowsAffected, res.Error
}

// DueSpecificDate returns SCHEDULED SPECIFIC_DATE messages whose scheduled
// date is at or before now, with recipient and author preloaded.
func DueSpecificDate(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("Recipient").
		Preload("User").
		Where("status = ? AND delivery_type = ? AND scheduled_date IS NOT NULL AND scheduled_date <= ?",
			domain.StatusScheduled, domain.DeliverySpecificDate, now.UTC()).
		Order("scheduled_date ASC, id ASC").
		Find(&out).Error
	return out, err
}

// BirthdayCandidates returns SCHEDULED MILESTONE/BIRTHDAY messages whose
// recipient has a birthday on file. Matching the day is left to the caller.
func BirthdayCandidates(ctx context.Context, db *gorm.DB) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("Recipient").
		Preload("User").
		Joins("JOIN recipients ON recipients.id = messages.recipient_id").
		Where("messages.status = ? AND messages.delivery_type = ? AND messages.milestone = ? AND recipients.birthday IS NOT NULL",
			domain.StatusScheduled, domain.DeliveryMilestone, domain.MilestoneBirthday).
		Order("messages.id ASC").
		Find(&out).Error
	return out, err
}

// MarkDelivered moves a SCHEDULED message to DELIVERED. It reports false
// when the row was not SCHEDULED any more (already delivered, edited to a
// draft, or deleted) so concurrent sweeps cannot double-commit.
func MarkDelivered(ctx context.Context, db *gorm.DB, id string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status = ?", id, domain.StatusScheduled).
		Updates(map[string]any{
			"status":       domain.StatusDelivered,
			"delivered_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkViewed stamps viewed_at on a DELIVERED message the first time it is
// opened. Later calls leave the original timestamp untouched.
func MarkViewed(ctx context.Context, db *gorm.DB, id string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status = ? AND viewed_at IS NULL", id, domain.StatusDelivered).
		Update("viewed_at", at.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecentDelivered returns up to limit DELIVERED messages from userID to
// recipientID, most recently delivered first.
func RecentDelivered(ctx context.Context, db *gorm.DB, userID, recipientID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("user_id = ? AND recipient_id = ? AND status = ?", userID, recipientID, domain.StatusDelivered).
		Order("delivered_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
