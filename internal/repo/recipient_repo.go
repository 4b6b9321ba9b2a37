package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// CreateRecipient inserts r, assigning its ID and timestamps. A second
// recipient with the same email for the same user yields ErrDuplicate.
func CreateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error {
	now := time.Now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt, r.UpdatedAt = now, now
	if err := db.WithContext(ctx).Omit("User").Create(r).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetRecipient fetches a recipient by ID regardless of owner. Ownership is
// asserted by the caller.
func GetRecipient(ctx context.Context, db *gorm.DB, id string) (*domain.Recipient, error) {
	var r domain.Recipient
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRecipients returns the number of recipients owned by userID.
func CountRecipients(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Recipient{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListRecipientsPage returns userID's recipients ordered by name, then ID.
func ListRecipientsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Recipient, error) {
	var out []domain.Recipient
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateRecipient persists the mutable fields of r.
func UpdateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error {
	r.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Recipient{}).
		Where("id = ? AND user_id = ?", r.ID, r.UserID).
		Select("name", "email", "relationship", "birthday", "updated_at").
		Updates(r)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecipient removes the recipient row. Messages and conversations go
// with it through ON DELETE CASCADE; callers that maintain the message
// counter delete messages explicitly first.
func DeleteRecipient(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Recipient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
