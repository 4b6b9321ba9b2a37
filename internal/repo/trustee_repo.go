package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// GetTrusteeByUser returns the user's trustee or ErrNotFound.
func GetTrusteeByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Trustee, error) {
	var t domain.Trustee
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTrustee creates or replaces the single trustee of t.UserID and
// returns the stored row.
func UpsertTrustee(ctx context.Context, db *gorm.DB, t *domain.Trustee) (*domain.Trustee, error) {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	err := db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "relationship", "updated_at"}),
		}).
		Create(t).Error
	if err != nil {
		return nil, err
	}
	return GetTrusteeByUser(ctx, db, t.UserID)
}
