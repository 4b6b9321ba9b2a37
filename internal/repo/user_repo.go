// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model,
// including the denormalized message counter used by the quota gate.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - A taken email surfaces as ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// CreateUser inserts a FREE user with a zero message counter.
func CreateUser(ctx context.Context, db *gorm.DB, name, email string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Plan:      domain.PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by ID or returns ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserForUpdate fetches a user and takes a row lock on stores that
// support it. SQLite serializes writers and ignores the locking clause.
func GetUserForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserPlan sets the user's plan. Returns ErrNotFound when no row matched.
func UpdateUserPlan(ctx context.Context, db *gorm.DB, id string, plan domain.Plan) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("plan", plan)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementMessageCount adds one to the user's live message counter.
func IncrementMessageCount(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("message_count", gorm.Expr("message_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementMessageCount subtracts n from the counter, clamped at zero.
func DecrementMessageCount(ctx context.Context, db *gorm.DB, id string, n int64) error {
	if n <= 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("message_count", gorm.Expr("CASE WHEN message_count > ? THEN message_count - ? ELSE 0 END", n, n)).
		Error
}
