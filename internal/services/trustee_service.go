package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

// TrusteeInput is the caller-supplied shape of a trustee.
type TrusteeInput struct {
	Name         string
	Email        string
	Relationship string
}

// TrusteeService stores the single person who may later confirm a user's
// passing. Only the data shape lives here.
type TrusteeService struct {
	DB *gorm.DB
}

// Get returns the caller's trustee.
func (s *TrusteeService) Get(ctx context.Context, userID string) (*domain.Trustee, error) {
	t, err := repo.GetTrusteeByUser(ctx, s.DB, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrusteeNotFound
	}
	return t, err
}

// Set creates or replaces the caller's trustee.
func (s *TrusteeService) Set(ctx context.Context, userID string, in TrusteeInput) (*domain.Trustee, error) {
	name := normalizeTitle(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email", "is not a valid address")
	}
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.UpsertTrustee(ctx, s.DB, &domain.Trustee{
		UserID:       userID,
		Name:         name,
		Email:        email,
		Relationship: normalizeTitle(in.Relationship),
	})
}
