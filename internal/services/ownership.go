package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

// owned is anything that records its owning user.
type owned interface {
	domain.Recipient | domain.Message
}

func ownerOf[T owned](v *T) string {
	switch x := any(v).(type) {
	case *domain.Recipient:
		return x.UserID
	case *domain.Message:
		return x.UserID
	}
	return ""
}

// assertOwner returns v when callerID owns it and notFound otherwise. A
// missing row and a foreign row produce the same error.
func assertOwner[T owned](v *T, err error, callerID string, notFound error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	if v == nil || callerID == "" || ownerOf(v) != callerID {
		return nil, notFound
	}
	return v, nil
}

// ownedRecipient loads a recipient the caller owns.
func ownedRecipient(ctx context.Context, db *gorm.DB, callerID, id string) (*domain.Recipient, error) {
	r, err := repo.GetRecipient(ctx, db, id)
	return assertOwner(r, err, callerID, ErrRecipientNotFound)
}

// ownedMessage loads a message the caller owns, recipient preloaded.
func ownedMessage(ctx context.Context, db *gorm.DB, callerID, id string) (*domain.Message, error) {
	m, err := repo.GetMessage(ctx, db, id)
	return assertOwner(m, err, callerID, ErrMessageNotFound)
}
