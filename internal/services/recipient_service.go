// Package services – RecipientService
//
// RecipientService manages the contacts a user records messages for. Every
// read and mutation goes through the same ownership assertion, and deleting
// a recipient also deletes the messages addressed to them while keeping the
// owner's message counter in step.
package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

// RecipientRepo defines the persistence contract required by
// RecipientService. Every method accepts a *gorm.DB so it can run inside a
// transaction.
type RecipientRepo interface {
	CreateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error
	GetRecipient(ctx context.Context, db *gorm.DB, id string) (*domain.Recipient, error)
	CountRecipients(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	ListRecipientsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Recipient, error)
	UpdateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error
	DeleteRecipient(ctx context.Context, db *gorm.DB, id, userID string) error
	RecipientsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)

	// DeleteMessagesByRecipient removes the recipient's messages and
	// reports how many went away.
	DeleteMessagesByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error)
	// DeleteConversationsByRecipient drops the recipient's conversations
	// and their chat history.
	DeleteConversationsByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error)
	// DecrementMessageCount lowers the owner's counter by n.
	DecrementMessageCount(ctx context.Context, db *gorm.DB, userID string, n int64) error
}

// RecipientInput is the caller-supplied shape of a recipient.
type RecipientInput struct {
	Name         string
	Email        string
	Relationship domain.Relationship
	Birthday     *time.Time
}

// RecipientService provides owner-scoped recipient operations.
type RecipientService struct {
	DB   *gorm.DB
	Repo RecipientRepo
}

// NewRecipientService constructs a RecipientService.
func NewRecipientService(db *gorm.DB, r RecipientRepo) *RecipientService {
	return &RecipientService{DB: db, Repo: r}
}

// Create adds a recipient for userID. Emails are unique per owner.
func (s *RecipientService) Create(ctx context.Context, userID string, in RecipientInput) (*domain.Recipient, error) {
	ctx, span := otel.Tracer("services/RecipientService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	r, err := buildRecipient(in)
	if err != nil {
		return nil, err
	}
	r.UserID = userID
	if err := s.Repo.CreateRecipient(ctx, s.DB, r); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateRecipient
		}
		return nil, err
	}
	return r, nil
}

// Get returns a recipient the caller owns.
func (s *RecipientService) Get(ctx context.Context, userID, id string) (*domain.Recipient, error) {
	r, err := s.Repo.GetRecipient(ctx, s.DB, id)
	return assertOwner(r, err, userID, ErrRecipientNotFound)
}

// ListPage returns the caller's recipients ordered by name.
func (s *RecipientService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Recipient, int64, error) {
	ctx, span := otel.Tracer("services/RecipientService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := s.Repo.CountRecipients(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Recipient{}, 0, nil
	}
	items, err := s.Repo.ListRecipientsPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// Stats returns the caller's recipient count and latest update, for ETags.
func (s *RecipientService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return s.Repo.RecipientsStats(ctx, s.DB, userID)
}

// Update replaces the mutable fields of a recipient the caller owns.
func (s *RecipientService) Update(ctx context.Context, userID, id string, in RecipientInput) (*domain.Recipient, error) {
	ctx, span := otel.Tracer("services/RecipientService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("recipient.id", id)),
	)
	defer span.End()

	next, err := buildRecipient(in)
	if err != nil {
		return nil, err
	}
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	cur.Name, cur.Email, cur.Relationship, cur.Birthday = next.Name, next.Email, next.Relationship, next.Birthday
	if err := s.Repo.UpdateRecipient(ctx, s.DB, cur); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrDuplicateRecipient
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	return cur, nil
}

// Delete removes a recipient the caller owns together with the messages
// addressed to them and any conversations with them, decrementing the owner's counter by the number of
// messages removed. Everything happens in one transaction.
func (s *RecipientService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := otel.Tracer("services/RecipientService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("recipient.id", id)),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.Repo.GetRecipient(ctx, tx, id)
		if _, err := assertOwner(r, err, userID, ErrRecipientNotFound); err != nil {
			return err
		}
		if _, err := s.Repo.DeleteConversationsByRecipient(ctx, tx, id); err != nil {
			return err
		}
		n, err := s.Repo.DeleteMessagesByRecipient(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.Repo.DeleteRecipient(ctx, tx, id, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}
		return s.Repo.DecrementMessageCount(ctx, tx, userID, n)
	})
}

func buildRecipient(in RecipientInput) (*domain.Recipient, error) {
	name := normalizeTitle(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email", "is not a valid address")
	}
	rel := in.Relationship
	if rel == "" {
		rel = domain.RelationshipOther
	}
	if !rel.Valid() {
		return nil, invalid("relationship", "is not a known relationship")
	}
	r := &domain.Recipient{Name: name, Email: email, Relationship: rel}
	if in.Birthday != nil && !in.Birthday.IsZero() {
		b := in.Birthday.UTC()
		day := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
		r.Birthday = &day
	}
	return r, nil
}
