// Package services – MessageService
//
// MessageService owns the lifecycle of scheduled messages on behalf of their
// author: validated creation behind the quota gate, paginated listing,
// owner-only edits and deletes, and the public view action used by
// recipients. The user's message counter moves in the same transaction as
// the row it counts.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/delivery"
	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/repo"
	"github.com/tbourn/helloforever-backend/internal/utils"
)

// IdempotencyScopeMessages namespaces Idempotency-Key records for creates.
const IdempotencyScopeMessages = "messages"

const maxTitleRunes = 255

// MessageInput is the author-supplied shape of a message.
type MessageInput struct {
	Title         string
	Type          domain.MessageType
	RecipientID   string
	DeliveryType  domain.DeliveryType
	ScheduledDate *time.Time
	Milestone     *domain.Milestone
	Note          string
	Content       string
	Thumbnail     string
	Duration      *int
	// Status is DRAFT or SCHEDULED; empty means SCHEDULED.
	Status domain.Status
}

// MessageService coordinates message persistence and the quota gate.
type MessageService struct {
	DB *gorm.DB
	// IdempotencyTTL bounds how long an Idempotency-Key replays a create.
	IdempotencyTTL time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create validates in, asserts the recipient belongs to userID, applies the
// quota gate and inserts the message while incrementing the counter.
func (s *MessageService) Create(ctx context.Context, userID string, in MessageInput) (*domain.Message, error) {
	m, _, err := s.CreateIdempotent(ctx, userID, "", in)
	return m, err
}

// CreateIdempotent is Create keyed by an Idempotency-Key. A repeated key
// within the TTL returns the original message and replayed=true without
// touching the quota. An empty key behaves like Create.
func (s *MessageService) CreateIdempotent(ctx context.Context, userID, key string, in MessageInput) (m *domain.Message, replayed bool, err error) {
	ctx, span := otel.Tracer("services/MessageService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("recipient.id", in.RecipientID),
			attribute.Bool("idempotent", key != ""),
		),
	)
	defer span.End()

	if key != "" {
		if prev, ok, err := s.replay(ctx, userID, key); err != nil || ok {
			return prev, ok, err
		}
	}

	msg, err := buildMessage(in)
	if err != nil {
		return nil, false, err
	}
	msg.UserID = userID

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		rcp, err := ownedRecipient(ctx, tx, userID, msg.RecipientID)
		if err != nil {
			return err
		}
		if err := CheckQuota(u); err != nil {
			return err
		}
		if err := repo.CreateMessage(ctx, tx, msg); err != nil {
			return err
		}
		if err := repo.IncrementMessageCount(ctx, tx, userID); err != nil {
			return err
		}
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, userID, IdempotencyScopeMessages, key, msg.ID, http.StatusCreated, s.IdempotencyTTL); err != nil {
				return err
			}
		}
		msg.Recipient = *rcp
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) && key != "" {
		// A concurrent request with the same key won; serve its result.
		prev, ok, rerr := s.replay(ctx, userID, key)
		if rerr == nil && ok {
			return prev, true, nil
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	return msg, false, nil
}

func (s *MessageService) replay(ctx context.Context, userID, key string) (*domain.Message, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, IdempotencyScopeMessages, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m, err := ownedMessage(ctx, s.DB, userID, rec.ResourceID)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Get returns a message the caller owns.
func (s *MessageService) Get(ctx context.Context, userID, id string) (*domain.Message, error) {
	ctx, span := otel.Tracer("services/MessageService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("message.id", id)),
	)
	defer span.End()
	return ownedMessage(ctx, s.DB, userID, id)
}

// ListPage returns the caller's messages, newest first, with the total.
func (s *MessageService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Message, int64, error) {
	ctx, span := otel.Tracer("services/MessageService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountMessages(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// Stats returns the caller's message count and latest update, for ETags.
func (s *MessageService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, s.DB, userID)
}

// Update replaces the editable fields of a message the caller owns. The
// input is validated as on create and delivered messages are frozen.
func (s *MessageService) Update(ctx context.Context, userID, id string, in MessageInput) (*domain.Message, error) {
	ctx, span := otel.Tracer("services/MessageService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("message.id", id)),
	)
	defer span.End()

	next, err := buildMessage(in)
	if err != nil {
		return nil, err
	}

	var out *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := ownedMessage(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if cur.Status == domain.StatusDelivered {
			return ErrAlreadyDelivered
		}
		if next.RecipientID != cur.RecipientID {
			if _, err := ownedRecipient(ctx, tx, userID, next.RecipientID); err != nil {
				return err
			}
		}
		next.ID, next.UserID = cur.ID, cur.UserID
		if err := repo.UpdateMessage(ctx, tx, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		out, err = repo.GetMessage(ctx, tx, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// Delete removes a message the caller owns and decrements the counter.
func (s *MessageService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := otel.Tracer("services/MessageService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("message.id", id)),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedMessage(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := repo.DeleteMessage(ctx, tx, id, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		return repo.DecrementMessageCount(ctx, tx, userID, 1)
	})
}

// View is the recipient's public read of a delivered message. The first
// view stamps viewed_at; later views keep the original time. Messages that
// are not delivered yet are reported as not found.
func (s *MessageService) View(ctx context.Context, id string) (*domain.Message, error) {
	ctx, span := otel.Tracer("services/MessageService").Start(ctx, "View",
		trace.WithAttributes(attribute.String("message.id", id)),
	)
	defer span.End()

	m, err := repo.GetMessageWithSender(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if m.Status != domain.StatusDelivered {
		return nil, ErrMessageNotFound
	}
	if m.ViewedAt == nil {
		now := s.now()
		marked, err := repo.MarkViewed(ctx, s.DB, id, now)
		if err != nil {
			return nil, err
		}
		if marked {
			m.ViewedAt = &now
		} else if fresh, err := repo.GetMessage(ctx, s.DB, id); err == nil {
			m.ViewedAt = fresh.ViewedAt
		}
	}
	return m, nil
}

// buildMessage validates in and returns the message it describes. Fields
// irrelevant to the delivery type are cleared.
func buildMessage(in MessageInput) (*domain.Message, error) {
	title := normalizeTitle(in.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, invalid("title", "is too long")
	}
	if !in.Type.Valid() {
		return nil, invalid("type", "must be one of VIDEO, AUDIO, TEXT")
	}
	if strings.TrimSpace(in.RecipientID) == "" {
		return nil, invalid("recipient_id", "is required")
	}
	if !in.DeliveryType.Valid() {
		return nil, invalid("delivery_type", "must be one of SPECIFIC_DATE, UPON_PASSING, MILESTONE, SURPRISE")
	}
	if in.Duration != nil && *in.Duration < 0 {
		return nil, invalid("duration", "must not be negative")
	}
	status := in.Status
	if status == "" {
		status = domain.StatusScheduled
	}
	if status != domain.StatusScheduled && status != domain.StatusDraft {
		return nil, invalid("status", "must be DRAFT or SCHEDULED")
	}

	m := &domain.Message{
		RecipientID:  strings.TrimSpace(in.RecipientID),
		Title:        title,
		Type:         in.Type,
		Content:      strings.TrimSpace(in.Content),
		Thumbnail:    strings.TrimSpace(in.Thumbnail),
		Duration:     in.Duration,
		DeliveryType: in.DeliveryType,
		Status:       status,
		Note:         strings.TrimSpace(in.Note),
	}
	switch in.DeliveryType {
	case domain.DeliverySpecificDate:
		if in.ScheduledDate == nil || in.ScheduledDate.IsZero() {
			return nil, invalid("scheduled_date", "is required for SPECIFIC_DATE delivery")
		}
		at := in.ScheduledDate.UTC()
		m.ScheduledDate = &at
	case domain.DeliveryMilestone:
		if in.Milestone == nil || *in.Milestone == "" {
			return nil, invalid("milestone", "is required for MILESTONE delivery")
		}
		if !in.Milestone.Valid() {
			return nil, invalid("milestone", "is not a known milestone")
		}
		ms := *in.Milestone
		m.Milestone = &ms
	}
	if _, err := delivery.ScheduleOf(*m); err != nil {
		return nil, invalid("delivery_type", err.Error())
	}
	return m, nil
}

// pageWindow converts a 1-based page into an offset/limit pair.
func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return utils.Offset(page, pageSize), pageSize
}

// normalizeTitle trims whitespace and collapses runs of spaces to one.
func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
