// Package services – ConversationService
//
// ConversationService issues the access tokens that let a recipient talk to
// an AI rendition of the sender, and runs each chat turn: it assembles the
// persona from the sender's delivered messages, replays the recent history
// oldest-first to the responder and stores the user/assistant pair
// atomically.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/llm"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

const (
	// HistoryLimit is how many prior chat messages are replayed per turn.
	HistoryLimit = 20
	// MemoryLimit is how many delivered messages feed the persona.
	MemoryLimit = 10

	maxChatRunes = 4000
	tokenBytes   = 32
)

// ConversationService runs AI conversations between recipients and senders.
type ConversationService struct {
	DB        *gorm.DB
	Responder llm.Responder

	// Timeout bounds one responder call; zero disables it.
	Timeout         time.Duration
	MaxOutputTokens int

	Now func() time.Time
}

func (s *ConversationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NewAccessToken returns 32 random bytes, base64url encoded without padding.
func NewAccessToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Start returns the access token for the conversation between the message's
// author and its recipient, creating the conversation on first use. The
// author, not the caller, must be on a paid plan.
func (s *ConversationService) Start(ctx context.Context, messageID string) (string, error) {
	ctx, span := otel.Tracer("services/ConversationService").Start(ctx, "Start",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	if strings.TrimSpace(messageID) == "" {
		return "", invalid("message_id", "is required")
	}
	m, err := repo.GetMessageWithSender(ctx, s.DB, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMessageNotFound
		}
		return "", err
	}
	if m.User.Plan == domain.PlanFree {
		return "", ErrPlanRequired
	}

	conv, err := s.getOrCreate(ctx, m.UserID, m.RecipientID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return conv.AccessToken, nil
}

func (s *ConversationService) getOrCreate(ctx context.Context, userID, recipientID string) (*domain.Conversation, error) {
	for attempt := 0; attempt < 2; attempt++ {
		conv, err := repo.GetConversationByPair(ctx, s.DB, userID, recipientID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		token, err := NewAccessToken()
		if err != nil {
			return nil, err
		}
		conv, err = repo.CreateConversation(ctx, s.DB, userID, recipientID, token)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		// Lost a race for the pair (or, improbably, the token); re-read.
	}
	return repo.GetConversationByPair(ctx, s.DB, userID, recipientID)
}

// Chat runs one turn of the conversation identified by token and returns
// the assistant's reply. Nothing is stored unless the responder produced
// text.
func (s *ConversationService) Chat(ctx context.Context, token, text string) (string, error) {
	ctx, span := otel.Tracer("services/ConversationService").Start(ctx, "Chat")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("message", "is required")
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		return "", invalid("message", "is too long")
	}
	conv, err := s.byToken(ctx, token)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	if s.Responder == nil {
		return "", ErrNotConfigured
	}

	history, err := repo.LastChatMessages(ctx, s.DB, conv.ID, HistoryLimit)
	if err != nil {
		return "", err
	}
	memories, err := repo.RecentDelivered(ctx, s.DB, conv.UserID, conv.RecipientID, MemoryLimit)
	if err != nil {
		return "", err
	}
	system := BuildPersona(conv.User.Name, conv.Recipient.Name, conv.Recipient.Relationship, memories)

	userAt := s.now()
	reply, err := s.complete(ctx, system, Turns(history), text)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateChatMessage(ctx, tx, conv.ID, domain.ChatRoleUser, text, userAt); err != nil {
			return err
		}
		replyAt := s.now()
		if replyAt.Before(userAt) {
			replyAt = userAt
		}
		if _, err := repo.CreateChatMessage(ctx, tx, conv.ID, domain.ChatRoleAssistant, reply, replyAt); err != nil {
			return err
		}
		return repo.TouchConversation(ctx, tx, conv.ID, replyAt)
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (s *ConversationService) complete(ctx context.Context, system string, history []llm.Turn, text string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	maxTokens := s.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	reply, err := s.Responder.Complete(ctx, system, history, text, llm.DefaultOptions(maxTokens))
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return "", fmt.Errorf("%w: %w", ErrNotConfigured, err)
		}
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrNoResponse
	}
	return reply, nil
}

// History returns a page of the conversation in creation order.
func (s *ConversationService) History(ctx context.Context, token string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	conv, err := s.byToken(ctx, token)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountChatMessages(ctx, s.DB, conv.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}
	items, err := repo.ListChatMessagesPage(ctx, s.DB, conv.ID, offset, limit)
	return items, total, err
}

func (s *ConversationService) byToken(ctx context.Context, token string) (*domain.Conversation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrConversationNotFound
	}
	conv, err := repo.GetConversationByToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// Turns orders chat messages oldest first, by (CreatedAt, ID), and maps
// them to responder turns role for role.
func Turns(msgs []domain.ChatMessage) []llm.Turn {
	sorted := make([]domain.ChatMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	out := make([]llm.Turn, 0, len(sorted))
	for _, m := range sorted {
		role := llm.RoleUser
		if m.Role == domain.ChatRoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Turn{Role: role, Content: m.Content})
	}
	return out
}
