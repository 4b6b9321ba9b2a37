package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

func TestConversation_CreateLookupAndUniqueness(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "c@example.com")
	r := seedRecipient(t, db, u.ID, "kid@example.com", nil)

	c, err := CreateConversation(ctx, db, u.ID, r.ID, "tok-1")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	byPair, err := GetConversationByPair(ctx, db, u.ID, r.ID)
	if err != nil || byPair.ID != c.ID || byPair.AccessToken != "tok-1" {
		t.Fatalf("GetConversationByPair = %+v, %v", byPair, err)
	}
	byTok, err := GetConversationByToken(ctx, db, "tok-1")
	if err != nil || byTok.ID != c.ID || byTok.Recipient.Email != "kid@example.com" || byTok.User.ID != u.ID {
		t.Fatalf("GetConversationByToken = %+v, %v", byTok, err)
	}

	if _, err := CreateConversation(ctx, db, u.ID, r.ID, "tok-2"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for same pair, got %v", err)
	}
	if _, err := GetConversationByToken(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func TestTouchConversation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "t@example.com")
	r := seedRecipient(t, db, u.ID, "kid@example.com", nil)
	c, _ := CreateConversation(ctx, db, u.ID, r.ID, "tok")

	at := time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := TouchConversation(ctx, db, c.ID, at); err != nil {
		t.Fatalf("TouchConversation: %v", err)
	}
	got, _ := GetConversationByPair(ctx, db, u.ID, r.ID)
	if !got.UpdatedAt.Equal(at) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, at)
	}
}

func TestChatMessages_LastAndPage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "cm@example.com")
	r := seedRecipient(t, db, u.ID, "kid@example.com", nil)
	c, _ := CreateConversation(ctx, db, u.ID, r.ID, "tok")

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		role := domain.ChatRoleUser
		if i%2 == 1 {
			role = domain.ChatRoleAssistant
		}
		if _, err := CreateChatMessage(ctx, db, c.ID, role, string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("CreateChatMessage: %v", err)
		}
	}

	last, err := LastChatMessages(ctx, db, c.ID, 3)
	if err != nil {
		t.Fatalf("LastChatMessages: %v", err)
	}
	if len(last) != 3 || last[0].Content != "e" || last[2].Content != "c" {
		t.Fatalf("unexpected newest-first slice: %+v", last)
	}

	total, _ := CountChatMessages(ctx, db, c.ID)
	page, err := ListChatMessagesPage(ctx, db, c.ID, 1, 2)
	if err != nil || total != 5 || len(page) != 2 || page[0].Content != "b" || page[1].Content != "c" {
		t.Fatalf("unexpected page: total=%d page=%+v err=%v", total, page, err)
	}
}

func TestChatMessages_SameInstantKeepsInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "same@example.com")
	r := seedRecipient(t, db, u.ID, "kid@example.com", nil)
	c, _ := CreateConversation(ctx, db, u.ID, r.ID, "tok")

	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := CreateChatMessage(ctx, db, c.ID, domain.ChatRoleUser, "q", at); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateChatMessage(ctx, db, c.ID, domain.ChatRoleAssistant, "a", at); err != nil {
		t.Fatal(err)
	}
	page, _ := ListChatMessagesPage(ctx, db, c.ID, 0, 10)
	if len(page) != 2 || page[0].Role != domain.ChatRoleUser || page[1].Role != domain.ChatRoleAssistant {
		t.Fatalf("expected USER then ASSISTANT, got %+v", page)
	}
}
