package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

func textInput(recipientID string) MessageInput {
	return MessageInput{
		Title:        "  For   your wedding ",
		Type:         domain.MessageTypeText,
		RecipientID:  recipientID,
		DeliveryType: domain.DeliverySurprise,
		Content:      "I am so proud of you.",
	}
}

// ---------- validation ----------

func TestBuildMessage_Validation(t *testing.T) {
	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	bad := domain.Milestone("PROMOTION")
	cases := []struct {
		name  string
		mut   func(in *MessageInput)
		field string
	}{
		{"empty title", func(in *MessageInput) { in.Title = "   " }, "title"},
		{"long title", func(in *MessageInput) { in.Title = strings.Repeat("x", 256) }, "title"},
		{"bad type", func(in *MessageInput) { in.Type = "IMAGE" }, "type"},
		{"missing recipient", func(in *MessageInput) { in.RecipientID = " " }, "recipient_id"},
		{"bad delivery type", func(in *MessageInput) { in.DeliveryType = "TOMORROW" }, "delivery_type"},
		{"specific date without date", func(in *MessageInput) { in.DeliveryType = domain.DeliverySpecificDate }, "scheduled_date"},
		{"milestone without milestone", func(in *MessageInput) { in.DeliveryType = domain.DeliveryMilestone }, "milestone"},
		{"unknown milestone", func(in *MessageInput) {
			in.DeliveryType = domain.DeliveryMilestone
			in.Milestone = &bad
		}, "milestone"},
		{"negative duration", func(in *MessageInput) { d := -1; in.Duration = &d }, "duration"},
		{"delivered status", func(in *MessageInput) { in.Status = domain.StatusDelivered }, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := textInput("r1")
			in.ScheduledDate = nil
			tc.mut(&in)
			_, err := buildMessage(in)
			var ve *ValidationError
			if !errors.As(err, &ve) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}

	t.Run("clears fields foreign to the delivery type", func(t *testing.T) {
		in := textInput("r1")
		in.ScheduledDate = &at
		in.Milestone = mptr(domain.MilestoneBirthday)
		m, err := buildMessage(in)
		if err != nil {
			t.Fatalf("unexpected: %v", err)
		}
		if m.ScheduledDate != nil || m.Milestone != nil {
			t.Fatalf("expected schedule fields cleared, got %+v", m)
		}
		if m.Title != "For your wedding" || m.Status != domain.StatusScheduled {
			t.Fatalf("normalization failed: %+v", m)
		}
	})
}

// ---------- Create / quota ----------

func TestCreate_QuotaGate_FreeUser(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "free@example.com", domain.PlanFree)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	s := &MessageService{DB: db}
	ctx := context.Background()

	// Start at one existing message.
	if _, err := s.Create(ctx, u.ID, textInput(r.ID)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	m2, err := s.Create(ctx, u.ID, textInput(r.ID))
	if err != nil {
		t.Fatalf("second create (count 1 -> 2) must pass: %v", err)
	}
	if m2.Recipient.ID != r.ID || m2.Recipient.Email != "ben@example.com" {
		t.Fatalf("expected recipient summary, got %+v", m2.Recipient)
	}
	if got := reloadUser(t, db, u.ID).MessageCount; got != 2 {
		t.Fatalf("message_count = %d, want 2", got)
	}

	if _, err := s.Create(ctx, u.ID, textInput(r.ID)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("third create: expected ErrQuotaExceeded, got %v", err)
	}
	if got := countRows(t, db, &domain.Message{}); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
	if got := reloadUser(t, db, u.ID).MessageCount; got != 2 {
		t.Fatalf("message_count after rejection = %d, want 2", got)
	}
}

func TestCreate_QuotaGate_PremiumNeverBlocked(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "rich@example.com", domain.PlanPremium)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	if err := db.Model(&domain.User{}).Where("id = ?", u.ID).Update("message_count", 1000).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	s := &MessageService{DB: db}
	if _, err := s.Create(context.Background(), u.ID, textInput(r.ID)); err != nil {
		t.Fatalf("premium create: %v", err)
	}
	if got := reloadUser(t, db, u.ID).MessageCount; got != 1001 {
		t.Fatalf("message_count = %d, want 1001", got)
	}
}

func TestCreate_ForeignRecipientRejected(t *testing.T) {
	db := newSvcDB(t)
	alice := mustUser(t, db, "alice@example.com", domain.PlanPremium)
	mallory := mustUser(t, db, "mallory@example.com", domain.PlanPremium)
	r := mustRecipient(t, db, alice.ID, "ben@example.com", nil)
	s := &MessageService{DB: db}

	_, err := s.Create(context.Background(), mallory.ID, textInput(r.ID))
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
	if got := countRows(t, db, &domain.Message{}); got != 0 {
		t.Fatalf("rows = %d, want 0", got)
	}
	if got := reloadUser(t, db, mallory.ID).MessageCount; got != 0 {
		t.Fatalf("counter moved: %d", got)
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	db := newSvcDB(t)
	s := &MessageService{DB: db}
	if _, err := s.Create(context.Background(), "ghost", textInput("r1")); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateIdempotent_ReplaysWithoutChargingQuota(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "free@example.com", domain.PlanFree)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	s := &MessageService{DB: db, IdempotencyTTL: time.Hour}
	ctx := context.Background()

	first, replayed, err := s.CreateIdempotent(ctx, u.ID, "key-1", textInput(r.ID))
	if err != nil || replayed {
		t.Fatalf("first: replayed=%v err=%v", replayed, err)
	}
	second, replayed, err := s.CreateIdempotent(ctx, u.ID, "key-1", textInput(r.ID))
	if err != nil || !replayed {
		t.Fatalf("second: replayed=%v err=%v", replayed, err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay returned %s, want %s", second.ID, first.ID)
	}
	if got := reloadUser(t, db, u.ID).MessageCount; got != 1 {
		t.Fatalf("message_count = %d, want 1", got)
	}

	// Keys are per user: another user's key never replays this message.
	other := mustUser(t, db, "other@example.com", domain.PlanFree)
	or := mustRecipient(t, db, other.ID, "ben@example.com", nil)
	m, replayed, err := s.CreateIdempotent(ctx, other.ID, "key-1", textInput(or.ID))
	if err != nil || replayed || m.ID == first.ID {
		t.Fatalf("cross-user key leaked: replayed=%v err=%v", replayed, err)
	}
}

// ---------- Get / List ----------

func TestGetAndList_OwnerScoped(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "a@example.com", domain.PlanPremium)
	other := mustUser(t, db, "b@example.com", domain.PlanPremium)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	s := &MessageService{DB: db}
	ctx := context.Background()

	var last *domain.Message
	for i := 0; i < 3; i++ {
		m, err := s.Create(ctx, u.ID, textInput(r.ID))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		last = m
	}

	if _, err := s.Get(ctx, other.ID, last.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("foreign get: expected ErrMessageNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, u.ID, "missing"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing get: expected ErrMessageNotFound, got %v", err)
	}

	items, total, err := s.ListPage(ctx, u.ID, 1, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("page 1: total=%d len=%d err=%v", total, len(items), err)
	}
	items, _, _ = s.ListPage(ctx, u.ID, 2, 2)
	if len(items) != 1 {
		t.Fatalf("page 2 len = %d, want 1", len(items))
	}
	items, total, err = s.ListPage(ctx, other.ID, 0, 0)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty list: items=%v total=%d err=%v", items, total, err)
	}
}

// ---------- Update ----------

func TestUpdate_RevalidatesAndFreezesDelivered(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "a@example.com", domain.PlanPremium)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	r2 := mustRecipient(t, db, u.ID, "cara@example.com", nil)
	s := &MessageService{DB: db}
	ctx := context.Background()

	m, err := s.Create(ctx, u.ID, textInput(r.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := textInput(r2.ID)
	in.DeliveryType = domain.DeliverySpecificDate
	if _, err := s.Update(ctx, u.ID, m.ID, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	at := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	in.ScheduledDate = &at
	in.Title = "Graduation"
	got, err := s.Update(ctx, u.ID, m.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Graduation" || got.RecipientID != r2.ID || got.ScheduledDate == nil || !got.ScheduledDate.Equal(at) {
		t.Fatalf("update not applied: %+v", got)
	}

	stranger := mustUser(t, db, "x@example.com", domain.PlanPremium)
	foreign := mustRecipient(t, db, stranger.ID, "z@example.com", nil)
	in.RecipientID = foreign.ID
	if _, err := s.Update(ctx, u.ID, m.ID, in); !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("retarget to foreign recipient: got %v", err)
	}
	if _, err := s.Update(ctx, stranger.ID, m.ID, textInput(foreign.ID)); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("foreign update: got %v", err)
	}

	if _, err := repo.MarkDelivered(ctx, db, m.ID, time.Now()); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if _, err := s.Update(ctx, u.ID, m.ID, textInput(r.ID)); !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("expected ErrAlreadyDelivered, got %v", err)
	}
}

// ---------- Delete ----------

func TestDelete_DecrementsCounterAndFreesQuota(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "free@example.com", domain.PlanFree)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	s := &MessageService{DB: db}
	ctx := context.Background()

	m1, _ := s.Create(ctx, u.ID, textInput(r.ID))
	if _, err := s.Create(ctx, u.ID, textInput(r.ID)); err != nil {
		t.Fatalf("create 2: %v", err)
	}

	other := mustUser(t, db, "o@example.com", domain.PlanFree)
	if err := s.Delete(ctx, other.ID, m1.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("foreign delete: got %v", err)
	}

	if err := s.Delete(ctx, u.ID, m1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := reloadUser(t, db, u.ID).MessageCount; got != 1 {
		t.Fatalf("message_count = %d, want 1", got)
	}
	if _, err := s.Create(ctx, u.ID, textInput(r.ID)); err != nil {
		t.Fatalf("create after delete should pass: %v", err)
	}
	if err := s.Delete(ctx, u.ID, m1.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}

// ---------- View ----------

func TestView_OnlyDeliveredAndStampsOnce(t *testing.T) {
	db := newSvcDB(t)
	u := mustUser(t, db, "a@example.com", domain.PlanFree)
	r := mustRecipient(t, db, u.ID, "ben@example.com", nil)
	m := mustMessage(t, db, domain.Message{UserID: u.ID, RecipientID: r.ID, Note: "private"})
	ctx := context.Background()

	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := &MessageService{DB: db, Now: fixedClock(first)}

	if _, err := s.View(ctx, m.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("scheduled view: expected not found, got %v", err)
	}
	if _, err := s.View(ctx, "nope"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing view: got %v", err)
	}

	if _, err := repo.MarkDelivered(ctx, db, m.ID, first.Add(-time.Hour)); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	got, err := s.View(ctx, m.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got.ViewedAt == nil || !got.ViewedAt.Equal(first) {
		t.Fatalf("viewed_at = %v, want %v", got.ViewedAt, first)
	}
	if got.User.Name == "" {
		t.Fatalf("expected sender to be loaded")
	}

	s.Now = fixedClock(first.Add(24 * time.Hour))
	again, err := s.View(ctx, m.ID)
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if !again.ViewedAt.Equal(first) {
		t.Fatalf("viewed_at moved to %v", again.ViewedAt)
	}
	if stored := reloadMessage(t, db, m.ID); !stored.ViewedAt.Equal(first) {
		t.Fatalf("stored viewed_at = %v", stored.ViewedAt)
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := normalizeTitle("  a \t b\n\nc  "); got != "a b c" {
		t.Fatalf("normalizeTitle = %q", got)
	}
}

func TestPageWindow(t *testing.T) {
	if o, l := pageWindow(0, 0); o != 0 || l != 20 {
		t.Fatalf("defaults: %d,%d", o, l)
	}
	if o, l := pageWindow(3, 10); o != 20 || l != 10 {
		t.Fatalf("page 3: %d,%d", o, l)
	}
}
