package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

func TestMessagesStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	if _, _, err := MessagesStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing messages table")
	}
}

func TestMessagesStats_ZeroRows(t *testing.T) {
	db := newTestDB(t)
	count, maxAt, err := MessagesStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("MessagesStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestMessagesStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "s1@example.com")
	other := seedUser(t, db, "s2@example.com")
	r := seedRecipient(t, db, u.ID, "x@example.com", nil)
	ro := seedRecipient(t, db, other.ID, "x@example.com", nil)

	m1 := seedMessage(t, db, domain.Message{UserID: u.ID, RecipientID: r.ID, DeliveryType: domain.DeliverySurprise})
	m2 := seedMessage(t, db, domain.Message{UserID: u.ID, RecipientID: r.ID, DeliveryType: domain.DeliverySurprise})
	mo := seedMessage(t, db, domain.Message{UserID: other.ID, RecipientID: ro.ID, DeliveryType: domain.DeliverySurprise})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	t3 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	db.Model(&domain.Message{}).Where("id = ?", m1.ID).UpdateColumn("updated_at", t1)
	db.Model(&domain.Message{}).Where("id = ?", m2.ID).UpdateColumn("updated_at", t2)
	db.Model(&domain.Message{}).Where("id = ?", mo.ID).UpdateColumn("updated_at", t3)

	count, maxAt, err := MessagesStats(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("MessagesStats error: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxAt)
	}
}

func TestRecipientsStats(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "rs@example.com")
	seedRecipient(t, db, u.ID, "a@example.com", nil)
	seedRecipient(t, db, u.ID, "b@example.com", nil)

	count, maxAt, err := RecipientsStats(context.Background(), db, u.ID)
	if err != nil || count != 2 || maxAt == nil {
		t.Fatalf("RecipientsStats = %d, %v, %v", count, maxAt, err)
	}
}
