package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func migrateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.AutoMigrate(&User{}, &Recipient{}, &Message{}, &Trustee{}, &Conversation{}, &ChatMessage{}, &Idempotency{}, &DeliveryRun{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
}

func TestTableNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{User{}.TableName(), "users"},
		{Recipient{}.TableName(), "recipients"},
		{Message{}.TableName(), "messages"},
		{Trustee{}.TableName(), "trustees"},
		{Conversation{}.TableName(), "conversations"},
		{ChatMessage{}.TableName(), "chat_messages"},
		{Idempotency{}.TableName(), "idempotency"},
		{DeliveryRun{}.TableName(), "delivery_runs"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("TableName() = %q; want %q", c.got, c.want)
		}
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)
	migrateAll(t, db)
	m := db.Migrator()

	for _, idx := range []struct {
		model any
		name  string
	}{
		{&User{}, "ux_users_email"},
		{&Recipient{}, "ux_recipients_user_email"},
		{&Message{}, "idx_messages_due"},
		{&Trustee{}, "ux_trustees_user"},
		{&Conversation{}, "ux_conversations_pair"},
		{&Conversation{}, "ux_conversations_token"},
		{&ChatMessage{}, "idx_conversation_msgs"},
	} {
		if !m.HasIndex(idx.model, idx.name) {
			t.Fatalf("expected index %s on %T", idx.name, idx.model)
		}
	}

	now := time.Now().UTC()
	u := &User{ID: "u1", Name: "Ann", Email: "ann@example.com", Plan: PlanPremium, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	r := &Recipient{ID: "r1", UserID: "u1", Name: "Bo", Email: "bo@example.com", Relationship: RelationshipChild, CreatedAt: now, UpdatedAt: now}
	if err := db.Omit("User").Create(r).Error; err != nil {
		t.Fatalf("insert recipient: %v", err)
	}
	msg := &Message{ID: "m1", UserID: "u1", RecipientID: "r1", Title: "Hi", Type: MessageTypeText,
		DeliveryType: DeliveryUponPassing, Status: StatusScheduled, CreatedAt: now, UpdatedAt: now}
	if err := db.Omit("User", "Recipient").Create(msg).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}
	conv := &Conversation{ID: "c1", UserID: "u1", RecipientID: "r1", AccessToken: "tok", CreatedAt: now, UpdatedAt: now}
	if err := db.Omit("User", "Recipient").Create(conv).Error; err != nil {
		t.Fatalf("insert conversation: %v", err)
	}
	cm := &ChatMessage{ID: "cm1", ConversationID: "c1", Role: ChatRoleUser, Content: "hello", CreatedAt: now}
	if err := db.Omit("Conversation").Create(cm).Error; err != nil {
		t.Fatalf("insert chat message: %v", err)
	}

	// CASCADE: deleting the recipient removes its messages, conversation and chat history.
	if err := db.Delete(&Recipient{}, "id = ?", "r1").Error; err != nil {
		t.Fatalf("delete recipient: %v", err)
	}
	for _, model := range []any{&Message{}, &Conversation{}, &ChatMessage{}} {
		var cnt int64
		if err := db.Model(model).Count(&cnt).Error; err != nil {
			t.Fatalf("count %T: %v", model, err)
		}
		if cnt != 0 {
			t.Fatalf("expected %T to cascade-delete with recipient, got count=%d", model, cnt)
		}
	}
}

func TestChecks_RejectUnknownEnums(t *testing.T) {
	db := newDomainDB(t)
	migrateAll(t, db)
	now := time.Now().UTC()

	if err := db.Create(&User{ID: "u1", Name: "A", Email: "a@x.io", Plan: "GOLD", CreatedAt: now, UpdatedAt: now}).Error; err == nil {
		t.Fatalf("expected plan check to fail")
	}
	if err := db.Create(&User{ID: "u2", Name: "B", Email: "b@x.io", Plan: PlanFree, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := db.Omit("User").Create(&Recipient{ID: "r1", UserID: "u2", Name: "R", Email: "r@x.io", Relationship: "COUSIN", CreatedAt: now, UpdatedAt: now}).Error; err == nil {
		t.Fatalf("expected relationship check to fail")
	}
	if err := db.Omit("User").Create(&Recipient{ID: "r2", UserID: "u2", Name: "R", Email: "r@x.io", Relationship: RelationshipOther, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert recipient: %v", err)
	}
	bad := &Message{ID: "m1", UserID: "u2", RecipientID: "r2", Title: "t", Type: MessageTypeText,
		DeliveryType: DeliverySurprise, Status: "ARCHIVED", CreatedAt: now, UpdatedAt: now}
	if err := db.Omit("User", "Recipient").Create(bad).Error; err == nil {
		t.Fatalf("expected status check to fail")
	}
}
