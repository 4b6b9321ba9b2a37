package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// newTestDB opens a unique in-memory database per test. With no models the
// full schema is migrated.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) == 0 {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	} else if err := db.AutoMigrate(migrate...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, "User "+email, email)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedRecipient(t *testing.T, db *gorm.DB, userID, email string, birthday *time.Time) *domain.Recipient {
	t.Helper()
	r := &domain.Recipient{UserID: userID, Name: "R " + email, Email: email, Relationship: domain.RelationshipChild, Birthday: birthday}
	if err := CreateRecipient(context.Background(), db, r); err != nil {
		t.Fatalf("seed recipient: %v", err)
	}
	return r
}

func seedMessage(t *testing.T, db *gorm.DB, m domain.Message) *domain.Message {
	t.Helper()
	if m.Title == "" {
		m.Title = "title"
	}
	if m.Type == "" {
		m.Type = domain.MessageTypeText
	}
	if err := CreateMessage(context.Background(), db, &m); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return &m
}

func tptr(t time.Time) *time.Time { return &t }

func mptr(m domain.Milestone) *domain.Milestone { return &m }
