package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/llm"
	"github.com/tbourn/helloforever-backend/internal/lock"
	"github.com/tbourn/helloforever-backend/internal/notify"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps shared-cache table locks out of the picture.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustUser(t *testing.T, db *gorm.DB, email string, plan domain.Plan) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, "Alice "+email, email)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if plan != domain.PlanFree {
		if err := repo.UpdateUserPlan(context.Background(), db, u.ID, plan); err != nil {
			t.Fatalf("update plan: %v", err)
		}
		u.Plan = plan
	}
	return u
}

func mustRecipient(t *testing.T, db *gorm.DB, userID, email string, birthday *time.Time) *domain.Recipient {
	t.Helper()
	r := &domain.Recipient{
		UserID:       userID,
		Name:         "Ben",
		Email:        email,
		Relationship: domain.RelationshipChild,
		Birthday:     birthday,
	}
	if err := repo.CreateRecipient(context.Background(), db, r); err != nil {
		t.Fatalf("create recipient: %v", err)
	}
	return r
}

// mustMessage inserts m directly, bypassing the quota gate.
func mustMessage(t *testing.T, db *gorm.DB, m domain.Message) *domain.Message {
	t.Helper()
	if m.Title == "" {
		m.Title = "Hello"
	}
	if m.Type == "" {
		m.Type = domain.MessageTypeText
	}
	if m.DeliveryType == "" {
		m.DeliveryType = domain.DeliverySurprise
	}
	if err := repo.CreateMessage(context.Background(), db, &m); err != nil {
		t.Fatalf("create message: %v", err)
	}
	return &m
}

func reloadUser(t *testing.T, db *gorm.DB, id string) *domain.User {
	t.Helper()
	u, err := repo.GetUser(context.Background(), db, id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func reloadMessage(t *testing.T, db *gorm.DB, id string) *domain.Message {
	t.Helper()
	m, err := repo.GetMessage(context.Background(), db, id)
	if err != nil {
		t.Fatalf("reload message: %v", err)
	}
	return m
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func tptr(t time.Time) *time.Time { return &t }

func mptr(m domain.Milestone) *domain.Milestone { return &m }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// ---------- fakes ----------

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []notify.Delivery
	failOn map[string]error
	hook   func(d notify.Delivery)
}

func (f *fakeNotifier) Send(_ context.Context, d notify.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, d)
	if f.hook != nil {
		f.hook(d)
	}
	if err, ok := f.failOn[d.MessageID]; ok {
		return err
	}
	return nil
}

func (f *fakeNotifier) sentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, d := range f.sent {
		out = append(out, d.MessageID)
	}
	return out
}

type fakeResponder struct {
	reply string
	err   error

	calls   int
	system  string
	history []llm.Turn
	text    string
	opts    llm.Options
}

func (f *fakeResponder) Complete(_ context.Context, system string, history []llm.Turn, text string, opts llm.Options) (string, error) {
	f.calls++
	f.system, f.history, f.text, f.opts = system, history, text, opts
	return f.reply, f.err
}

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (lock.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.held {
		return nil, lock.ErrHeld
	}
	f.held = true
	return func(context.Context) error {
		f.held = false
		f.released++
		return nil
	}, nil
}

// sqlRecipientRepo forwards to the repo package.
type sqlRecipientRepo struct{}

func (sqlRecipientRepo) CreateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error {
	return repo.CreateRecipient(ctx, db, r)
}
func (sqlRecipientRepo) GetRecipient(ctx context.Context, db *gorm.DB, id string) (*domain.Recipient, error) {
	return repo.GetRecipient(ctx, db, id)
}
func (sqlRecipientRepo) CountRecipients(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountRecipients(ctx, db, userID)
}
func (sqlRecipientRepo) ListRecipientsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Recipient, error) {
	return repo.ListRecipientsPage(ctx, db, userID, offset, limit)
}
func (sqlRecipientRepo) UpdateRecipient(ctx context.Context, db *gorm.DB, r *domain.Recipient) error {
	return repo.UpdateRecipient(ctx, db, r)
}
func (sqlRecipientRepo) DeleteRecipient(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteRecipient(ctx, db, id, userID)
}
func (sqlRecipientRepo) RecipientsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.RecipientsStats(ctx, db, userID)
}
func (sqlRecipientRepo) DeleteMessagesByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	return repo.DeleteMessagesByRecipient(ctx, db, recipientID)
}
func (sqlRecipientRepo) DeleteConversationsByRecipient(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	return repo.DeleteConversationsByRecipient(ctx, db, recipientID)
}
func (sqlRecipientRepo) DecrementMessageCount(ctx context.Context, db *gorm.DB, userID string, n int64) error {
	return repo.DecrementMessageCount(ctx, db, userID, n)
}
