// Package handlers exposes the HelloForever REST API.
//
// Handlers are transport-thin: they bind and shape input, call application
// services, and translate results into HTTP responses. Every collaborator is
// an interface declared here so tests can swap in fakes.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/http/middleware"
	"github.com/tbourn/helloforever-backend/internal/services"
	"github.com/tbourn/helloforever-backend/internal/storage"
)

//
// Service contracts (context-aware)
//

// UserService manages accounts and plans.
type UserService interface {
	Register(ctx context.Context, name, email string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	ChangePlan(ctx context.Context, id string, plan domain.Plan) (*domain.User, error)
}

// RecipientService manages the caller's recipients.
type RecipientService interface {
	Create(ctx context.Context, userID string, in services.RecipientInput) (*domain.Recipient, error)
	Get(ctx context.Context, userID, id string) (*domain.Recipient, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Recipient, int64, error)
	// Stats returns the row count and latest update for ETag generation.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
	Update(ctx context.Context, userID, id string, in services.RecipientInput) (*domain.Recipient, error)
	Delete(ctx context.Context, userID, id string) error
}

// MessageService manages scheduled messages and their public view.
type MessageService interface {
	// CreateIdempotent creates a message; a repeated non-empty key returns
	// the original with replayed=true.
	CreateIdempotent(ctx context.Context, userID, key string, in services.MessageInput) (*domain.Message, bool, error)
	Get(ctx context.Context, userID, id string) (*domain.Message, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Message, int64, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
	Update(ctx context.Context, userID, id string, in services.MessageInput) (*domain.Message, error)
	Delete(ctx context.Context, userID, id string) error
	View(ctx context.Context, id string) (*domain.Message, error)
}

// TrusteeService stores the caller's trustee.
type TrusteeService interface {
	Get(ctx context.Context, userID string) (*domain.Trustee, error)
	Set(ctx context.Context, userID string, in services.TrusteeInput) (*domain.Trustee, error)
}

// ConversationService issues access tokens and runs chat turns.
type ConversationService interface {
	Start(ctx context.Context, messageID string) (string, error)
	Chat(ctx context.Context, token, text string) (string, error)
	History(ctx context.Context, token string, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

// SweepService runs one delivery sweep.
type SweepService interface {
	Run(ctx context.Context, now time.Time, trigger string) (*services.SweepResult, error)
}

//
// Handler wiring
//

// Deps lists the collaborators behind the API. Uploads may be nil when
// object storage is not configured; the endpoint then answers 503.
type Deps struct {
	Users         UserService
	Recipients    RecipientService
	Messages      MessageService
	Trustees      TrusteeService
	Conversations ConversationService
	Sweeps        SweepService
	Uploads       storage.Presigner
	// Now is the sweep clock; nil means time.Now.
	Now func() time.Time
}

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	users      UserService
	recipients RecipientService
	msgs       MessageService
	trustees   TrusteeService
	convs      ConversationService
	sweeps     SweepService
	uploads    storage.Presigner
	now        func() time.Time
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		users:      d.Users,
		recipients: d.Recipients,
		msgs:       d.Messages,
		trustees:   d.Trustees,
		convs:      d.Conversations,
		sweeps:     d.Sweeps,
		uploads:    d.Uploads,
		now:        now,
	}
}

// userID returns the caller id placed in the context by middleware.Identity.
// Routes that need it are mounted behind middleware.RequireUser.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}
