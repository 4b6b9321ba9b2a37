package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

// UserService registers accounts and changes their plan. Payment capture
// happens elsewhere; ChangePlan records the outcome.
type UserService struct {
	DB *gorm.DB
}

// Register creates a FREE account with a zero message counter.
func (s *UserService) Register(ctx context.Context, name, email string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "Register")
	defer span.End()

	name = normalizeTitle(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email", "is not a valid address")
	}
	u, err := repo.CreateUser(ctx, s.DB, name, email)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	return u, err
}

// Get returns the user's profile.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ChangePlan moves the user to plan. Downgrading to FREE keeps existing
// messages; the quota gate only blocks new ones.
func (s *UserService) ChangePlan(ctx context.Context, id string, plan domain.Plan) (*domain.User, error) {
	ctx, span := otel.Tracer("services/UserService").Start(ctx, "ChangePlan",
		trace.WithAttributes(
			attribute.String("user.id", id),
			attribute.String("plan", string(plan)),
		),
	)
	defer span.End()

	if !plan.Valid() {
		return nil, invalid("plan", "must be one of FREE, PREMIUM, PREMIUM_PLUS")
	}
	if err := repo.UpdateUserPlan(ctx, s.DB, id, plan); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}
