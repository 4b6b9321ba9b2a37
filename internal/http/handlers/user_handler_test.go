package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/services"
)

func TestRegister(t *testing.T) {
	h := New(Deps{Users: fakeUsers{
		register: func(_ context.Context, name, email string) (*domain.User, error) {
			if email == "taken@example.com" {
				return nil, services.ErrEmailTaken
			}
			return &domain.User{ID: "u1", Name: name, Email: email, Plan: domain.PlanFree}, nil
		},
	}})
	r := testRouter(http.MethodPost, "/users", h.Register)

	w := do(t, r, http.MethodPost, "/users", "", map[string]any{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"plan":"FREE"`)

	w = do(t, r, http.MethodPost, "/users", "", map[string]any{"name": "Alice", "email": "taken@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/users", "", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeAndChangePlan(t *testing.T) {
	var gotPlan domain.Plan
	h := New(Deps{Users: fakeUsers{
		get: func(_ context.Context, id string) (*domain.User, error) {
			if id != "u1" {
				return nil, services.ErrUserNotFound
			}
			return &domain.User{ID: "u1"}, nil
		},
		changePlan: func(_ context.Context, id string, plan domain.Plan) (*domain.User, error) {
			gotPlan = plan
			if !plan.Valid() {
				return nil, &services.ValidationError{Field: "plan", Reason: "is not a known plan"}
			}
			return &domain.User{ID: id, Plan: plan}, nil
		},
	}})
	r := testRouter(http.MethodGet, "/me", h.Me)
	r.PUT("/me/plan", h.ChangePlan)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/me", "u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/me", "ghost", nil).Code)

	w := do(t, r, http.MethodPut, "/me/plan", "u1", map[string]any{"plan": " premium "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PlanPremium, gotPlan)

	w = do(t, r, http.MethodPut, "/me/plan", "u1", map[string]any{"plan": "GOLD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrustee(t *testing.T) {
	var stored *domain.Trustee
	h := New(Deps{Trustees: fakeTrustees{
		get: func(context.Context, string) (*domain.Trustee, error) {
			if stored == nil {
				return nil, services.ErrTrusteeNotFound
			}
			return stored, nil
		},
		set: func(_ context.Context, uid string, in services.TrusteeInput) (*domain.Trustee, error) {
			stored = &domain.Trustee{ID: "t1", UserID: uid, Name: in.Name, Email: in.Email, Relationship: in.Relationship}
			return stored, nil
		},
	}})
	r := testRouter(http.MethodGet, "/trustee", h.GetTrustee)
	r.PUT("/trustee", h.SetTrustee)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/trustee", "u1", nil).Code)

	w := do(t, r, http.MethodPut, "/trustee", "u1", map[string]any{"name": "Carol", "email": "carol@example.com", "relationship": "sister"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/trustee", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "carol@example.com")
}
