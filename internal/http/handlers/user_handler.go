// Account HTTP handlers: registration, profile, plan and trustee.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/services"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Name  string `json:"name"  example:"Alice"`
	Email string `json:"email" example:"alice@example.com"`
}

// ChangePlanRequest is the JSON payload for switching plans.
type ChangePlanRequest struct {
	Plan string `json:"plan" example:"PREMIUM" enums:"FREE,PREMIUM,PREMIUM_PLUS"`
}

// TrusteeRequest is the JSON payload for naming a trustee.
type TrusteeRequest struct {
	Name         string `json:"name"                   example:"Carol"`
	Email        string `json:"email"                  example:"carol@example.com"`
	Relationship string `json:"relationship,omitempty" example:"sister"`
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Called by the session provider after sign-up. New accounts start on the FREE plan.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.RegisterRequest  true  "Account payload"
// @Success     201  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     409  {object} handlers.ErrorResponse "Email already registered"
// @Router      /users [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// Me godoc
// @ID          me
// @Summary     Current profile
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Success     200  {object} domain.User
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// ChangePlan godoc
// @ID          changePlan
// @Summary     Change plan
// @Description Records the plan after checkout. Downgrading keeps existing messages.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       body       body    handlers.ChangePlanRequest  true  "New plan"
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Unknown plan"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /me/plan [put]
func (h *Handlers) ChangePlan(c *gin.Context) {
	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	plan := domain.Plan(strings.ToUpper(strings.TrimSpace(req.Plan)))
	u, err := h.users.ChangePlan(c.Request.Context(), userID(c), plan)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetTrustee godoc
// @ID          getTrustee
// @Summary     Get the trustee
// @Tags        Users
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Success     200  {object} domain.Trustee
// @Failure     404  {object} handlers.ErrorResponse "No trustee named yet"
// @Router      /trustee [get]
func (h *Handlers) GetTrustee(c *gin.Context) {
	t, err := h.trustees.Get(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// SetTrustee godoc
// @ID          setTrustee
// @Summary     Name or replace the trustee
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       body       body    handlers.TrusteeRequest  true  "Trustee payload"
// @Success     200  {object} domain.Trustee
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Router      /trustee [put]
func (h *Handlers) SetTrustee(c *gin.Context) {
	var req TrusteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	t, err := h.trustees.Set(c.Request.Context(), userID(c), services.TrusteeInput{
		Name:         req.Name,
		Email:        req.Email,
		Relationship: req.Relationship,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}
