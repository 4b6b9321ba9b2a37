// Recipient HTTP handlers.
//
//   - POST   /recipients        (create)
//   - GET    /recipients        (list, paginated, ETag support)
//   - GET    /recipients/{id}   (get)
//   - PUT    /recipients/{id}   (update)
//   - DELETE /recipients/{id}   (delete, cascades to the recipient's messages)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/services"
)

// RecipientRequest is the JSON payload for creating or replacing a recipient.
type RecipientRequest struct {
	Name         string `json:"name"                   example:"Ben"`
	Email        string `json:"email"                  example:"ben@example.com"`
	Relationship string `json:"relationship,omitempty" example:"CHILD" enums:"CHILD,SPOUSE,PARENT,SIBLING,FRIEND,OTHER"`
	// Birthday is a calendar date (2006-01-02) or an RFC 3339 timestamp.
	Birthday string `json:"birthday,omitempty" example:"2012-03-15"`
}

func (r RecipientRequest) input() (services.RecipientInput, error) {
	in := services.RecipientInput{
		Name:         r.Name,
		Email:        r.Email,
		Relationship: domain.Relationship(strings.TrimSpace(r.Relationship)),
	}
	if b := strings.TrimSpace(r.Birthday); b != "" {
		t, err := parseDate(b)
		if err != nil {
			return in, &services.ValidationError{Field: "birthday", Reason: "must be a date like 2012-03-15"}
		}
		in.Birthday = &t
	}
	return in, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ListRecipientsResponse wraps a page of recipients and pagination information.
type ListRecipientsResponse struct {
	Recipients []domain.Recipient `json:"recipients"`
	Pagination Pagination         `json:"pagination"`
}

// CreateRecipient godoc
// @ID          createRecipient
// @Summary     Add a recipient
// @Tags        Recipients
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       body       body    handlers.RecipientRequest  true  "Recipient payload"
// @Success     201  {object}  domain.Recipient
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse "Email already used by another of your recipients"
// @Router      /recipients [post]
func (h *Handlers) CreateRecipient(c *gin.Context) {
	var req RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	in, err := req.input()
	if err != nil {
		failErr(c, err)
		return
	}
	r, err := h.recipients.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRecipients godoc
// @ID          listRecipients
// @Summary     List recipients (paginated)
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Recipients
// @Produce     json
// @Param       X-User-ID      header  string  true  "Authenticated user id"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListRecipientsResponse
// @Success     304  {string} string "Not Modified"
// @Router      /recipients [get]
func (h *Handlers) ListRecipients(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	if count, maxTS, err := h.recipients.Stats(ctx, uid); err == nil {
		if notModified(c, "recipients", uid, page, pageSize, count, maxTS) {
			return
		}
	}

	items, total, err := h.recipients.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListRecipientsResponse{Recipients: items, Pagination: newPagination(page, pageSize, total)})
}

// GetRecipient godoc
// @ID          getRecipient
// @Summary     Get a recipient
// @Tags        Recipients
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       id         path    string  true  "Recipient ID"  format(uuid)
// @Success     200  {object} domain.Recipient
// @Failure     404  {object} handlers.ErrorResponse "Recipient not found"
// @Router      /recipients/{id} [get]
func (h *Handlers) GetRecipient(c *gin.Context) {
	r, err := h.recipients.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateRecipient godoc
// @ID          updateRecipient
// @Summary     Replace a recipient
// @Tags        Recipients
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       id         path    string  true  "Recipient ID"  format(uuid)
// @Param       body       body    handlers.RecipientRequest  true  "Recipient payload"
// @Success     200  {object} domain.Recipient
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Recipient not found"
// @Failure     409  {object} handlers.ErrorResponse "Duplicate email"
// @Router      /recipients/{id} [put]
func (h *Handlers) UpdateRecipient(c *gin.Context) {
	var req RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	in, err := req.input()
	if err != nil {
		failErr(c, err)
		return
	}
	r, err := h.recipients.Update(c.Request.Context(), userID(c), c.Param("id"), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteRecipient godoc
// @ID          deleteRecipient
// @Summary     Delete a recipient and their messages
// @Tags        Recipients
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       id         path    string  true  "Recipient ID"  format(uuid)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Recipient not found"
// @Router      /recipients/{id} [delete]
func (h *Handlers) DeleteRecipient(c *gin.Context) {
	if err := h.recipients.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
