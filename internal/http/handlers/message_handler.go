// Message HTTP handlers.
//
// This file exposes REST endpoints for scheduled messages:
//   - POST   /messages        (create, quota-gated, idempotent)
//   - GET    /messages        (list, paginated, ETag support)
//   - GET    /messages/{id}   (get)
//   - PUT    /messages/{id}   (update until delivered)
//   - DELETE /messages/{id}   (delete, frees quota)
//   - GET    /view/{id}       (public view of a delivered message)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an earlier create with
// the same key succeeded, the original message is returned with 200 and
// `Idempotency-Replayed: true` instead of creating (and counting) another.
package handlers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/http/middleware"
	"github.com/tbourn/helloforever-backend/internal/services"
)

//
// DTOs
//

// MessageRequest is the JSON payload for creating or replacing a message.
// Enumerations are upper-case names; scheduledDate is RFC 3339.
type MessageRequest struct {
	Title         string     `json:"title"                   example:"For your 18th birthday"`
	Type          string     `json:"type"                    example:"VIDEO" enums:"VIDEO,AUDIO,TEXT"`
	RecipientID   string     `json:"recipientId"             example:"0190c6d4-8a2b-7c3d-9e4f-0123456789ab"`
	DeliveryType  string     `json:"deliveryType"            example:"MILESTONE" enums:"SPECIFIC_DATE,UPON_PASSING,MILESTONE,SURPRISE"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty" example:"2030-03-15T09:00:00Z"`
	Milestone     *string    `json:"milestone,omitempty"     example:"BIRTHDAY" enums:"BIRTHDAY,WEDDING,GRADUATION,ANNIVERSARY,FIRST_CHILD,RETIREMENT"`
	Note          string     `json:"note,omitempty"          example:"Record this one in the garden"`
	Content       string     `json:"content,omitempty"       example:"https://res.cloudinary.com/demo/video/upload/helloforever/u/m/content"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	Duration      *int       `json:"duration,omitempty"      example:"94"`
	Status        string     `json:"status,omitempty"        example:"SCHEDULED" enums:"DRAFT,SCHEDULED"`
}

func (r MessageRequest) input() services.MessageInput {
	in := services.MessageInput{
		Title:         r.Title,
		Type:          domain.MessageType(strings.TrimSpace(r.Type)),
		RecipientID:   strings.TrimSpace(r.RecipientID),
		DeliveryType:  domain.DeliveryType(strings.TrimSpace(r.DeliveryType)),
		ScheduledDate: r.ScheduledDate,
		Note:          sanitizeContent(r.Note),
		Content:       r.Content,
		Thumbnail:     strings.TrimSpace(r.Thumbnail),
		Duration:      r.Duration,
		Status:        domain.Status(strings.TrimSpace(r.Status)),
	}
	if r.Milestone != nil {
		ms := domain.Milestone(strings.TrimSpace(*r.Milestone))
		in.Milestone = &ms
	}
	if in.Type == domain.MessageTypeText {
		in.Content = sanitizeContent(in.Content)
	} else {
		in.Content = strings.TrimSpace(in.Content)
	}
	return in
}

// ListMessagesResponse wraps a page of messages and pagination information.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// ViewMessageResponse is what a recipient sees when opening a delivered
// message. The author's private note is never included.
type ViewMessageResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Type          domain.MessageType `json:"type"`
	Content       string             `json:"content,omitempty"`
	Thumbnail     string             `json:"thumbnail,omitempty"`
	Duration      *int               `json:"duration,omitempty"`
	SenderName    string             `json:"sender_name"`
	RecipientName string             `json:"recipient_name"`
	DeliveredAt   *time.Time         `json:"delivered_at,omitempty"`
	ViewedAt      *time.Time         `json:"viewed_at,omitempty"`
}

func newViewMessageResponse(m *domain.Message) ViewMessageResponse {
	return ViewMessageResponse{
		ID:            m.ID,
		Title:         m.Title,
		Type:          m.Type,
		Content:       m.Content,
		Thumbnail:     m.Thumbnail,
		Duration:      m.Duration,
		SenderName:    m.User.Name,
		RecipientName: m.Recipient.Name,
		DeliveredAt:   m.DeliveredAt,
		ViewedAt:      m.ViewedAt,
	}
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes free text: CRLF/CR become LF, runs of blank
// lines collapse to one, and surrounding whitespace is trimmed.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

//
// Handlers
//

// CreateMessage godoc
// @ID          createMessage
// @Summary     Create a scheduled message
// @Description Creates a message for one of the caller's recipients. FREE accounts are limited to 2 messages.
// @Description Supports idempotency via the Idempotency-Key header (same key → same message, quota counted once).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Authenticated user id"  example(0190c6d4-8a2b-7c3d-9e4f-0123456789ab)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.MessageRequest  true  "Message payload"
//
// @Success     201  {object}  domain.Message         "Created, with recipient summary"
// @Success     200  {object}  domain.Message         "Replayed from an earlier request"
// @Header      200  {string}  Idempotency-Replayed   "true on replay"
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     402  {object}  handlers.ErrorResponse "Free plan limit reached"
// @Failure     404  {object}  handlers.ErrorResponse "Recipient not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /messages [post]
func (h *Handlers) CreateMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	m, replayed, err := h.msgs.CreateIdempotent(c.Request.Context(), userID(c), key, req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, m)
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages (paginated)
// @Description Returns a page of the caller's messages, newest first. Supports weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Authenticated user id"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.msgs.Stats(ctx, uid); err == nil {
		if notModified(c, "messages", uid, page, pageSize, count, maxTS) {
			return
		}
	}

	items, total, err := h.msgs.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}

// GetMessage godoc
// @ID          getMessage
// @Summary     Get a message
// @Tags        Messages
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       id         path    string  true  "Message ID"  format(uuid)
// @Success     200  {object} domain.Message
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Router      /messages/{id} [get]
func (h *Handlers) GetMessage(c *gin.Context) {
	m, err := h.msgs.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// UpdateMessage godoc
// @ID          updateMessage
// @Summary     Replace a message
// @Description Re-validates and stores the full message. Delivered messages are frozen.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       id         path    string  true  "Message ID"  format(uuid)
// @Param       body       body    handlers.MessageRequest  true  "Message payload"
// @Success     200  {object} domain.Message
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     409  {object} handlers.ErrorResponse "Already delivered"
// @Router      /messages/{id} [put]
func (h *Handlers) UpdateMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	m, err := h.msgs.Update(c.Request.Context(), userID(c), c.Param("id"), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Tags        Messages
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       id         path    string  true  "Message ID"  format(uuid)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	if err := h.msgs.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ViewMessage godoc
// @ID          viewMessage
// @Summary     Open a delivered message
// @Description Public link sent in the delivery email. The first open records viewed_at.
// @Tags        Messages
// @Produce     json
// @Param       id  path  string  true  "Message ID"  format(uuid)
// @Success     200  {object} handlers.ViewMessageResponse
// @Failure     404  {object} handlers.ErrorResponse "Message not found or not delivered yet"
// @Router      /view/{id} [get]
func (h *Handlers) ViewMessage(c *gin.Context) {
	m, err := h.msgs.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, newViewMessageResponse(m))
}
