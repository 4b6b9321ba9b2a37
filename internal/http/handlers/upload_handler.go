package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/helloforever-backend/internal/storage"
)

// UploadRequest asks for a signed upload of one media object.
type UploadRequest struct {
	// MessageID scopes the object to an existing message; omitted for a
	// message that has not been saved yet.
	MessageID   string `json:"messageId,omitempty" example:"0190c6d4-8a2b-7c3d-9e4f-0123456789ab"`
	Kind        string `json:"kind"                example:"content" enums:"content,thumbnail"`
	ContentType string `json:"contentType"         example:"video/webm"`
}

// CreateUpload godoc
// @ID          createUpload
// @Summary     Issue a signed upload
// @Description The client uploads media straight to object storage, then stores the returned public_url on the message.
// @Tags        Uploads
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"
// @Param       body       body    handlers.UploadRequest  true  "Upload request"
// @Success     200  {object} storage.UploadTicket
// @Failure     400  {object} handlers.ErrorResponse "Unknown kind or content type"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     503  {object} handlers.ErrorResponse "Storage not configured"
// @Router      /uploads [post]
func (h *Handlers) CreateUpload(c *gin.Context) {
	if h.uploads == nil {
		failErr(c, storage.ErrNotConfigured)
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if !storage.ValidKind(kind) {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "kind: must be content or thumbnail")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	msgID := strings.TrimSpace(req.MessageID)
	if msgID != "" {
		if _, err := h.msgs.Get(ctx, uid, msgID); err != nil {
			failErr(c, err)
			return
		}
	} else {
		msgID = uuid.NewString()
	}

	ticket, err := h.uploads.IssueUploadURL(ctx, uid, msgID, kind, req.ContentType)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ticket)
}
