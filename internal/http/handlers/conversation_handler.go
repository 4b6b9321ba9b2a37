// Conversation HTTP handlers.
//
// A recipient receives a conversation access token after opening a delivered
// message; the token alone authorizes chat turns, so these routes are not
// behind the X-User-ID check.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// StartConversationRequest names the message a conversation is opened from.
type StartConversationRequest struct {
	MessageID string `json:"messageId" example:"0190c6d4-8a2b-7c3d-9e4f-0123456789ab"`
}

// StartConversationResponse carries the bearer token for later turns.
type StartConversationResponse struct {
	AccessToken string `json:"accessToken" example:"Zm9vYmFyYmF6cXV4cXV1eGNvcmdlZ3JhdWx0Z2FycGx5d2FsZG8"`
}

// ChatRequest is one recipient turn.
type ChatRequest struct {
	AccessToken string `json:"accessToken"`
	Message     string `json:"message" example:"Do you remember our trip to the lake?"`
}

// ChatResponse is the generated reply.
type ChatResponse struct {
	Reply string `json:"reply" example:"Of course I do. You caught your first fish that day."`
}

// ChatHistoryResponse wraps a page of turns and pagination information.
type ChatHistoryResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// StartConversation godoc
// @ID          startConversation
// @Summary     Start (or resume) a conversation
// @Description Returns the access token of the conversation between the message's author and recipient, creating it on first use.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.StartConversationRequest  true  "Message reference"
// @Success     200  {object} handlers.StartConversationResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing messageId"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Router      /conversations [post]
func (h *Handlers) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := strings.TrimSpace(req.MessageID)
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "messageId: is required")
		return
	}
	token, err := h.convs.Start(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StartConversationResponse{AccessToken: token})
}

// Chat godoc
// @ID          chat
// @Summary     Send a chat turn
// @Description Generates a reply in the author's voice. Nothing is stored when generation fails.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ChatRequest  true  "Turn payload"
// @Success     200  {object} handlers.ChatResponse
// @Failure     400  {object} handlers.ErrorResponse "Empty or oversized message"
// @Failure     404  {object} handlers.ErrorResponse "Unknown access token"
// @Failure     502  {object} handlers.ErrorResponse "Generation failed"
// @Failure     503  {object} handlers.ErrorResponse "Generation not configured"
// @Router      /conversations/chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	reply, err := h.convs.Chat(c.Request.Context(), strings.TrimSpace(req.AccessToken), sanitizeContent(req.Message))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ChatResponse{Reply: reply})
}

// ChatHistory godoc
// @ID          chatHistory
// @Summary     Conversation history (paginated)
// @Tags        Conversations
// @Produce     json
// @Param       token      path   string  true  "Access token"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ChatHistoryResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown access token"
// @Router      /conversations/{token}/messages [get]
func (h *Handlers) ChatHistory(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.convs.History(c.Request.Context(), c.Param("token"), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ChatHistoryResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}
