package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/services"
)

func TestStartConversation(t *testing.T) {
	h := New(Deps{Conversations: fakeConversations{
		start: func(_ context.Context, id string) (string, error) {
			if id != "m1" {
				return "", services.ErrMessageNotFound
			}
			return "tok-abc", nil
		},
	}})
	r := testRouter(http.MethodPost, "/conversations", h.StartConversation)

	w := do(t, r, http.MethodPost, "/conversations", "", map[string]any{"messageId": " m1 "})
	require.Equal(t, http.StatusOK, w.Code)
	var resp StartConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tok-abc", resp.AccessToken)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/conversations", "", map[string]any{"messageId": "m9"}).Code)

	w = do(t, r, http.MethodPost, "/conversations", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeValidation, decodeError(t, w).Code)
}

func TestChat(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"unknown token", services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"empty text", &services.ValidationError{Field: "message", Reason: "is required"}, http.StatusBadRequest, ErrCodeValidation},
		{"no responder", services.ErrNotConfigured, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"upstream failure", fmt.Errorf("%w: boom", services.ErrGeneration), http.StatusBadGateway, ErrCodeGenerationFailed},
		{"empty reply", services.ErrNoResponse, http.StatusBadGateway, ErrCodeGenerationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotToken, gotText string
			h := New(Deps{Conversations: fakeConversations{
				chat: func(_ context.Context, token, text string) (string, error) {
					gotToken, gotText = token, text
					if tc.err != nil {
						return "", tc.err
					}
					return "I remember.", nil
				},
			}})
			r := testRouter(http.MethodPost, "/conversations/chat", h.Chat)

			w := do(t, r, http.MethodPost, "/conversations/chat", "", map[string]any{
				"accessToken": " tok ",
				"message":     "  the lake\r\n\r\n\r\ntrip ",
			})
			require.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, "tok", gotToken)
			assert.Equal(t, "the lake\n\ntrip", gotText)
			if tc.err == nil {
				var resp ChatResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "I remember.", resp.Reply)
				return
			}
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestChatHistory(t *testing.T) {
	h := New(Deps{Conversations: fakeConversations{
		history: func(_ context.Context, token string, page, size int) ([]domain.ChatMessage, int64, error) {
			if token != "tok" {
				return nil, 0, services.ErrConversationNotFound
			}
			return []domain.ChatMessage{
				{ID: "c1", Role: domain.ChatRoleUser, Content: "hi"},
				{ID: "c2", Role: domain.ChatRoleAssistant, Content: "hello"},
			}, 2, nil
		},
	}})
	r := testRouter(http.MethodGet, "/conversations/:token/messages", h.ChatHistory)

	w := do(t, r, http.MethodGet, "/conversations/tok/messages", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ChatHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, domain.ChatRoleUser, resp.Messages[0].Role)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/conversations/bad/messages", "", nil).Code)
}
