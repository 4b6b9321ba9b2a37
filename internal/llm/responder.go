// Package llm defines the chat-completion collaborator used by conversations
// and its Gemini implementation.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured reports missing or rejected provider credentials. Callers
// surface it as "service unavailable" rather than a generic failure.
var ErrNotConfigured = errors.New("responder not configured")

// Role is the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior utterance replayed to the model.
type Turn struct {
	Role    Role
	Content string
}

// Options bound a single completion.
type Options struct {
	MaxOutputTokens  int
	Temperature      float32
	PresencePenalty  float32
	FrequencyPenalty float32
}

// DefaultOptions favours warm, non-repetitive replies.
func DefaultOptions(maxOutputTokens int) Options {
	return Options{
		MaxOutputTokens:  maxOutputTokens,
		Temperature:      0.8,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.3,
	}
}

// Responder produces the next assistant utterance. history is in creation
// order (oldest first) and excludes userText.
type Responder interface {
	Complete(ctx context.Context, system string, history []Turn, userText string, opts Options) (string, error)
}
