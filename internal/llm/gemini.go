package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiResponder implements Responder with the Google GenAI SDK.
type GeminiResponder struct {
	client *genai.Client
	model  string
}

// GeminiConfig configures NewGeminiResponder. BaseURL is only set in tests.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewGeminiResponder builds a client for cfg.Model. An empty API key yields
// ErrNotConfigured so callers can wire a nil responder and still start.
func NewGeminiResponder(ctx context.Context, cfg GeminiConfig) (*GeminiResponder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiResponder{client: client, model: cfg.Model}, nil
}

// Complete sends the persona as the system instruction followed by history
// and userText, mapping assistant turns to the model role.
func (g *GeminiResponder) Complete(ctx context.Context, system string, history []Turn, userText string, opts Options) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrNotConfigured
	}
	ctx, span := otel.Tracer("llm/GeminiResponder").Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("llm.model", g.model),
			attribute.Int("llm.history", len(history)),
		),
	)
	defer span.End()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   int32(opts.MaxOutputTokens),
		Temperature:       genai.Ptr(opts.Temperature),
		PresencePenalty:   genai.Ptr(opts.PresencePenalty),
		FrequencyPenalty:  genai.Ptr(opts.FrequencyPenalty),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, Contents(history, userText), cfg)
	if err != nil {
		span.RecordError(err)
		return "", classify(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Contents maps turns to GenAI contents, preserving order, and appends
// userText as the final user turn.
func Contents(history []Turn, userText string) []*genai.Content {
	out := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(t.Content, role))
	}
	return append(out, genai.NewContentFromText(userText, genai.RoleUser))
}

// classify turns credential rejections into ErrNotConfigured.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: %s", ErrNotConfigured, apiErr.Message)
		}
		if apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToUpper(apiErr.Message), "API KEY") {
			return fmt.Errorf("%w: %s", ErrNotConfigured, apiErr.Message)
		}
	}
	return err
}
