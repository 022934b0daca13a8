package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ErrEmptyCompletion is returned when the model produced no text.
var ErrEmptyCompletion = errors.New("model returned no text")

// generateFunc sends a single-turn prompt to a model and returns its text.
type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// GeminiCompleter produces assistant replies through the Gemini API.
type GeminiCompleter struct {
	model    string
	generate generateFunc
	logger   *zap.Logger
}

// NewGeminiCompleter creates a completer backed by a genai client
// authenticated with apiKey.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	generate := func(ctx context.Context, model, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGeminiCompleter(model, generate, logger), nil
}

func newGeminiCompleter(model string, generate generateFunc, logger *zap.Logger) *GeminiCompleter {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiCompleter{model: model, generate: generate, logger: logger}
}

// Model returns the model name requests are sent to.
func (g *GeminiCompleter) Model() string { return g.model }

// Complete sends prompt to the model and returns the trimmed reply.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.generate(ctx, g.model, prompt)
	if err != nil {
		g.logger.Warn("gemini request failed", zap.String("model", g.model), zap.Error(err))
		return "", fmt.Errorf("generating content with %s: %w", g.model, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	g.logger.Debug("gemini reply received",
		zap.String("model", g.model),
		zap.Int("chars", len([]rune(text))),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}
