package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrRateLimited marks a provider 429. The pipeline aborts the document on
// it; nothing retries inside the same request.
var ErrRateLimited = errors.New("provider rate limited")

// Provider is the single model-provider surface. Implementations exist per
// provider and are chosen once at startup; callers never branch on which one
// they hold.
//
// EmbedBatch is index-aligned with its input and atomic: it either returns
// one vector per input text, in order, or an error for the whole batch.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	StreamComplete(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error)
}

// Options configures a provider client.
type Options struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
}

// NewProvider builds the configured provider implementation.
func NewProvider(name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "":
		return NewOpenAICompatibleClient(opts), nil
	case "gemini":
		return NewGeminiClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
