package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/careflow/adrenav/internal/schema"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// ICompletionProvider produces schema-constrained structured
// completions. Implementations may fail or time out; callers always
// degrade to the deterministic fallback.
type ICompletionProvider interface {
	Name() string
	Complete(ctx context.Context, model, systemPrompt, userPrompt string, responseSchema schema.ResponseSchema, maxTokens int) (string, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

type CompletionFactory func(args interface{}) (ICompletionProvider, error)
type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	completionRegistry = map[string]CompletionFactory{}
	embedRegistry      = map[string]EmbedFactory{}
)

func Register(name string, factory CompletionFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	completionRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewCompletionProvider(name string, args interface{}) (ICompletionProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := completionRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
