package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careflow/adrenav/internal/schema"
)

type ManagerConfig struct {
	RouterModel    string
	AnswerModel    string
	EmbeddingModel string
	Timeout        int
	Disabled       bool
}

// Manager front-ends the configured providers with a per-call timeout.
// A nil Manager, or one with Disabled set, reports itself unavailable
// and the pipeline runs in deterministic-fallback mode.
type Manager struct {
	completion ICompletionProvider
	embedder   IEmbedProvider
	cfg        ManagerConfig
}

func NewManager(completion ICompletionProvider, embedder IEmbedProvider, cfg ManagerConfig) *Manager {
	return &Manager{completion: completion, embedder: embedder, cfg: cfg}
}

func (m *Manager) CompletionEnabled() bool {
	return m != nil && m.completion != nil && !m.cfg.Disabled
}

func (m *Manager) EmbeddingEnabled() bool {
	return m != nil && m.embedder != nil && !m.cfg.Disabled
}

func (m *Manager) EmbeddingModelName() string {
	if m == nil {
		return ""
	}
	return m.cfg.EmbeddingModel
}

func (m *Manager) CompleteRoute(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.complete(ctx, m.cfg.RouterModel, systemPrompt, userPrompt, schema.RouteDecisionResponseSchema(), 200)
}

func (m *Manager) CompleteTurn(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.complete(ctx, m.cfg.AnswerModel, systemPrompt, userPrompt, schema.AssistantTurnResponseSchema(), 1200)
}

func (m *Manager) complete(ctx context.Context, model, systemPrompt, userPrompt string, responseSchema schema.ResponseSchema, maxTokens int) (string, error) {
	if !m.CompletionEnabled() {
		return "", ErrUnavailable
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.completion.Complete(ctx, model, systemPrompt, userPrompt, responseSchema, maxTokens)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) Embed(ctx context.Context, text string) ([]float32, error) {
	if !m.EmbeddingEnabled() {
		return nil, ErrUnavailable
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	return m.embedder.Embed(ctx, m.cfg.EmbeddingModel, text)
}
