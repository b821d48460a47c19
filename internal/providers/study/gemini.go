package study

import (
	"context"
	"encoding/json"
	"fmt"

	"examprep/internal/domain"
	"examprep/internal/providers/genai"
)

// GeminiOptions configures the Gemini-backed generator.
type GeminiOptions struct {
	Client   *genai.Client
	Fallback Generator
	// OnFallback is invoked when the provider fails and the fallback serves
	// the request instead. Used for logging.
	OnFallback func(reason string, err error)
}

// GeminiGenerator produces study material via the Gemini API, degrading to a
// fallback generator when the API misbehaves.
type GeminiGenerator struct {
	client     *genai.Client
	fallback   Generator
	onFallback func(reason string, err error)
}

// NewGeminiGenerator wires a generator around an existing genai client.
func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("study: gemini client is required")
	}
	return &GeminiGenerator{
		client:     opts.Client,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *GeminiGenerator) Question(ctx context.Context, topic string) (*domain.Question, error) {
	prompt := fmt.Sprintf("Create one multiple-choice exam question about: %s", topic)
	raw, err := g.client.GenerateJSON(ctx, questionSystemInstruction, prompt)
	if err != nil {
		return g.fallbackQuestion(ctx, topic, "generate", err)
	}
	var payload questionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return g.fallbackQuestion(ctx, topic, "decode", err)
	}
	if !payload.valid() {
		return g.fallbackQuestion(ctx, topic, "incomplete", fmt.Errorf("study: incomplete question payload"))
	}
	return payload.toDomain(topic), nil
}

func (g *GeminiGenerator) Flashcard(ctx context.Context, subjects []domain.Subject) (*domain.Flashcard, error) {
	prompt := fmt.Sprintf(flashcardInstruction, flashcardContext(subjects))
	raw, err := g.client.GenerateJSON(ctx, flashcardSystemInstruction, prompt)
	if err != nil {
		return g.fallbackFlashcard(ctx, subjects, "generate", err)
	}
	var payload flashcardPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return g.fallbackFlashcard(ctx, subjects, "decode", err)
	}
	if payload.Term == "" || payload.Definition == "" {
		return g.fallbackFlashcard(ctx, subjects, "incomplete", fmt.Errorf("study: incomplete flashcard payload"))
	}
	return &domain.Flashcard{Term: payload.Term, Definition: payload.Definition, Source: "Fire Captain AI"}, nil
}

func (g *GeminiGenerator) Explain(ctx context.Context, subject, userInput string) (string, error) {
	prompt := fmt.Sprintf("Subject: %s\nCandidate says: %s", subject, userInput)
	text, err := g.client.GenerateText(ctx, tutorSystemInstruction, prompt)
	if err != nil {
		if g.fallback == nil {
			return "", err
		}
		g.notifyFallback("explain", err)
		return g.fallback.Explain(ctx, subject, userInput)
	}
	return text, nil
}

func (g *GeminiGenerator) fallbackQuestion(ctx context.Context, topic, reason string, err error) (*domain.Question, error) {
	if g.fallback == nil {
		return nil, err
	}
	g.notifyFallback(reason, err)
	return g.fallback.Question(ctx, topic)
}

func (g *GeminiGenerator) fallbackFlashcard(ctx context.Context, subjects []domain.Subject, reason string, err error) (*domain.Flashcard, error) {
	if g.fallback == nil {
		return nil, err
	}
	g.notifyFallback(reason, err)
	return g.fallback.Flashcard(ctx, subjects)
}

func (g *GeminiGenerator) notifyFallback(reason string, err error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
}

var _ Generator = (*GeminiGenerator)(nil)
