package study

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"examprep/internal/domain"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIOptions configures the OpenAI-backed generator.
type OpenAIOptions struct {
	APIKey   string
	Model    string
	BaseURL  string
	Fallback Generator
	// OnFallback is invoked when the provider fails and the fallback serves
	// the request instead.
	OnFallback func(reason string, err error)
}

// OpenAIGenerator produces study material via the OpenAI chat API.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	fallback   Generator
	onFallback func(reason string, err error)
}

// NewOpenAIGenerator builds a generator from options.
func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("study: openai api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *OpenAIGenerator) Question(ctx context.Context, topic string) (*domain.Question, error) {
	prompt := fmt.Sprintf("Create one multiple-choice exam question about: %s", topic)
	raw, err := g.chat(ctx, questionSystemInstruction, prompt, true)
	if err != nil {
		if g.fallback == nil {
			return nil, err
		}
		g.notifyFallback("generate", err)
		return g.fallback.Question(ctx, topic)
	}
	var payload questionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || !payload.valid() {
		if g.fallback == nil {
			return nil, fmt.Errorf("study: decode question payload: %w", err)
		}
		g.notifyFallback("decode", err)
		return g.fallback.Question(ctx, topic)
	}
	return payload.toDomain(topic), nil
}

func (g *OpenAIGenerator) Flashcard(ctx context.Context, subjects []domain.Subject) (*domain.Flashcard, error) {
	prompt := fmt.Sprintf(flashcardInstruction, flashcardContext(subjects))
	raw, err := g.chat(ctx, flashcardSystemInstruction, prompt, true)
	if err == nil {
		var payload flashcardPayload
		if jsonErr := json.Unmarshal([]byte(raw), &payload); jsonErr == nil && payload.Term != "" && payload.Definition != "" {
			return &domain.Flashcard{Term: payload.Term, Definition: payload.Definition, Source: "Fire Captain AI"}, nil
		}
		err = fmt.Errorf("study: incomplete flashcard payload")
	}
	if g.fallback == nil {
		return nil, err
	}
	g.notifyFallback("flashcard", err)
	return g.fallback.Flashcard(ctx, subjects)
}

func (g *OpenAIGenerator) Explain(ctx context.Context, subject, userInput string) (string, error) {
	prompt := fmt.Sprintf("Subject: %s\nCandidate says: %s", subject, userInput)
	text, err := g.chat(ctx, tutorSystemInstruction, prompt, false)
	if err != nil {
		if g.fallback == nil {
			return "", err
		}
		g.notifyFallback("explain", err)
		return g.fallback.Explain(ctx, subject, userInput)
	}
	return text, nil
}

func (g *OpenAIGenerator) chat(ctx context.Context, system, prompt string, wantJSON bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if wantJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("study: openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("study: openai empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) notifyFallback(reason string, err error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
}

var _ Generator = (*OpenAIGenerator)(nil)
