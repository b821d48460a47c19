package study

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"examprep/internal/domain"
	"examprep/internal/providers/genai"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(t *testing.T, rt roundTripFunc) *genai.Client {
	t.Helper()
	client, err := genai.NewClient(genai.Options{
		APIKey:     "dummy",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func geminiBody(text string) io.ReadCloser {
	payload := `{"candidates":[{"content":{"role":"model","parts":[{"text":` + jsonString(text) + `}]}}]}`
	return io.NopCloser(strings.NewReader(payload))
}

func jsonString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + replacer.Replace(s) + `"`
}

func TestGeminiGeneratorQuestion(t *testing.T) {
	const answer = `{"question":"How long is a standard hose section?","options":["25ft","50ft","75ft","100ft"],"correct_answer":"50ft","explanation":"Attack hose comes in 50ft sections."}`
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(answer)}, nil
	})
	gen, err := NewGeminiGenerator(GeminiOptions{Client: client})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}

	q, err := gen.Question(context.Background(), string(domain.SubjectMechanicalAptitude))
	if err != nil {
		t.Fatalf("Question returned error: %v", err)
	}
	if q.CorrectAnswer != "50ft" || len(q.Options) != 4 {
		t.Fatalf("Question = %+v", q)
	}
	if q.Subject != domain.SubjectMechanicalAptitude {
		t.Fatalf("Subject = %q, want mechanical-aptitude", q.Subject)
	}
}

func TestGeminiGeneratorFallsBackOnTransportError(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("boom")
	})
	var capturedReason string
	gen, err := NewGeminiGenerator(GeminiOptions{
		Client:   client,
		Fallback: NewStaticGenerator(),
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}

	q, err := gen.Question(context.Background(), string(domain.SubjectMath))
	if err != nil {
		t.Fatalf("Question returned error: %v", err)
	}
	if q.Question == "" {
		t.Fatalf("fallback question is empty")
	}
	if capturedReason != "generate" {
		t.Fatalf("fallback reason = %q, want generate", capturedReason)
	}
}

func TestGeminiGeneratorFallsBackOnBadPayload(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(`{"question":"only a question"}`)}, nil
	})
	var capturedReason string
	gen, err := NewGeminiGenerator(GeminiOptions{
		Client:   client,
		Fallback: NewStaticGenerator(),
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}

	if _, err := gen.Question(context.Background(), "math"); err != nil {
		t.Fatalf("Question returned error: %v", err)
	}
	if capturedReason != "incomplete" {
		t.Fatalf("fallback reason = %q, want incomplete", capturedReason)
	}
}

func TestGeminiGeneratorFlashcardSystemInstruction(t *testing.T) {
	var sentSystem string
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var req struct {
			SystemInstruction struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.SystemInstruction.Parts) > 0 {
			sentSystem = req.SystemInstruction.Parts[0].Text
		}
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(`{"term":"GPM","definition":"Gallons per minute."}`)}, nil
	})
	gen, err := NewGeminiGenerator(GeminiOptions{Client: client})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}

	card, err := gen.Flashcard(context.Background(), []domain.Subject{domain.SubjectMath})
	if err != nil {
		t.Fatalf("Flashcard returned error: %v", err)
	}
	if card.Term != "GPM" {
		t.Fatalf("Term = %q, want GPM", card.Term)
	}
	if !strings.Contains(sentSystem, `"term"`) || !strings.Contains(sentSystem, `"definition"`) {
		t.Fatalf("system instruction %q does not ask for term/definition JSON", sentSystem)
	}
	if strings.Contains(sentSystem, `"correct_answer"`) {
		t.Fatalf("system instruction %q asks for question-shaped JSON", sentSystem)
	}
}

func TestGeminiGeneratorErrorsWithoutFallback(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	})
	gen, err := NewGeminiGenerator(GeminiOptions{Client: client})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}
	if _, err := gen.Question(context.Background(), "math"); err == nil {
		t.Fatalf("Question expected error without fallback")
	}
}

func TestGeminiGeneratorExplain(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody("Think of fractions as hose sections.")}, nil
	})
	gen, err := NewGeminiGenerator(GeminiOptions{Client: client})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}
	text, err := gen.Explain(context.Background(), "fractions", "I'm stuck")
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if !strings.Contains(text, "hose sections") {
		t.Fatalf("Explain = %q", text)
	}
}
