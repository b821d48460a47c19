package study

import (
	"context"
	"testing"

	"examprep/internal/domain"
)

func TestStaticGeneratorQuestionBySubject(t *testing.T) {
	gen := NewStaticGenerator()
	q, err := gen.Question(context.Background(), string(domain.SubjectHumanRelations))
	if err != nil {
		t.Fatalf("Question returned error: %v", err)
	}
	if q.Subject != domain.SubjectHumanRelations {
		t.Fatalf("Subject = %q, want human-relations", q.Subject)
	}
	if len(q.Options) != 4 || q.CorrectAnswer == "" {
		t.Fatalf("Question = %+v", q)
	}
}

func TestStaticGeneratorUnknownTopicStillServes(t *testing.T) {
	gen := NewStaticGenerator()
	q, err := gen.Question(context.Background(), "something-else")
	if err != nil {
		t.Fatalf("Question returned error: %v", err)
	}
	if q.Question == "" {
		t.Fatalf("Question is empty")
	}
}

func TestStaticGeneratorFlashcard(t *testing.T) {
	gen := NewStaticGenerator()
	card, err := gen.Flashcard(context.Background(), []domain.Subject{domain.SubjectMath})
	if err != nil {
		t.Fatalf("Flashcard returned error: %v", err)
	}
	if card.Term == "" || card.Definition == "" {
		t.Fatalf("Flashcard = %+v", card)
	}
}

func TestStaticGeneratorExplain(t *testing.T) {
	gen := NewStaticGenerator()
	text, err := gen.Explain(context.Background(), "friction loss", "I'm stuck")
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if text == "" {
		t.Fatalf("Explain returned empty text")
	}
}
