// Package study generates quiz questions, flashcards, and tutor explanations
// through interchangeable AI providers with a static fallback.
package study

import (
	"context"
	"strings"

	"examprep/internal/domain"
)

// Generator produces study material. Implementations must be safe for
// concurrent use by HTTP handlers and the bank worker.
type Generator interface {
	Question(ctx context.Context, topic string) (*domain.Question, error)
	Flashcard(ctx context.Context, subjects []domain.Subject) (*domain.Flashcard, error)
	Explain(ctx context.Context, subject, userInput string) (string, error)
}

const questionSystemInstruction = `You are a veteran fire captain designing original written-exam questions
for firefighter candidates. Use any provided material as a style reference
only: vary the numbers, equipment, and scenarios, and never copy questions
verbatim. For human-relations topics the correct answer resolves conflicts
privately at the lowest level. Math questions use round numbers that work
without a calculator.
Return ONLY valid JSON with keys: "question", "options" (list of 4),
"correct_answer", "explanation".`

const tutorSystemInstruction = `You are a veteran fire captain mentoring a candidate for the written exam.
Teach in four steps every time: a fireground hook for why it matters, a
firehouse analogy (hose sections for fractions, pump pressure for
percentages, halligan leverage for fulcrums), one small practice problem,
and a check for understanding. Teach mental-math methods only; written
exams do not allow calculators. Be encouraging and keep the whole reply
under 300 words.`

const flashcardSystemInstruction = `You are a veteran fire captain building study flashcards for firefighter
written-exam candidates. Keep terms exam-relevant and definitions tight,
with realistic numbers where they help (flow rates, pressures, hose
lengths).
Return ONLY valid JSON with keys: "term", "definition".`

const flashcardInstruction = `Generate ONE flashcard for firefighter exam prep.
Subject areas: %s

Return ONLY valid JSON with keys: "term", "definition".
Make it relevant to written exam preparation with realistic numbers.`

// flashcardHints steers generation per subject area.
var flashcardHints = map[domain.Subject]string{
	domain.SubjectHumanRelations:     "teamwork, communication, conflict resolution, leadership in fire service",
	domain.SubjectMechanicalAptitude: "fire tools, hydraulics, pumps, mechanical advantage, leverage",
	domain.SubjectReadingAbility:     "SOP terminology, fire codes, incident command, NFPA standards",
	domain.SubjectMath:               "flow rates GPM, friction loss, percentages, pump pressure calculations",
}

func flashcardContext(subjects []domain.Subject) string {
	hints := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if hint, ok := flashcardHints[s]; ok {
			hints = append(hints, hint)
		} else {
			hints = append(hints, string(s))
		}
	}
	if len(hints) == 0 {
		return "general fire service knowledge"
	}
	return strings.Join(hints, ", ")
}

// questionPayload is the JSON shape providers ask the model for.
type questionPayload struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

func (p questionPayload) valid() bool {
	return p.Question != "" && len(p.Options) == 4 && p.CorrectAnswer != "" && p.Explanation != ""
}

func (p questionPayload) toDomain(topic string) *domain.Question {
	subject := domain.Subject(topic)
	if !domain.KnownSubject(subject) {
		subject = ""
	}
	return &domain.Question{
		Subject:       subject,
		Question:      p.Question,
		Options:       p.Options,
		CorrectAnswer: p.CorrectAnswer,
		Explanation:   p.Explanation,
	}
}

type flashcardPayload struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}
