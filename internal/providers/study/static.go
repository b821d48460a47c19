package study

import (
	"context"
	"fmt"
	"math/rand"

	"examprep/internal/domain"
)

// StaticGenerator serves canned study material. It backs the AI providers as
// their fallback and keeps local development working without credentials.
type StaticGenerator struct{}

// NewStaticGenerator returns the fallback generator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

var staticQuestions = []domain.Question{
	{
		Subject:       domain.SubjectMath,
		Question:      "An engine is flowing 150 GPM from a 1000-gallon tank. With no external supply, about how long until the tank runs dry?",
		Options:       []string{"4 minutes", "6.5 minutes", "8 minutes", "10 minutes"},
		CorrectAnswer: "6.5 minutes",
		Explanation:   "1000 gallons divided by 150 GPM is about 6.7 minutes; 6.5 minutes is the closest option.",
	},
	{
		Subject:       domain.SubjectMechanicalAptitude,
		Question:      "Moving the fulcrum of a pry bar closer to the object being moved will do what to the force applied at the object?",
		Options:       []string{"Decrease it", "Increase it", "Leave it unchanged", "Reverse its direction"},
		CorrectAnswer: "Increase it",
		Explanation:   "A fulcrum closer to the load lengthens the effort arm relative to the load arm, multiplying the applied force.",
	},
	{
		Subject:       domain.SubjectHumanRelations,
		Question:      "In a training video, you observe a firefighter who repeatedly leaves shared equipment dirty after use. What is the best first step?",
		Options:       []string{"Report them to the captain", "Speak with them privately", "Ignore it", "Raise it at the next station meeting"},
		CorrectAnswer: "Speak with them privately",
		Explanation:   "Interpersonal issues are resolved at the lowest level first; a private conversation preserves trust and usually fixes the problem.",
	},
	{
		Subject:       domain.SubjectReadingAbility,
		Question:      "An SOP states: \"Crews shall not enter a structure until a 360-degree size-up is complete.\" When may a crew enter?",
		Options:       []string{"Immediately on arrival", "After the size-up is complete", "Once water supply is established", "When ordered by dispatch"},
		CorrectAnswer: "After the size-up is complete",
		Explanation:   "The SOP makes the 360-degree size-up a precondition for entry; nothing else in the sentence waives it.",
	},
}

var staticFlashcards = []domain.Flashcard{
	{Term: "GPM", Definition: "Gallons Per Minute - flow rate through hose/nozzle. Handlines: 150-200 GPM.", Source: "Hydraulics"},
	{Term: "Friction Loss", Definition: "Pressure lost in hose from turbulence. Formula: FL = C x Q^2 x L.", Source: "Hydraulics"},
	{Term: "Pre-connect", Definition: "Hoseline pre-connected to pump, ready for immediate deployment. Typically 200ft.", Source: "Operations"},
	{Term: "Flashover", Definition: "Near-simultaneous ignition of all combustibles when reaching ignition temp (900-1100F).", Source: "Fire Behavior"},
	{Term: "Halligan Bar", Definition: "Multipurpose forcible entry tool: claw, blade, and pike.", Source: "Tools"},
}

func (s *StaticGenerator) Question(ctx context.Context, topic string) (*domain.Question, error) {
	for _, q := range staticQuestions {
		if string(q.Subject) == topic {
			out := q
			return &out, nil
		}
	}
	out := staticQuestions[rand.Intn(len(staticQuestions))]
	return &out, nil
}

func (s *StaticGenerator) Flashcard(ctx context.Context, subjects []domain.Subject) (*domain.Flashcard, error) {
	out := staticFlashcards[rand.Intn(len(staticFlashcards))]
	return &out, nil
}

func (s *StaticGenerator) Explain(ctx context.Context, subject, userInput string) (string, error) {
	return fmt.Sprintf(
		"Good question, let's break down %s. Picture it on the fireground first: "+
			"the numbers you need show up as pump pressures and hose sections, not abstractions. "+
			"Try one small problem with round numbers, then explain the method back in your own words. "+
			"(The study coach is offline right now; this is the built-in refresher.)",
		subject), nil
}

var _ Generator = (*StaticGenerator)(nil)
