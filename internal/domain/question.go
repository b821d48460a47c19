package domain

import "time"

// Subject identifies an exam subject area in the question bank.
type Subject string

const (
	SubjectHumanRelations     Subject = "human-relations"
	SubjectMechanicalAptitude Subject = "mechanical-aptitude"
	SubjectReadingAbility     Subject = "reading-ability"
	SubjectMath               Subject = "math"
)

// Subjects lists the bank's subject areas in display order.
var Subjects = []Subject{
	SubjectHumanRelations,
	SubjectMechanicalAptitude,
	SubjectReadingAbility,
	SubjectMath,
}

// KnownSubject reports whether s is one of the bank's subject areas.
func KnownSubject(s Subject) bool {
	for _, known := range Subjects {
		if s == known {
			return true
		}
	}
	return false
}

// Question is a multiple-choice exam question, either pre-generated into the
// bank or produced live by an AI provider.
type Question struct {
	ID            string
	Subject       Subject
	Question      string
	Options       []string
	CorrectAnswer string
	Explanation   string
	QualityScore  float64
	ReportedCount int
	Approved      bool
	CreatedAt     time.Time
}

// Flashcard is a term/definition study card.
type Flashcard struct {
	Term       string
	Definition string
	Source     string
}

// QuestionReport is a user flag against a bank question pending admin review.
type QuestionReport struct {
	ID         string
	QuestionID string
	UserID     string
	Reason     string
	Subject    Subject
	Question   string
	ReportedAt time.Time
	Reviewed   bool
}
