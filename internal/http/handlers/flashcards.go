package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"examprep/internal/domain"
)

const (
	defaultFlashcardCount = 5
	maxFlashcardCount     = 20
)

type flashcardDTO struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Source     string `json:"source,omitempty"`
}

// Flashcards generates a flashcard set for the requested subjects. A served
// set counts as one flashcard session against the visitor's cap regardless of
// size; a provider failure does not.
func (a *App) Flashcards(w http.ResponseWriter, r *http.Request) {
	subjects := parseSubjects(r.URL.Query().Get("subjects"))
	if len(subjects) == 0 {
		subjects = domain.Subjects
	}
	count := defaultFlashcardCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFlashcardCount {
			a.error(w, http.StatusBadRequest, "bad_request", "count must be between 1 and 20")
			return
		}
		count = n
	}

	gate, ok := a.openFlashcardGate(w, r, "FLASHCARDS")
	if !ok {
		return
	}

	out := make([]flashcardDTO, 0, count)
	seen := make(map[string]struct{}, count)
	for len(out) < count {
		card, err := a.Study.Flashcard(r.Context(), subjects)
		if err != nil {
			a.Logger.Error().Err(err).Msg("generate flashcard failed")
			break
		}
		key := strings.ToLower(card.Term)
		if _, dup := seen[key]; dup {
			break
		}
		seen[key] = struct{}{}
		out = append(out, flashcardDTO{Term: card.Term, Definition: card.Definition, Source: card.Source})
	}
	if len(out) == 0 {
		a.errorFrom(w, domain.ErrProviderFailure)
		return
	}
	if !a.commitGate(w, r, gate) {
		return
	}
	a.json(w, http.StatusOK, map[string]any{"flashcards": out})
}

func parseSubjects(raw string) []domain.Subject {
	var out []domain.Subject
	for _, part := range strings.Split(raw, ",") {
		s := domain.Subject(strings.TrimSpace(part))
		if s == "" || !domain.KnownSubject(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
