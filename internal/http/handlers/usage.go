package handlers

import (
	"encoding/json"
	"net/http"

	"examprep/internal/domain"
	"examprep/internal/middleware"
	"examprep/internal/usage"
	"examprep/internal/validate"
)

const (
	codeSignupRequired       = "signup_required"
	codeSubscriptionRequired = "subscription_required"
)

type usageSummaryDTO struct {
	Tier                string          `json:"tier"`
	Authenticated       bool            `json:"authenticated"`
	Email               string          `json:"email,omitempty"`
	QuizCount           int             `json:"quiz_count"`
	FlashcardCount      int             `json:"flashcard_count"`
	RemainingQuizzes    usage.Remaining `json:"remaining_quizzes"`
	RemainingFlashcards usage.Remaining `json:"remaining_flashcards"`
	NeedsSignup         bool            `json:"needs_signup"`
	NeedsSubscription   bool            `json:"needs_subscription"`
	Today               string          `json:"today"`
	Locale              string          `json:"locale,omitempty"`
	Country             string          `json:"country,omitempty"`
}

// UsageSummary reports the visitor's tier and what is left today. The UI
// drives its gating modals (signup prompt, upgrade prompt) off this payload.
func (a *App) UsageSummary(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "missing visitor session")
		return
	}
	today := a.today(r)
	rec := a.loadUsage(r.Context(), sid)
	a.json(w, http.StatusOK, a.usageSummary(r, rec, today))
}

func (a *App) usageSummary(r *http.Request, rec usage.Record, today usage.Date) usageSummaryDTO {
	return usageSummaryDTO{
		Tier:                string(rec.Tier),
		Authenticated:       rec.Authenticated,
		Email:               rec.Email,
		QuizCount:           rec.QuizCount,
		FlashcardCount:      rec.FlashcardCount,
		RemainingQuizzes:    rec.RemainingQuizzes(today),
		RemainingFlashcards: rec.RemainingFlashcards(today),
		NeedsSignup:         rec.NeedsSignup(),
		NeedsSubscription:   rec.NeedsSubscription(today),
		Today:               string(today),
		Locale:              middleware.LocaleFromContext(r.Context()),
		Country:             middleware.CountryFromContext(r.Context()),
	}
}

type captureIdentityRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CaptureIdentity stores a lead's email from the funnel's capture form
// without creating an account.
func (a *App) CaptureIdentity(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "missing visitor session")
		return
	}
	var req captureIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	rec := a.loadUsage(r.Context(), sid)
	rec.CaptureIdentity(req.Email)
	if err := a.saveUsage(r.Context(), sid, rec); err != nil {
		a.Logger.Error().Err(err).Msg("save usage record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist state")
		return
	}
	a.logUsageEvent(r.Context(), sid, "", "IDENTITY_CAPTURE", true, nil)
	w.WriteHeader(http.StatusNoContent)
}

// usageGate is a cap check that passed but has not been counted yet. Handlers
// open the gate before doing the work and commit it once the content was
// actually served, so a failed lookup or provider call never burns a use.
type usageGate struct {
	sid    string
	today  usage.Date
	rec    usage.Record
	event  string
	record func(*usage.Record, usage.Date)
}

// openQuizGate checks the quiz cap. On failure the response has been written.
func (a *App) openQuizGate(w http.ResponseWriter, r *http.Request, event string) (*usageGate, bool) {
	return a.openGate(w, r, event, usage.Record.CanStartQuiz, (*usage.Record).RecordQuizUse)
}

// openFlashcardGate is openQuizGate for the flashcard cap.
func (a *App) openFlashcardGate(w http.ResponseWriter, r *http.Request, event string) (*usageGate, bool) {
	return a.openGate(w, r, event, usage.Record.CanStartFlashcards, (*usage.Record).RecordFlashcardUse)
}

func (a *App) openGate(
	w http.ResponseWriter,
	r *http.Request,
	event string,
	allowed func(usage.Record, usage.Date) bool,
	record func(*usage.Record, usage.Date),
) (*usageGate, bool) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "missing visitor session")
		return nil, false
	}
	today := a.today(r)
	rec := a.loadUsage(r.Context(), sid)
	if !allowed(rec, today) {
		blocked := domain.ErrSubscriptionRequired
		if rec.NeedsSignup() {
			blocked = domain.ErrSignupRequired
		}
		_, code, _ := sentinelHTTP(blocked)
		a.logUsageEvent(r.Context(), sid, rec.UserID, event, false, map[string]any{"blocked": code})
		a.errorFrom(w, blocked)
		return nil, false
	}
	return &usageGate{sid: sid, today: today, rec: rec, event: event, record: record}, true
}

// commitGate counts and persists the use. On failure the response has been
// written.
func (a *App) commitGate(w http.ResponseWriter, r *http.Request, g *usageGate) bool {
	g.record(&g.rec, g.today)
	if err := a.saveUsage(r.Context(), g.sid, g.rec); err != nil {
		a.Logger.Error().Err(err).Msg("save usage record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist state")
		return false
	}
	a.logUsageEvent(r.Context(), g.sid, g.rec.UserID, g.event, true, nil)
	return true
}
