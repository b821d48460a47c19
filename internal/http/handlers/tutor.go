package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"examprep/internal/domain"
	"examprep/internal/middleware"
	"examprep/internal/validate"
)

type tutorRequest struct {
	Subject   string `json:"subject" validate:"required"`
	UserInput string `json:"user_input" validate:"required,max=2000"`
}

// TutorExplain answers a study question in the tutor's voice. Not counted
// against usage caps; throttled by the AI rate limiter instead.
func (a *App) TutorExplain(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.UserInput = strings.TrimSpace(req.UserInput)
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if !domain.KnownSubject(domain.Subject(req.Subject)) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown subject")
		return
	}

	answer, err := a.Study.Explain(r.Context(), req.Subject, req.UserInput)
	if err != nil {
		a.Logger.Error().Err(err).Msg("tutor explain failed")
		a.errorFrom(w, domain.ErrProviderFailure)
		return
	}

	sid := middleware.SessionIDFromContext(r.Context())
	a.logUsageEvent(r.Context(), sid, a.currentUserID(r), "TUTOR_EXPLAIN", true, map[string]any{"subject": req.Subject})
	a.json(w, http.StatusOK, map[string]string{"explanation": answer})
}
