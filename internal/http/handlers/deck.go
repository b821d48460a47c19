package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"examprep/internal/middleware"
	"examprep/internal/sqlinline"
	"examprep/internal/validate"
)

type deckAddRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid"`
}

// StudyDeckAdd saves a question to the caller's study deck. Requires auth.
func (a *App) StudyDeckAdd(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "login required")
		return
	}

	var req deckAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertStudyDeckEntry, userID, req.QuestionID); err != nil {
		a.Logger.Error().Err(err).Msg("insert study deck entry failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save question")
		return
	}
	sid := middleware.SessionIDFromContext(r.Context())
	a.logUsageEvent(r.Context(), sid, userID, "DECK_ADD", true, map[string]any{"question_id": req.QuestionID})
	a.json(w, http.StatusOK, map[string]string{"status": "saved", "question_id": req.QuestionID})
}

// StudyDeckRemove drops a question from the caller's study deck.
func (a *App) StudyDeckRemove(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "login required")
		return
	}
	questionID := chi.URLParam(r, "questionID")
	if questionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "question id required")
		return
	}

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QDeleteStudyDeckEntry, userID, questionID); err != nil {
		a.Logger.Error().Err(err).Msg("delete study deck entry failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to remove question")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "removed", "question_id": questionID})
}

// StudyDeckList returns the caller's saved questions, newest first.
func (a *App) StudyDeckList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "login required")
		return
	}

	questions, err := a.queryQuestions(r, sqlinline.QSelectStudyDeck, userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("query study deck failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load study deck")
		return
	}
	if questions == nil {
		questions = []questionDTO{}
	}
	a.json(w, http.StatusOK, map[string]any{"questions": questions, "count": len(questions)})
}
