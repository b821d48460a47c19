package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"examprep/internal/domain"
	"examprep/internal/sqlinline"
	"examprep/internal/validate"
)

const captainBusyMessage = "The Captain is currently on a call. Please try again in a moment."

type questionDTO struct {
	ID            string   `json:"id,omitempty"`
	Subject       string   `json:"subject,omitempty"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

func questionToDTO(q domain.Question) questionDTO {
	return questionDTO{
		ID:            q.ID,
		Subject:       string(q.Subject),
		Question:      q.Question,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
}

type bankRequest struct {
	Subjects       []string `json:"subjects" validate:"required,min=1"`
	Count          int      `json:"count" validate:"gte=1,lte=50"`
	StudyDeckRatio float64  `json:"study_deck_ratio" validate:"gte=0,lte=1"`
}

type bankResponse struct {
	Questions []questionDTO `json:"questions"`
}

// BankQuestions serves a quiz from the pre-generated question bank,
// optionally mixing in questions from the caller's study deck. A served quiz
// counts as one quiz start against the visitor's cap; an empty bank does not.
func (a *App) BankQuestions(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Count == 0 {
		req.Count = 10
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	gate, ok := a.openQuizGate(w, r, "QUIZ_BANK")
	if !ok {
		return
	}

	questions := make([]questionDTO, 0, req.Count)

	deckCount := 0
	if userID := a.currentUserID(r); userID != "" && req.StudyDeckRatio > 0 {
		deckCount = int(float64(req.Count) * req.StudyDeckRatio)
		if deckCount > 0 {
			deck, err := a.queryQuestions(r, sqlinline.QSelectStudyDeckRandom, userID, deckCount)
			if err != nil {
				a.Logger.Error().Err(err).Msg("query study deck failed")
			} else {
				questions = append(questions, deck...)
			}
		}
	}

	bankCount := req.Count - len(questions)
	if bankCount > 0 {
		bank, err := a.queryQuestions(r, sqlinline.QSelectRandomQuestions, req.Subjects, bankCount)
		if err != nil {
			a.Logger.Error().Err(err).Msg("query question bank failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load questions")
			return
		}
		questions = append(questions, bank...)
	}

	if len(questions) == 0 {
		// Nothing was served, so the use is not counted.
		a.errorFrom(w, domain.ErrBankEmpty)
		return
	}
	if !a.commitGate(w, r, gate) {
		return
	}
	a.json(w, http.StatusOK, bankResponse{Questions: questions})
}

func (a *App) queryQuestions(r *http.Request, query string, args ...any) ([]questionDTO, error) {
	rows, err := a.SQL.Query(r.Context(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []questionDTO
	for rows.Next() {
		var (
			dto     questionDTO
			options []byte
		)
		if err := rows.Scan(&dto.ID, &dto.Subject, &dto.Question, &options, &dto.CorrectAnswer, &dto.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &dto.Options); err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, rows.Err()
}

type generateRequest struct {
	Topic string `json:"topic" validate:"required"`
}

// GenerateQuestion produces one question live from the AI provider. A served
// question counts as one quiz start against the visitor's cap; a provider
// failure does not.
func (a *App) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	gate, ok := a.openQuizGate(w, r, "QUIZ_GENERATE")
	if !ok {
		return
	}

	q, err := a.Study.Question(r.Context(), req.Topic)
	if err != nil {
		a.Logger.Error().Err(err).Msg("generate question failed")
		a.errorFrom(w, domain.ErrProviderFailure)
		return
	}
	if !a.commitGate(w, r, gate) {
		return
	}
	a.json(w, http.StatusOK, questionToDTO(*q))
}

type reportRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid"`
	Reason     string `json:"reason" validate:"max=500"`
}

// ReportQuestion flags a bank question for admin review.
func (a *App) ReportQuestion(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var userArg any
	if userID := a.currentUserID(r); userID != "" {
		userArg = userID
	}
	var reasonArg any
	if req.Reason != "" {
		reasonArg = req.Reason
	}
	row := a.SQL.QueryRow(r.Context(), sqlinline.QInsertQuestionReport, req.QuestionID, userArg, reasonArg)
	var reportID string
	if err := row.Scan(&reportID); err != nil {
		a.Logger.Error().Err(err).Msg("insert report failed")
		a.error(w, http.StatusInternalServerError, "internal", "reporting failed")
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"status":      "reported",
		"question_id": req.QuestionID,
		"report_id":   reportID,
	})
}

// BankStats reports per-subject approved-question counts.
func (a *App) BankStats(w http.ResponseWriter, r *http.Request) {
	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectBankStats)
	if err != nil {
		a.Logger.Error().Err(err).Msg("query bank stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	defer rows.Close()

	stats := make(map[string]int, len(domain.Subjects)+1)
	for _, s := range domain.Subjects {
		stats[string(s)] = 0
	}
	total := 0
	for rows.Next() {
		var (
			subject string
			count   int
		)
		if err := rows.Scan(&subject, &count); err != nil {
			a.Logger.Error().Err(err).Msg("scan bank stats failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
			return
		}
		stats[subject] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("read bank stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	stats["total"] = total
	a.json(w, http.StatusOK, stats)
}
