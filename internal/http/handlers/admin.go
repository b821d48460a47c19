package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"examprep/internal/domain"
	"examprep/internal/middleware"
	"examprep/internal/sqlinline"
	"examprep/pkg/export"
)

func (a *App) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	caller := domain.User{Role: domain.UserRole(middleware.UserRoleFromContext(r.Context()))}
	if !caller.IsAdmin() {
		a.error(w, http.StatusForbidden, "forbidden", "admin access required")
		return false
	}
	return true
}

type reportDTO struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	UserID     string    `json:"user_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
	Subject    string    `json:"subject"`
	Question   string    `json:"question"`
}

func reportToDTO(rep domain.QuestionReport) reportDTO {
	return reportDTO{
		ID:         rep.ID,
		QuestionID: rep.QuestionID,
		UserID:     rep.UserID,
		Reason:     rep.Reason,
		ReportedAt: rep.ReportedAt,
		Subject:    string(rep.Subject),
		Question:   rep.Question,
	}
}

// PendingReports lists unreviewed question reports, newest first.
func (a *App) PendingReports(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectPendingReports)
	if err != nil {
		a.Logger.Error().Err(err).Msg("query pending reports failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load reports")
		return
	}
	defer rows.Close()

	reports := []reportDTO{}
	for rows.Next() {
		var (
			rep     domain.QuestionReport
			subject string
		)
		if err := rows.Scan(&rep.ID, &rep.QuestionID, &rep.UserID, &rep.Reason, &rep.ReportedAt, &subject, &rep.Question); err != nil {
			a.Logger.Error().Err(err).Msg("scan report failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load reports")
			return
		}
		rep.Subject = domain.Subject(subject)
		reports = append(reports, reportToDTO(rep))
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("read reports failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load reports")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

// ReviewReport marks one report as handled.
func (a *App) ReviewReport(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	reportID := chi.URLParam(r, "reportID")
	if reportID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "report id required")
		return
	}

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QMarkReportReviewed, reportID); err != nil {
		a.Logger.Error().Err(err).Msg("mark report reviewed failed")
		a.error(w, http.StatusInternalServerError, "internal", "review failed")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "reviewed", "report_id": reportID})
}

type eventStatDTO struct {
	EventType string `json:"event_type"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
}

// UsageStats summarizes usage events over the last 24 hours.
func (a *App) UsageStats(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QUsageEventStats)
	if err != nil {
		a.Logger.Error().Err(err).Msg("query usage stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	defer rows.Close()

	stats := []eventStatDTO{}
	for rows.Next() {
		var s eventStatDTO
		if err := rows.Scan(&s.EventType, &s.Total, &s.Succeeded); err != nil {
			a.Logger.Error().Err(err).Msg("scan usage stats failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
			return
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("read usage stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"window": "24h", "events": stats})
}

// ExportQuestions streams the approved question bank as CSV.
func (a *App) ExportQuestions(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectApprovedQuestions)
	if err != nil {
		a.Logger.Error().Err(err).Msg("query approved questions failed")
		a.error(w, http.StatusInternalServerError, "internal", "export failed")
		return
	}
	defer rows.Close()

	var recs []export.QuestionRecord
	for rows.Next() {
		var (
			rec     export.QuestionRecord
			options []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Subject, &rec.Question, &options, &rec.CorrectAnswer, &rec.Explanation, &rec.QualityScore, &rec.ReportedCount, &rec.CreatedAt); err != nil {
			a.Logger.Error().Err(err).Msg("scan question failed")
			a.error(w, http.StatusInternalServerError, "internal", "export failed")
			return
		}
		rec.OptionsJSON = string(options)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("read questions failed")
		a.error(w, http.StatusInternalServerError, "internal", "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="question_bank.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteQuestionsCSV(w, recs); err != nil {
		a.Logger.Error().Err(err).Msg("write csv failed")
	}
}
