package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"examprep/internal/domain"
	"examprep/internal/infra"
	"examprep/internal/middleware"
	"examprep/internal/providers/study"
	"examprep/internal/sqlinline"
	"examprep/internal/usage"
)

// App carries the dependencies shared by all HTTP handlers.
type App struct {
	SQL       infra.SQLExecutor
	Logger    zerolog.Logger
	JWTSecret string
	Study     study.Generator
}

func NewApp(sql infra.SQLExecutor, logger zerolog.Logger, jwtSecret string, gen study.Generator) *App {
	return &App{SQL: sql, Logger: logger, JWTSecret: jwtSecret, Study: gen}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// errorFrom writes the envelope for a domain sentinel error.
func (a *App) errorFrom(w http.ResponseWriter, err error) {
	status, code, message := sentinelHTTP(err)
	a.error(w, status, code, message)
}

// sentinelHTTP maps domain sentinels to their HTTP status, envelope code, and
// user-facing message.
func sentinelHTTP(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrSignupRequired):
		return http.StatusForbidden, codeSignupRequired, "free trial exhausted, create an account to keep studying"
	case errors.Is(err, domain.ErrSubscriptionRequired):
		return http.StatusForbidden, codeSubscriptionRequired, "daily limit reached, upgrade to premium for unlimited studying"
	case errors.Is(err, domain.ErrBankEmpty):
		return http.StatusNotFound, "bank_empty", "question bank is empty, please wait for questions to be generated"
	case errors.Is(err, domain.ErrProviderFailure):
		return http.StatusServiceUnavailable, "provider_unavailable", captainBusyMessage
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "conflict", "email already registered"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "invalid credentials"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// today resolves the caller's calendar date. Clients may send their local
// date in X-Client-Date so daily resets follow the visitor's midnight; the
// server's UTC date is the fallback.
func (a *App) today(r *http.Request) usage.Date {
	if raw := r.Header.Get("X-Client-Date"); raw != "" {
		if d, err := usage.ParseDate(raw); err == nil {
			return d
		}
	}
	return usage.DateOf(time.Now().UTC())
}

// loadUsage fetches the visitor's tier/usage record, returning first-visit
// defaults when none is stored yet or the stored blob cannot be read.
func (a *App) loadUsage(ctx context.Context, sessionID string) usage.Record {
	row := a.SQL.QueryRow(ctx, sqlinline.QSelectUsageRecord, sessionID)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if !infra.IsNoRows(err) {
			a.Logger.Error().Err(err).Msg("load usage record failed")
		}
		return usage.NewRecord()
	}
	var rec usage.Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		a.Logger.Error().Err(err).Msg("decode usage record failed")
		return usage.NewRecord()
	}
	if rec.Tier == "" {
		return usage.NewRecord()
	}
	return rec
}

func (a *App) saveUsage(ctx context.Context, sessionID string, rec usage.Record) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = a.SQL.Exec(ctx, sqlinline.QUpsertUsageRecord, sessionID, blob)
	return err
}

// logUsageEvent records telemetry best-effort; failures are logged, never
// surfaced to the caller.
func (a *App) logUsageEvent(ctx context.Context, sessionID, userID, eventType string, success bool, props map[string]any) {
	var userArg any
	if userID != "" {
		userArg = userID
	}
	var propsArg any
	if len(props) > 0 {
		raw, err := json.Marshal(props)
		if err == nil {
			propsArg = raw
		}
	}
	_, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent, sessionID, userArg, eventType, success, propsArg)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Str("event", eventType).Msg("log usage event failed")
	}
}
