package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"examprep/internal/domain"
	"examprep/internal/middleware"
	"examprep/internal/providers/study"
	"examprep/internal/sqlinline"
	"examprep/internal/usage"
)

type fakeEvent struct {
	EventType string
	Success   bool
}

type fakeUserRow struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Plan         string
}

// fakeSQL dispatches on the sqlinline query constant, backing the handlers
// with in-memory maps.
type fakeSQL struct {
	records map[string][]byte
	users   map[string]fakeUserRow
	events  []fakeEvent
	bank    [][]any
	reports [][]any
}

func newFakeSQL() *fakeSQL {
	return &fakeSQL{
		records: map[string][]byte{},
		users:   map[string]fakeUserRow{},
	}
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	switch query {
	case sqlinline.QUpsertUsageRecord:
		f.records[args[0].(string)] = append([]byte(nil), args[1].([]byte)...)
	case sqlinline.QInsertUsageEvent:
		f.events = append(f.events, fakeEvent{EventType: args[2].(string), Success: args[3].(bool)})
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	switch query {
	case sqlinline.QSelectUsageRecord:
		blob, ok := f.records[args[0].(string)]
		if !ok {
			return NewSimpleRow(nil)
		}
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*[]byte) = blob
			return nil
		})
	case sqlinline.QSelectUserByEmail:
		user, ok := f.users[args[0].(string)]
		if !ok {
			return NewSimpleRow(nil)
		}
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*string) = user.ID
			*dest[1].(*string) = user.Email
			*dest[2].(*string) = user.PasswordHash
			*dest[3].(*string) = user.Role
			*dest[4].(*string) = user.Plan
			*dest[5].(*time.Time) = time.Now()
			*dest[6].(*time.Time) = time.Now()
			return nil
		})
	case sqlinline.QInsertUser:
		user := fakeUserRow{
			ID:           uuid.NewString(),
			Email:        args[0].(string),
			PasswordHash: args[1].(string),
			Role:         "user",
			Plan:         "free",
		}
		f.users[user.Email] = user
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*string) = user.ID
			*dest[1].(*string) = user.Email
			*dest[2].(*string) = user.Role
			*dest[3].(*string) = user.Plan
			*dest[4].(*time.Time) = time.Now()
			return nil
		})
	}
	return NewSimpleRow(nil)
}

func (f *fakeSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	switch query {
	case sqlinline.QSelectRandomQuestions:
		return &fakeRows{rows: f.bank}, nil
	case sqlinline.QSelectStudyDeckRandom:
		return &fakeRows{}, nil
	case sqlinline.QSelectPendingReports:
		return &fakeRows{rows: f.reports}, nil
	}
	return &fakeRows{}, nil
}

type fakeRows struct {
	TestRowsBase
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = row[i].(string)
		case *[]byte:
			*d = row[i].([]byte)
		case *int:
			*d = row[i].(int)
		case *time.Time:
			*d = row[i].(time.Time)
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() {}

func newTestApp(f *fakeSQL) *App {
	return NewApp(f, zerolog.Nop(), "test-secret", study.NewStaticGenerator())
}

// downGenerator fails every call, standing in for an unreachable provider.
type downGenerator struct{}

func (downGenerator) Question(context.Context, string) (*domain.Question, error) {
	return nil, errors.New("upstream down")
}

func (downGenerator) Flashcard(context.Context, []domain.Subject) (*domain.Flashcard, error) {
	return nil, errors.New("upstream down")
}

func (downGenerator) Explain(context.Context, string, string) (string, error) {
	return "", errors.New("upstream down")
}

const testDay = "2024-05-01"

// doSession routes a request through the visitor-session middleware so the
// handler sees the same context shape it gets in production.
func doSession(handler http.HandlerFunc, method, target, sid string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(middleware.SessionHeader, sid)
	req.Header.Set("X-Client-Date", testDay)
	rr := httptest.NewRecorder()
	middleware.VisitorSession(handler).ServeHTTP(rr, req)
	return rr
}

func storedRecord(t *testing.T, f *fakeSQL, sid string) usage.Record {
	t.Helper()
	blob, ok := f.records[sid]
	if !ok {
		t.Fatal("no usage record stored")
	}
	var rec usage.Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func seedRecord(t *testing.T, f *fakeSQL, sid string, rec usage.Record) {
	t.Helper()
	blob, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	f.records[sid] = blob
}

func TestUsageSummaryFreshVisitor(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()

	rr := doSession(app.UsageSummary, http.MethodGet, "/api/usage/summary", sid, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var got usageSummaryDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tier != "lead" || got.Authenticated {
		t.Fatalf("unexpected tier state: %+v", got)
	}
	if got.RemainingQuizzes.N != usage.LeadQuizLimit || got.RemainingQuizzes.Unlimited {
		t.Fatalf("remaining quizzes = %+v", got.RemainingQuizzes)
	}
	if got.NeedsSignup || got.NeedsSubscription {
		t.Fatalf("fresh visitor should not be gated: %+v", got)
	}
	if got.Today != testDay {
		t.Fatalf("today = %q, want %q", got.Today, testDay)
	}
}

func TestCaptureIdentityStoresEmail(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()

	body := []byte(`{"email":"lead@example.com"}`)
	rr := doSession(app.CaptureIdentity, http.MethodPost, "/api/usage/identity", sid, body)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	rec := storedRecord(t, f, sid)
	if rec.Email != "lead@example.com" {
		t.Fatalf("email = %q", rec.Email)
	}
	if rec.Tier != usage.TierLead {
		t.Fatalf("tier = %q, capture must not promote", rec.Tier)
	}
	if len(f.events) != 1 || f.events[0].EventType != "IDENTITY_CAPTURE" {
		t.Fatalf("events = %+v", f.events)
	}
}

func TestCaptureIdentityRejectsBadEmail(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)

	rr := doSession(app.CaptureIdentity, http.MethodPost, "/api/usage/identity", uuid.NewString(), []byte(`{"email":"nope"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestQuizGateCountsUse(t *testing.T) {
	f := newFakeSQL()
	f.bank = [][]any{
		{"q-1", "math", "What is 150 GPM over 4 minutes?", []byte(`["300","450","600","750"]`), "600", "150 x 4."},
	}
	app := newTestApp(f)
	sid := uuid.NewString()

	body := []byte(`{"subjects":["math"],"count":1}`)
	rr := doSession(app.BankQuestions, http.MethodPost, "/api/quiz/bank", sid, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp bankResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Questions) != 1 || resp.Questions[0].CorrectAnswer != "600" {
		t.Fatalf("questions = %+v", resp.Questions)
	}

	rec := storedRecord(t, f, sid)
	if rec.QuizCount != 1 {
		t.Fatalf("quiz count = %d, want 1", rec.QuizCount)
	}
	if rec.FlashcardCount != 0 {
		t.Fatalf("flashcard count = %d, quiz use must not touch it", rec.FlashcardCount)
	}
}

func TestQuizGateBlocksExhaustedLead(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()
	seedRecord(t, f, sid, usage.Record{Tier: usage.TierLead, QuizCount: usage.LeadQuizLimit})

	body := []byte(`{"subjects":["math"],"count":1}`)
	rr := doSession(app.BankQuestions, http.MethodPost, "/api/quiz/bank", sid, body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != codeSignupRequired {
		t.Fatalf("code = %q, want %q", envelope.Error.Code, codeSignupRequired)
	}

	rec := storedRecord(t, f, sid)
	if rec.QuizCount != usage.LeadQuizLimit {
		t.Fatalf("blocked attempt must not bump the counter: %d", rec.QuizCount)
	}
	if len(f.events) != 1 || f.events[0].Success {
		t.Fatalf("expected one failed event, got %+v", f.events)
	}
}

func TestFlashcardGateBlocksFreeDailyLimit(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()
	seedRecord(t, f, sid, usage.Record{
		Tier:           usage.TierFree,
		Authenticated:  true,
		FlashcardCount: usage.FreeFlashcardLimit,
		LastReset:      usage.Date(testDay),
	})

	rr := doSession(app.Flashcards, http.MethodGet, "/api/flashcards?subjects=math", sid, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != codeSubscriptionRequired {
		t.Fatalf("code = %q, want %q", envelope.Error.Code, codeSubscriptionRequired)
	}
}

func TestFlashcardGateRollsOverStaleDay(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()
	seedRecord(t, f, sid, usage.Record{
		Tier:           usage.TierFree,
		Authenticated:  true,
		QuizCount:      7,
		FlashcardCount: usage.FreeFlashcardLimit,
		LastReset:      usage.Date("2024-04-30"),
	})

	rr := doSession(app.Flashcards, http.MethodGet, "/api/flashcards?subjects=math&count=1", sid, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	rec := storedRecord(t, f, sid)
	if rec.FlashcardCount != 1 {
		t.Fatalf("flashcard count = %d, want 1 after rollover", rec.FlashcardCount)
	}
	if rec.QuizCount != 0 {
		t.Fatalf("quiz count = %d, rollover zeroes both counters", rec.QuizCount)
	}
	if rec.LastReset != usage.Date(testDay) {
		t.Fatalf("last reset = %q, want %q", rec.LastReset, testDay)
	}
}

func TestPremiumNeverGated(t *testing.T) {
	f := newFakeSQL()
	f.bank = [][]any{
		{"q-1", "math", "Q", []byte(`["a","b","c","d"]`), "a", "e"},
	}
	app := newTestApp(f)
	sid := uuid.NewString()
	seedRecord(t, f, sid, usage.Record{
		Tier:          usage.TierPremium,
		Authenticated: true,
		QuizCount:     9000,
	})

	body := []byte(`{"subjects":["math"],"count":1}`)
	rr := doSession(app.BankQuestions, http.MethodPost, "/api/quiz/bank", sid, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	rec := storedRecord(t, f, sid)
	if rec.QuizCount != 9001 {
		t.Fatalf("quiz count = %d, premium use is still tallied", rec.QuizCount)
	}
}

func TestQuizBankEmptyDoesNotConsumeUse(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()
	seedRecord(t, f, sid, usage.Record{Tier: usage.TierLead, QuizCount: 3})

	body := []byte(`{"subjects":["math"],"count":1}`)
	rr := doSession(app.BankQuestions, http.MethodPost, "/api/quiz/bank", sid, body)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "bank_empty" {
		t.Fatalf("code = %q, want bank_empty", envelope.Error.Code)
	}

	rec := storedRecord(t, f, sid)
	if rec.QuizCount != 3 {
		t.Fatalf("quiz count = %d, an unserved quiz must not count", rec.QuizCount)
	}
	if len(f.events) != 0 {
		t.Fatalf("events = %+v, want none", f.events)
	}
}

func TestGenerateQuestionProviderDownDoesNotConsumeUse(t *testing.T) {
	f := newFakeSQL()
	app := NewApp(f, zerolog.Nop(), "test-secret", downGenerator{})
	sid := uuid.NewString()
	seedRecord(t, f, sid, usage.Record{Tier: usage.TierLead, QuizCount: 2})

	body := []byte(`{"topic":"math"}`)
	rr := doSession(app.GenerateQuestion, http.MethodPost, "/api/quiz/generate", sid, body)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "provider_unavailable" {
		t.Fatalf("code = %q, want provider_unavailable", envelope.Error.Code)
	}

	rec := storedRecord(t, f, sid)
	if rec.QuizCount != 2 {
		t.Fatalf("quiz count = %d, a failed generation must not count", rec.QuizCount)
	}
}

func TestUsageSummaryIncludesLocale(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)

	req := httptest.NewRequest(http.MethodGet, "/api/usage/summary", nil)
	req.Header.Set(middleware.SessionHeader, uuid.NewString())
	req.Header.Set("X-Client-Date", testDay)
	req.Header.Set("X-Locale", "es-MX")
	rr := httptest.NewRecorder()
	middleware.VisitorSession(middleware.I18N("en", nil)(http.HandlerFunc(app.UsageSummary))).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var got usageSummaryDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Locale != "es" {
		t.Fatalf("locale = %q, want es", got.Locale)
	}
}

func TestGenerateQuestionServesStaticFallback(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()

	body := []byte(`{"topic":"math"}`)
	rr := doSession(app.GenerateQuestion, http.MethodPost, "/api/quiz/generate", sid, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var got questionDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Question == "" || len(got.Options) != 4 {
		t.Fatalf("unexpected question payload: %+v", got)
	}
}

func TestTutorExplain(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)
	sid := uuid.NewString()

	body := []byte(`{"subject":"math","user_input":"how do I handle friction loss?"}`)
	rr := doSession(app.TutorExplain, http.MethodPost, "/api/tutor/explain", sid, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var got map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["explanation"] == "" {
		t.Fatal("explanation missing")
	}
}

func TestTutorExplainUnknownSubject(t *testing.T) {
	f := newFakeSQL()
	app := newTestApp(f)

	body := []byte(`{"subject":"astrology","user_input":"stars"}`)
	rr := doSession(app.TutorExplain, http.MethodPost, "/api/tutor/explain", uuid.NewString(), body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}
