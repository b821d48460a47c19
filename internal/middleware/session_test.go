package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestVisitorSessionMintsID(t *testing.T) {
	var sid string
	handler := VisitorSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if uuid.Validate(sid) != nil {
		t.Fatalf("expected minted uuid, got %q", sid)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie missing")
	}
	if cookie.Value != sid {
		t.Fatalf("cookie %q != context %q", cookie.Value, sid)
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be http-only")
	}
}

func TestVisitorSessionKeepsCookie(t *testing.T) {
	existing := uuid.NewString()
	var sid string
	handler := VisitorSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: existing})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if sid != existing {
		t.Fatalf("sid = %q, want %q", sid, existing)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("should not reissue cookie for a valid session")
	}
}

func TestVisitorSessionHeaderWins(t *testing.T) {
	fromHeader := uuid.NewString()
	var sid string
	handler := VisitorSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, fromHeader)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: uuid.NewString()})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if sid != fromHeader {
		t.Fatalf("sid = %q, want header value %q", sid, fromHeader)
	}
}

func TestVisitorSessionRejectsGarbage(t *testing.T) {
	var sid string
	handler := VisitorSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "not-a-uuid")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if uuid.Validate(sid) != nil {
		t.Fatalf("expected fresh uuid, got %q", sid)
	}
	if sid == "not-a-uuid" {
		t.Fatal("garbage session id must not be kept")
	}
}
