package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignVerifyJWT(t *testing.T) {
	claims := TokenClaims{
		Sub:      "user-1",
		Email:    "captain@example.com",
		Role:     "user",
		Plan:     "premium",
		Exp:      time.Now().Add(time.Hour).Unix(),
		Issuer:   "examprep",
		Audience: "examprep-clients",
	}
	token, err := SignJWT("secret", claims)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	got, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if got.Sub != claims.Sub || got.Email != claims.Email || got.Plan != claims.Plan {
		t.Fatalf("claims mismatch: %+v", got)
	}
}

func TestVerifyJWTWrongSecret(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{Sub: "user-1"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT("other", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestVerifyJWTExpired(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{Sub: "user-1", Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestVerifyJWTMalformed(t *testing.T) {
	if _, err := VerifyJWT("secret", "not.a.token.at.all"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := VerifyJWT("secret", "onlyonepart"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{
		Sub:  "user-9",
		Role: "admin",
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	var gotID, gotRole string
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserIDFromContext(r.Context())
		gotRole = UserRoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotID != "user-9" || gotRole != "admin" {
		t.Fatalf("context identity = %q role %q", gotID, gotRole)
	}
}

func TestAuthJWTMiddlewareRejectsAnonymous(t *testing.T) {
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestOptionalAuthJWTPassesAnonymous(t *testing.T) {
	var gotID string
	handler := OptionalAuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotID != "" {
		t.Fatalf("expected empty identity, got %q", gotID)
	}
}
