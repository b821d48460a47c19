package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// SessionCookie names the visitor session cookie carrying the usage
	// record key. SPA clients may send the id in SessionHeader instead.
	SessionCookie = "exam_session"
	SessionHeader = "X-Session-ID"

	sessionCookieMaxAge = 180 * 24 * 60 * 60 // roughly six months
)

type sessionContextKey struct{}

// VisitorSession assigns every request a stable visitor session id. The id
// keys the tier/usage record; an id is minted and set as a cookie on first
// contact.
func VisitorSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get(SessionHeader)
		if sid == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sid = c.Value
			}
		}
		if sid == "" || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromContext returns the visitor session id assigned by
// VisitorSession, or "" when the middleware did not run.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionContextKey{}).(string); ok {
		return v
	}
	return ""
}
