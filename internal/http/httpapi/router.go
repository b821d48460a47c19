package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"examprep/internal/http/handlers"
	"examprep/internal/infra"
	"examprep/internal/middleware"
)

// NewRouter mounts the API surface. All routes ride the visitor-session and
// optional-auth middlewares; AI-backed routes get the tighter rate limit.
func NewRouter(app *handlers.App, cfg *infra.Config, country middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.VisitorSession,
		middleware.I18N(cfg.DefaultLocale, country),
		middleware.OptionalAuthJWT(cfg.JWTSecret),
	)

	standardLimit := middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)
	aiLimit := middleware.RateLimit(cfg.AIRateLimitPerMin, time.Minute)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(standardLimit)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", app.Register)
				r.Post("/login", app.Login)
				r.Post("/logout", app.Logout)
				r.With(middleware.AuthJWT(cfg.JWTSecret)).Get("/me", app.Me)
			})

			r.Route("/usage", func(r chi.Router) {
				r.Get("/summary", app.UsageSummary)
				r.Post("/identity", app.CaptureIdentity)
			})

			r.With(middleware.AuthJWT(cfg.JWTSecret)).Post("/billing/upgrade", app.Upgrade)

			r.Route("/quiz", func(r chi.Router) {
				r.Post("/bank", app.BankQuestions)
				r.Post("/report", app.ReportQuestion)
				r.Get("/bank-stats", app.BankStats)
			})

			r.Route("/study-deck", func(r chi.Router) {
				r.Use(middleware.AuthJWT(cfg.JWTSecret))
				r.Get("/", app.StudyDeckList)
				r.Post("/", app.StudyDeckAdd)
				r.Delete("/{questionID}", app.StudyDeckRemove)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AuthJWT(cfg.JWTSecret))
				r.Get("/reports", app.PendingReports)
				r.Post("/reports/{reportID}/review", app.ReviewReport)
				r.Get("/questions/export", app.ExportQuestions)
				r.Get("/usage-stats", app.UsageStats)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(aiLimit)
			r.Post("/quiz/generate", app.GenerateQuestion)
			r.Get("/flashcards", app.Flashcards)
			r.Post("/tutor/explain", app.TutorExplain)
		})
	})

	return r
}
