package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"examprep/internal/domain"
	"examprep/internal/infra"
	"examprep/internal/middleware"
	"examprep/internal/sqlinline"
	"examprep/internal/validate"
)

const (
	tokenTTL      = 7 * 24 * time.Hour
	tokenIssuer   = "examprep"
	tokenAudience = "examprep-clients"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  userProfileDTO  `json:"user"`
	Usage usageSummaryDTO `json:"usage"`
}

type userProfileDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Plan  string `json:"plan"`
}

// Register creates an account and promotes the visitor's usage record from
// lead to free, which resets both counters for the day.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if _, err := a.userByEmail(r, req.Email); err == nil {
		a.errorFrom(w, domain.ErrEmailTaken)
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		a.Logger.Error().Err(err).Msg("lookup user failed")
		a.error(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.Logger.Error().Err(err).Msg("hash password failed")
		a.error(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}

	var (
		userID    string
		email     string
		role      string
		plan      string
		createdAt time.Time
	)
	row := a.SQL.QueryRow(r.Context(), sqlinline.QInsertUser, req.Email, string(hash))
	if err := row.Scan(&userID, &email, &role, &plan, &createdAt); err != nil {
		a.Logger.Error().Err(err).Msg("insert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}

	a.issueAuth(w, r, domain.User{ID: userID, Email: email, Role: domain.UserRole(role), Plan: domain.UserPlan(plan)}, true)
}

// Login verifies credentials and promotes the visitor's usage record.
// Premium accounts come back at the premium tier; authentication never
// downgrades a record.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	user, err := a.userByEmail(r, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Err(err).Msg("lookup user failed")
		}
		a.errorFrom(w, domain.ErrUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		a.errorFrom(w, domain.ErrUnauthorized)
		return
	}

	a.issueAuth(w, r, user, false)
}

// issueAuth signs a token and applies the login/signup transition to the
// visitor's usage record.
func (a *App) issueAuth(w http.ResponseWriter, r *http.Request, user domain.User, isSignup bool) {
	token, err := middleware.SignJWT(a.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
		Plan:     string(user.Plan),
		Exp:      time.Now().Add(tokenTTL).Unix(),
		Issuer:   tokenIssuer,
		Audience: tokenAudience,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	sid := middleware.SessionIDFromContext(r.Context())
	today := a.today(r)
	rec := a.loadUsage(r.Context(), sid)
	if isSignup {
		rec.Signup(user.Email, user.ID, today)
	} else {
		rec.Login(user.Email, user.ID, today)
	}
	if user.IsPremium() {
		rec.Upgrade()
	}
	if err := a.saveUsage(r.Context(), sid, rec); err != nil {
		a.Logger.Error().Err(err).Msg("save usage record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist state")
		return
	}
	event := "LOGIN"
	if isSignup {
		event = "SIGNUP"
	}
	a.logUsageEvent(r.Context(), sid, user.ID, event, true, nil)

	a.json(w, http.StatusOK, authResponse{
		Token: token,
		User: userProfileDTO{
			ID:    user.ID,
			Email: user.Email,
			Role:  string(user.Role),
			Plan:  string(user.Plan),
		},
		Usage: a.usageSummary(r, rec, today),
	})
}

// Logout resets the visitor's usage record to first-visit defaults. Tokens
// are stateless and simply expire client-side.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if sid == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "missing visitor session")
		return
	}
	rec := a.loadUsage(r.Context(), sid)
	userID := rec.UserID
	rec.Logout()
	if err := a.saveUsage(r.Context(), sid, rec); err != nil {
		a.Logger.Error().Err(err).Msg("save usage record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist state")
		return
	}
	a.logUsageEvent(r.Context(), sid, userID, "LOGOUT", true, nil)
	a.json(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated user's profile.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.userByID(r, userID)
	if err != nil {
		a.errorFrom(w, domain.ErrNotFound)
		return
	}
	a.json(w, http.StatusOK, userProfileDTO{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
		Plan:  string(user.Plan),
	})
}

// Upgrade moves the authenticated user to the premium plan and lifts the
// caps on their usage record. Payment capture belongs to the external
// billing collaborator; this endpoint records the outcome.
func (a *App) Upgrade(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	row := a.SQL.QueryRow(r.Context(), sqlinline.QUpdateUserPlan, userID, string(domain.UserPlanPremium))
	var id, email, plan string
	if err := row.Scan(&id, &email, &plan); err != nil {
		a.Logger.Error().Err(err).Msg("update plan failed")
		a.error(w, http.StatusInternalServerError, "internal", "upgrade failed")
		return
	}

	sid := middleware.SessionIDFromContext(r.Context())
	rec := a.loadUsage(r.Context(), sid)
	rec.Upgrade()
	if err := a.saveUsage(r.Context(), sid, rec); err != nil {
		a.Logger.Error().Err(err).Msg("save usage record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist state")
		return
	}
	a.logUsageEvent(r.Context(), sid, userID, "UPGRADE", true, nil)

	a.json(w, http.StatusOK, map[string]string{"status": "upgraded", "plan": plan})
}

// userByEmail and userByID translate an absent row to domain.ErrNotFound so
// callers branch on the sentinel instead of the driver error.
func (a *App) userByEmail(r *http.Request, email string) (domain.User, error) {
	return a.scanUser(a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserByEmail, email))
}

func (a *App) userByID(r *http.Request, id string) (domain.User, error) {
	return a.scanUser(a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserByID, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (a *App) scanUser(row rowScanner) (domain.User, error) {
	var (
		user domain.User
		role string
		plan string
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &plan, &user.CreatedAt, &user.UpdatedAt)
	if infra.IsNoRows(err) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	user.Role = domain.UserRole(role)
	user.Plan = domain.UserPlan(plan)
	return user, nil
}
