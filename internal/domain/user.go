package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// UserPlan enumerates billing plans.
type UserPlan string

const (
	UserPlanFree    UserPlan = "free"
	UserPlanPremium UserPlan = "premium"
)

// User represents a registered account within the platform.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         UserRole
	Plan         UserPlan
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsPremium reports whether the user is on the paid plan.
func (u User) IsPremium() bool {
	return u.Plan == UserPlanPremium
}

// IsAdmin reports whether the user may access the admin surface.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
