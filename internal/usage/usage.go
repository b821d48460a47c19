// Package usage implements the freemium tier and counter state machine that
// gates quiz and flashcard consumption. A visitor starts as an anonymous lead
// with lifetime caps, becomes a free user with daily caps after signing up,
// and loses all caps on upgrading to premium.
//
// The package never reads the wall clock: callers supply the current calendar
// date on every action and predicate, which keeps the state machine
// deterministic and trivially testable. Records are persisted as opaque JSON
// blobs by the caller; last write wins.
package usage

import (
	"encoding/json"
	"time"
)

// Tier selects which limit policy applies to a visitor.
type Tier string

const (
	// TierLead is an anonymous visitor, optionally with a captured email.
	// Counters accumulate for the lifetime of the record and never reset.
	TierLead Tier = "lead"
	// TierFree is an authenticated no-cost account. Counters reset once per
	// calendar day.
	TierFree Tier = "free"
	// TierPremium is a paying subscriber. No caps apply; counters are kept
	// for telemetry only.
	TierPremium Tier = "premium"
)

const (
	// LeadQuizLimit and LeadFlashcardLimit are lifetime caps for anonymous
	// visitors.
	LeadQuizLimit      = 10
	LeadFlashcardLimit = 10

	// FreeQuizLimit and FreeFlashcardLimit are per-day caps for free
	// accounts.
	FreeQuizLimit      = 10
	FreeFlashcardLimit = 10
)

const dateLayout = "2006-01-02"

// Date is a calendar date in the visitor's locale, formatted YYYY-MM-DD.
// Equality comparison is all the state machine ever needs.
type Date string

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// ParseDate validates a YYYY-MM-DD string supplied by a client.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", err
	}
	return DateOf(t), nil
}

// Record is the per-visitor tier and usage state. The zero value is not
// meaningful; use NewRecord.
type Record struct {
	Tier           Tier   `json:"tier"`
	Authenticated  bool   `json:"authenticated"`
	Email          string `json:"email,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	QuizCount      int    `json:"quiz_count"`
	FlashcardCount int    `json:"flashcard_count"`
	// LastReset is the date the daily counters were last zeroed. Meaningful
	// only for the free tier; empty otherwise. Both counters share it, so
	// whichever action happens first on a new day rolls both over together.
	LastReset Date `json:"last_reset,omitempty"`
}

// NewRecord returns the state for a first-time visitor.
func NewRecord() Record {
	return Record{Tier: TierLead}
}

// CaptureIdentity stores a lead's email without changing tier or counters.
func (r *Record) CaptureIdentity(email string) {
	if r.Tier != TierLead {
		return
	}
	r.Email = email
}

// Login marks the record authenticated and promotes a lead to the free tier,
// zeroing both counters and stamping today as the reset date. A record
// already at premium keeps premium; authentication alone never downgrades.
func (r *Record) Login(email, userID string, today Date) {
	r.Authenticated = true
	r.Email = email
	r.UserID = userID
	if r.Tier == TierPremium {
		return
	}
	r.Tier = TierFree
	r.QuizCount = 0
	r.FlashcardCount = 0
	r.LastReset = today
}

// Signup creates a free account for a lead: both counters reset to zero and
// the reset date becomes today, so a lead blocked at its lifetime cap can
// study again immediately after registering.
func (r *Record) Signup(email, userID string, today Date) {
	r.Authenticated = true
	r.Email = email
	r.UserID = userID
	r.Tier = TierFree
	r.QuizCount = 0
	r.FlashcardCount = 0
	r.LastReset = today
}

// Logout resets the record to first-visit defaults: identity cleared, tier
// forced back to lead, counters zeroed.
func (r *Record) Logout() {
	*r = NewRecord()
}

// Upgrade promotes the record to premium. Counters are left untouched.
func (r *Record) Upgrade() {
	r.Tier = TierPremium
}

// RecordQuizUse counts one quiz start against the record.
func (r *Record) RecordQuizUse(today Date) {
	r.recordUse(today, &r.QuizCount, &r.FlashcardCount)
}

// RecordFlashcardUse counts one flashcard view against the record.
func (r *Record) RecordFlashcardUse(today Date) {
	r.recordUse(today, &r.FlashcardCount, &r.QuizCount)
}

func (r *Record) recordUse(today Date, acted, other *int) {
	if r.Tier == TierFree && r.LastReset != today {
		// First use of a new day: both daily counters roll over together.
		*other = 0
		*acted = 1
		r.LastReset = today
		return
	}
	// Lead counters accumulate for life; premium counters are telemetry only.
	*acted++
}

// CanStartQuiz reports whether starting a quiz is permitted today.
func (r Record) CanStartQuiz(today Date) bool {
	return r.canStart(today, r.QuizCount, quizLimit(r.Tier))
}

// CanStartFlashcards reports whether viewing flashcards is permitted today.
func (r Record) CanStartFlashcards(today Date) bool {
	return r.canStart(today, r.FlashcardCount, flashcardLimit(r.Tier))
}

func (r Record) canStart(today Date, count, limit int) bool {
	switch r.Tier {
	case TierPremium:
		return true
	case TierFree:
		if r.LastReset != today {
			// Stored counts are stale; they count as zero until the next
			// mutating action rewrites them.
			return true
		}
		return count < limit
	default:
		return count < limit
	}
}

// RemainingQuizzes reports how many quiz starts are left today.
func (r Record) RemainingQuizzes(today Date) Remaining {
	return r.remaining(today, r.QuizCount, quizLimit(r.Tier))
}

// RemainingFlashcards reports how many flashcard views are left today.
func (r Record) RemainingFlashcards(today Date) Remaining {
	return r.remaining(today, r.FlashcardCount, flashcardLimit(r.Tier))
}

func (r Record) remaining(today Date, count, limit int) Remaining {
	switch r.Tier {
	case TierPremium:
		return Remaining{Unlimited: true}
	case TierFree:
		if r.LastReset != today {
			return Remaining{N: limit}
		}
		return Remaining{N: max(0, limit-count)}
	default:
		return Remaining{N: max(0, limit-count)}
	}
}

// NeedsSignup reports whether a lead has exhausted a lifetime cap and the UI
// should force an account-creation prompt instead of silently blocking.
func (r Record) NeedsSignup() bool {
	return r.Tier == TierLead &&
		(r.QuizCount >= LeadQuizLimit || r.FlashcardCount >= LeadFlashcardLimit)
}

// NeedsSubscription reports whether a free user has exhausted a daily cap
// today and the UI should show the upgrade-to-premium prompt. A stale reset
// date means the counters no longer apply, so no prompt is due.
func (r Record) NeedsSubscription(today Date) bool {
	return r.Tier == TierFree && r.LastReset == today &&
		(r.QuizCount >= FreeQuizLimit || r.FlashcardCount >= FreeFlashcardLimit)
}

func quizLimit(t Tier) int {
	if t == TierFree {
		return FreeQuizLimit
	}
	return LeadQuizLimit
}

func flashcardLimit(t Tier) int {
	if t == TierFree {
		return FreeFlashcardLimit
	}
	return LeadFlashcardLimit
}

// Remaining is a tagged remaining-use count: either a finite number or no
// limit at all. Marshals as the number, or the string "unlimited".
type Remaining struct {
	N         int
	Unlimited bool
}

// MarshalJSON implements json.Marshaler.
func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(r.N)
}

// UnmarshalJSON implements json.Unmarshaler, accepting the number or the
// string "unlimited" so the MarshalJSON round trip is lossless.
func (r *Remaining) UnmarshalJSON(b []byte) error {
	if string(b) == `"unlimited"` {
		*r = Remaining{Unlimited: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = Remaining{N: n}
	return nil
}
