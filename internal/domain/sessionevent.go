package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// EventAction enumerates the kinds of entries the activity ledger records.
type EventAction string

const (
	ActionLogin        EventAction = "login"
	ActionLogout       EventAction = "logout"
	ActionTokenRefresh EventAction = "token_refresh"
	ActionFailedLogin  EventAction = "failed_login"
)

// SessionStatus is the lifecycle state of a login entry. Only login entries
// carry a status; audit-only entries (failed_login, token_refresh) leave it empty.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusExpired   SessionStatus = "expired"
	StatusLoggedOut SessionStatus = "logged_out"
)

// SessionEvent is one row of the activity ledger: a login attempt, a token
// refresh, or a login entry that a later logout/expiry transitions in place.
// Identity fields are a snapshot captured at event time, never a live
// reference, so history stays stable against later profile edits.
type SessionEvent struct {
	ID          uuid.UUID
	SubjectID   uuid.UUID
	DisplayName string
	Email       string
	Role        string

	Action EventAction
	Status SessionStatus

	// CredentialInstanceID identifies one issued credential. It is the
	// correlation key between a login and its eventual logout, so a logout on
	// one device cannot close a session held by another.
	CredentialInstanceID uuid.UUID

	LoginTime  *time.Time
	LogoutTime *time.Time
	// DurationMinutes is computed when the session closes gracefully.
	// Expired (abandoned) sessions never receive one.
	DurationMinutes *int

	SourceAddress string
	ClientAgent   string

	CreatedAt time.Time
}

// Open reports whether the entry represents a session that can still be
// closed by a logout or an expiry sweep.
func (e SessionEvent) Open() bool {
	return e.Action == ActionLogin && e.Status == StatusActive
}

// SessionDurationMinutes rounds the login→logout interval to whole minutes,
// floored at zero so clock skew never yields a negative duration.
func SessionDurationMinutes(loginTime, logoutTime time.Time) int {
	minutes := math.Round(logoutTime.Sub(loginTime).Minutes())
	if minutes < 0 {
		return 0
	}
	return int(minutes)
}

// Close transitions an open login entry to logged_out, stamping the logout
// time and derived duration. Callers must only invoke it on open entries.
func (e SessionEvent) Close(at time.Time) SessionEvent {
	e.Status = StatusLoggedOut
	e.LogoutTime = &at
	if e.LoginTime != nil {
		d := SessionDurationMinutes(*e.LoginTime, at)
		e.DurationMinutes = &d
	}
	return e
}
