package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

// Actor is the verified principal a request acts as. It is resolved by the
// transport layer; application code never re-verifies credentials.
type Actor struct {
	SubjectID            uuid.UUID
	Role                 string
	Email                string
	DisplayName          string
	CredentialInstanceID uuid.UUID
	RequestID            string
}

// RecordLoginInput carries the identity snapshot captured at login time.
type RecordLoginInput struct {
	SubjectID            uuid.UUID
	DisplayName          string
	Email                string
	Role                 string
	CredentialInstanceID uuid.UUID
	SourceAddress        string
	ClientAgent          string
}

// RecordFailedLoginInput records an attempt that never produced a session.
type RecordFailedLoginInput struct {
	AttemptedEmail string
	Role           string
	SourceAddress  string
	ClientAgent    string
}

// ActivityQuery is the transport-shaped filter/sort/page request for ledger reads.
type ActivityQuery struct {
	Action        string
	Role          string
	EmailContains string
	From          *time.Time
	To            *time.Time
	SortField     string
	SortDirection string
	Page          int
	PageSize      int
}

// ActivityStatsResult couples the aggregate with a recent-activity window.
type ActivityStatsResult struct {
	Stats              domain.ActivityStats
	Since              time.Time
	RecentTotal        int64
	RecentFailedLogins int64
}

// PurgeInput is the bulk-delete request: exactly one of IDs or Filter.
type PurgeInput struct {
	IDs    []uuid.UUID
	Filter *ActivityQuery
}

// CreateTaskInput creates an owner-scoped task. Progress defaults to zero.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
	Progress    *int
}

// UpdateTaskInput applies any subset of fields; nil pointers leave the field
// untouched. RemoveDueDate clears the due date explicitly since a nil pointer
// already means "not supplied".
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *string
	DueDate       *time.Time
	RemoveDueDate bool
	Progress      *int
}

// TaskSummaryInput lets an admin roll up another user's tasks.
type TaskSummaryInput struct {
	UserID string
}
