package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

// ActivityRepository is the persistence contract for the session ledger.
// Lifecycle mutations (CloseMostRecentActive, ExpireByCredential) must be
// atomic per record set: no intermediate state is visible to concurrent callers.
type ActivityRepository interface {
	Insert(ctx context.Context, event domain.SessionEvent) (domain.SessionEvent, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.SessionEvent, error)

	// CloseMostRecentActive finds the newest active login entry for the
	// (subject, credential instance) pair and transitions it to logged_out in
	// place. A nil result with nil error means nothing was open to close,
	// which callers treat as an idempotent no-op rather than a failure.
	CloseMostRecentActive(ctx context.Context, subjectID, credentialInstanceID uuid.UUID, at time.Time) (*domain.SessionEvent, error)

	// ExpireByCredential transitions every active entry for the credential
	// instance to expired, stamping neither logout time nor duration.
	// Re-running over an already-expired set changes nothing.
	ExpireByCredential(ctx context.Context, credentialInstanceID uuid.UUID) (int64, error)

	List(ctx context.Context, filter domain.ActivityFilter, sort domain.ActivitySort, page, pageSize int) ([]domain.SessionEvent, int64, error)
	Aggregate(ctx context.Context, filter domain.ActivityFilter) (domain.ActivityStats, error)
	CountSince(ctx context.Context, windowStart time.Time, filter domain.ActivityFilter) (int64, error)

	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	// DeleteByFilter compiles the predicate to a native bulk delete; matched
	// rows are never materialized into memory first.
	DeleteByFilter(ctx context.Context, filter domain.ActivityFilter) (int64, error)
}

// TaskRepository is the persistence contract for tasks. Update runs the
// supplied transition inside an atomic read-modify-write keyed on the task's
// version column, retrying bounded times before surfacing ErrStorageConflict.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Task, error)
	ListAll(ctx context.Context) ([]domain.Task, error)
	Update(ctx context.Context, id uuid.UUID, transition func(domain.Task) (domain.Task, error)) (domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, ownerID uuid.UUID) (domain.TaskSummary, error)
}
