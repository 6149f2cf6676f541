package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus has two states. It is derived from progress on every progress
// write, but the manual toggle sets it independently (see Toggle).
type TaskStatus string

const (
	TaskIncomplete TaskStatus = "incomplete"
	TaskComplete   TaskStatus = "complete"
)

// TaskPriority is the caller-supplied urgency bucket.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task is one unit of work owned by a user.
type Task struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	Title       string
	Description string
	Priority    TaskPriority
	DueDate     *time.Time

	Progress int
	Status   TaskStatus

	// Version backs the optimistic compare-and-set in the storage layer.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateProgress rejects values outside [0,100]. No clamping: silently
// correcting an out-of-range value would hide caller bugs.
func ValidateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidProgress, progress)
	}
	return nil
}

// ValidatePriority normalizes and checks a priority string. Empty input
// defaults to medium.
func ValidatePriority(raw string) (TaskPriority, error) {
	p := TaskPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: priority must be one of low, medium, high", ErrInvalidRequest)
	}
}

// WithProgress applies the progress→status derivation rule:
// hitting exactly 100 forces complete; regressing below 100 from a complete
// state forces incomplete; any other move leaves status untouched.
func (t Task) WithProgress(progress int) (Task, error) {
	if err := ValidateProgress(progress); err != nil {
		return t, err
	}
	t.Progress = progress
	switch {
	case progress == 100:
		t.Status = TaskComplete
	case t.Status == TaskComplete:
		t.Status = TaskIncomplete
	}
	return t, nil
}

// Toggle flips status without touching progress. This is a deliberate escape
// hatch: it is the one transition after which status and progress may
// legitimately disagree, and it must not be "fixed" to resync them.
func (t Task) Toggle() Task {
	if t.Status == TaskComplete {
		t.Status = TaskIncomplete
	} else {
		t.Status = TaskComplete
	}
	return t
}
