package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stackyard/taskhub/internal/domain"
	"github.com/stackyard/taskhub/internal/ports"
)

// Repositories bundles the persistence adapters behind their ports.
type Repositories struct {
	Activity ports.ActivityRepository
	Tasks    ports.TaskRepository
	Outbox   ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Activity: &activityRepository{db: db},
		Tasks:    &taskRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}

// storageErr translates driver errors into the domain taxonomy: missing rows
// become ErrNotFound, everything else is surfaced as ErrStorageUnavailable so
// callers never branch on gorm internals.
func storageErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, domain.ErrStorageConflict)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnavailable)
}
