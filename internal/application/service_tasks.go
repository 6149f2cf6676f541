package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

// CreateTask stores a new task owned by the acting user. Text fields are
// trimmed on every write; progress, when supplied, goes through the same
// derivation rule as any other progress write.
func (s *Service) CreateTask(ctx context.Context, actor Actor, input CreateTaskInput) (domain.Task, error) {
	if actor.SubjectID == uuid.Nil {
		return domain.Task{}, domain.ErrUnauthorized
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Task{}, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest)
	}
	priority, err := domain.ValidatePriority(input.Priority)
	if err != nil {
		return domain.Task{}, err
	}

	now := s.nowFn()
	task := domain.Task{
		OwnerID:     actor.SubjectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		DueDate:     input.DueDate,
		Status:      domain.TaskIncomplete,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Progress != nil {
		task, err = task.WithProgress(*input.Progress)
		if err != nil {
			return domain.Task{}, err
		}
	}
	return s.tasks.Create(ctx, task)
}

// GetTask resolves a task the actor may act on. Foreign tasks surface as
// NotFound so ids are not probeable across owners.
func (s *Service) GetTask(ctx context.Context, actor Actor, id uuid.UUID) (domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !canActOn(actor, task) {
		return domain.Task{}, domain.ErrNotFound
	}
	return task, nil
}

// ListTasks returns the actor's tasks; admins see the full collection.
func (s *Service) ListTasks(ctx context.Context, actor Actor) ([]domain.Task, error) {
	if actor.SubjectID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if normalizeRole(actor.Role) == "admin" {
		return s.tasks.ListAll(ctx)
	}
	return s.tasks.ListByOwner(ctx, actor.SubjectID)
}

// SetTaskProgress writes a progress value through the status derivation rule
// as one atomic unit: two near-simultaneous writes can never interleave into
// a status computed from a stale progress value.
func (s *Service) SetTaskProgress(ctx context.Context, actor Actor, id uuid.UUID, progress int) (domain.Task, error) {
	if err := domain.ValidateProgress(progress); err != nil {
		return domain.Task{}, err
	}
	return s.mutateTask(ctx, actor, id, func(task domain.Task) (domain.Task, error) {
		return task.WithProgress(progress)
	})
}

// ToggleTaskStatus flips completion without touching progress — the one
// transition after which status and progress may legitimately disagree.
func (s *Service) ToggleTaskStatus(ctx context.Context, actor Actor, id uuid.UUID) (domain.Task, error) {
	return s.mutateTask(ctx, actor, id, func(task domain.Task) (domain.Task, error) {
		return task.Toggle(), nil
	})
}

// UpdateTask applies any subset of fields in one atomic transition.
func (s *Service) UpdateTask(ctx context.Context, actor Actor, id uuid.UUID, input UpdateTaskInput) (domain.Task, error) {
	if input.Progress != nil {
		if err := domain.ValidateProgress(*input.Progress); err != nil {
			return domain.Task{}, err
		}
	}
	var priority domain.TaskPriority
	if input.Priority != nil {
		p, err := domain.ValidatePriority(*input.Priority)
		if err != nil {
			return domain.Task{}, err
		}
		priority = p
	}

	return s.mutateTask(ctx, actor, id, func(task domain.Task) (domain.Task, error) {
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return task, fmt.Errorf("%w: title cannot be blank", domain.ErrInvalidRequest)
			}
			task.Title = title
		}
		if input.Description != nil {
			task.Description = strings.TrimSpace(*input.Description)
		}
		if input.Priority != nil {
			task.Priority = priority
		}
		if input.RemoveDueDate {
			task.DueDate = nil
		} else if input.DueDate != nil {
			task.DueDate = input.DueDate
		}
		if input.Progress != nil {
			return task.WithProgress(*input.Progress)
		}
		return task, nil
	})
}

// DeleteTask removes a task the actor may act on.
func (s *Service) DeleteTask(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.GetTask(ctx, actor, id); err != nil {
		return err
	}
	return s.tasks.Delete(ctx, id)
}

// TaskSummary rolls up the actor's tasks; an admin may target another user.
func (s *Service) TaskSummary(ctx context.Context, actor Actor, input TaskSummaryInput) (domain.TaskSummary, error) {
	if actor.SubjectID == uuid.Nil {
		return domain.TaskSummary{}, domain.ErrUnauthorized
	}
	target := actor.SubjectID
	if trimmed := strings.TrimSpace(input.UserID); trimmed != "" {
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return domain.TaskSummary{}, fmt.Errorf("%w: invalid user id", domain.ErrInvalidRequest)
		}
		if parsed != actor.SubjectID {
			if normalizeRole(actor.Role) != "admin" {
				return domain.TaskSummary{}, domain.ErrForbidden
			}
			target = parsed
		}
	}
	return s.tasks.Summary(ctx, target)
}

// mutateTask runs an ownership-checked transition through the repository's
// atomic update. Completion transitions emit a lifecycle event.
func (s *Service) mutateTask(ctx context.Context, actor Actor, id uuid.UUID, transition func(domain.Task) (domain.Task, error)) (domain.Task, error) {
	var completed bool
	updated, err := s.tasks.Update(ctx, id, func(task domain.Task) (domain.Task, error) {
		if !canActOn(actor, task) {
			return task, domain.ErrNotFound
		}
		before := task.Status
		next, err := transition(task)
		if err != nil {
			return task, err
		}
		next.UpdatedAt = s.nowFn()
		completed = before != domain.TaskComplete && next.Status == domain.TaskComplete
		return next, nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	if completed {
		payload := map[string]any{
			"task_id":  updated.ID.String(),
			"owner_id": updated.OwnerID.String(),
			"progress": updated.Progress,
		}
		if err := s.enqueueEvent(ctx, "task.completed", updated.OwnerID.String(), payload); err != nil {
			return domain.Task{}, err
		}
	}
	return updated, nil
}
