package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stackyard/taskhub/internal/domain"
)

type taskRepository struct {
	db *gorm.DB
}

// updateRetries bounds the optimistic read-modify-write loop. Conflicts under
// typical single-user editing resolve on the first retry.
const updateRetries = 5

func (r *taskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	rec := toTaskModel(task)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Version = 1
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Task{}, storageErr("create task", err)
	}
	return toDomainTask(rec), nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	var rec taskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.Task{}, storageErr("get task", err)
	}
	return toDomainTask(rec), nil
}

func (r *taskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Task, error) {
	var rows []taskModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("list tasks by owner", err)
	}
	return toDomainTasks(rows), nil
}

func (r *taskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	var rows []taskModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	return toDomainTasks(rows), nil
}

// Update applies the transition under an optimistic version check: the write
// lands only if the version column still matches the row that was read, so a
// concurrent writer forces a fresh read instead of a lost update.
func (r *taskRepository) Update(ctx context.Context, id uuid.UUID, transition func(domain.Task) (domain.Task, error)) (domain.Task, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return domain.Task{}, err
		}

		next, err := transition(current)
		if err != nil {
			return domain.Task{}, err
		}
		next.ID = current.ID
		next.Version = current.Version + 1

		rec := toTaskModel(next)
		res := r.db.WithContext(ctx).
			Model(&taskModel{}).
			Where("id = ?", id).
			Where("version = ?", current.Version).
			Updates(map[string]any{
				"title":       rec.Title,
				"description": rec.Description,
				"priority":    rec.Priority,
				"due_date":    rec.DueDate,
				"progress":    rec.Progress,
				"status":      rec.Status,
				"version":     rec.Version,
				"updated_at":  rec.UpdatedAt,
			})
		if res.Error != nil {
			return domain.Task{}, storageErr("update task", res.Error)
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
	}
	return domain.Task{}, fmt.Errorf("update task: contention exhausted retries: %w", domain.ErrStorageConflict)
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&taskModel{})
	if res.Error != nil {
		return storageErr("delete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepository) Summary(ctx context.Context, ownerID uuid.UUID) (domain.TaskSummary, error) {
	var totals struct {
		Total      int64
		Complete   int64
		Incomplete int64
	}
	err := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("owner_id = ?", ownerID).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'complete' THEN 1 ELSE 0 END), 0) AS complete,
			COALESCE(SUM(CASE WHEN status = 'incomplete' THEN 1 ELSE 0 END), 0) AS incomplete`).
		Take(&totals).Error
	if err != nil {
		return domain.TaskSummary{}, storageErr("summarize tasks", err)
	}

	var byPriority []struct {
		Priority string
		N        int64
	}
	err = r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("owner_id = ?", ownerID).
		Select("priority, COUNT(*) AS n").
		Group("priority").
		Find(&byPriority).Error
	if err != nil {
		return domain.TaskSummary{}, storageErr("summarize tasks by priority", err)
	}

	summary := domain.TaskSummary{
		Total:      totals.Total,
		Complete:   totals.Complete,
		Incomplete: totals.Incomplete,
		ByPriority: make(map[domain.TaskPriority]int64, len(byPriority)),
	}
	for _, row := range byPriority {
		summary.ByPriority[domain.TaskPriority(row.Priority)] = row.N
	}
	return summary, nil
}

func toDomainTasks(rows []taskModel) []domain.Task {
	out := make([]domain.Task, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainTask(rec))
	}
	return out
}
