package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stackyard/taskhub/internal/domain"
)

type activityRepository struct {
	db *gorm.DB
}

// closeRetries bounds the select-then-guarded-update loop when two logout
// requests race over the same credential instance.
const closeRetries = 3

func (r *activityRepository) Insert(ctx context.Context, event domain.SessionEvent) (domain.SessionEvent, error) {
	rec := toEventModel(event)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.SessionEvent{}, storageErr("insert session event", err)
	}
	return toDomainEvent(rec), nil
}

func (r *activityRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.SessionEvent, error) {
	var rec sessionEventModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.SessionEvent{}, storageErr("get session event", err)
	}
	return toDomainEvent(rec), nil
}

func (r *activityRepository) CloseMostRecentActive(ctx context.Context, subjectID, credentialInstanceID uuid.UUID, at time.Time) (*domain.SessionEvent, error) {
	for attempt := 0; attempt < closeRetries; attempt++ {
		var rec sessionEventModel
		err := r.db.WithContext(ctx).
			Where("subject_id = ?", subjectID).
			Where("credential_instance_id = ?", credentialInstanceID).
			Where("status = ?", string(domain.StatusActive)).
			Order("created_at DESC").
			Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, storageErr("find active session event", err)
		}

		closed := toDomainEvent(rec).Close(at)
		res := r.db.WithContext(ctx).
			Model(&sessionEventModel{}).
			Where("id = ?", rec.ID).
			Where("status = ?", string(domain.StatusActive)).
			Updates(map[string]any{
				"status":                   string(closed.Status),
				"logout_time":              closed.LogoutTime,
				"session_duration_minutes": closed.DurationMinutes,
			})
		if res.Error != nil {
			return nil, storageErr("close session event", res.Error)
		}
		if res.RowsAffected == 1 {
			return &closed, nil
		}
		// Someone closed or expired this entry between the select and the
		// update; re-select in case an older active entry remains.
	}
	return nil, fmt.Errorf("close session event: contention exhausted retries: %w", domain.ErrStorageConflict)
}

func (r *activityRepository) ExpireByCredential(ctx context.Context, credentialInstanceID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionEventModel{}).
		Where("credential_instance_id = ?", credentialInstanceID).
		Where("status = ?", string(domain.StatusActive)).
		Update("status", string(domain.StatusExpired))
	if res.Error != nil {
		return 0, storageErr("expire session events", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *activityRepository) List(ctx context.Context, filter domain.ActivityFilter, sort domain.ActivitySort, page, pageSize int) ([]domain.SessionEvent, int64, error) {
	base := r.db.WithContext(ctx).Model(&sessionEventModel{}).Scopes(activityScope(filter))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, storageErr("count session events", err)
	}

	var rows []sessionEventModel
	err := base.Session(&gorm.Session{}).
		Order(orderClause(sort)).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, storageErr("list session events", err)
	}

	items := make([]domain.SessionEvent, 0, len(rows))
	for _, rec := range rows {
		items = append(items, toDomainEvent(rec))
	}
	return items, total, nil
}

// sortColumns whitelists the sortable fields; everything else falls back to
// insertion order.
var sortColumns = map[string]string{
	"created_at":               "created_at",
	"email":                    "email",
	"action":                   "action",
	"login_time":               "login_time",
	"session_duration_minutes": "session_duration_minutes",
}

func orderClause(sort domain.ActivitySort) string {
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Direction == domain.SortDesc {
		direction = "DESC"
	}
	return column + " " + direction
}

func activityScope(filter domain.ActivityFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if filter.Action != "" {
			tx = tx.Where("action = ?", string(filter.Action))
		}
		if filter.Role != "" {
			tx = tx.Where("role = ?", filter.Role)
		}
		if filter.EmailContains != "" {
			needle := "%" + strings.ToLower(filter.EmailContains) + "%"
			tx = tx.Where("LOWER(email) LIKE ?", needle)
		}
		if filter.From != nil {
			tx = tx.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			tx = tx.Where("created_at <= ?", *filter.To)
		}
		return tx
	}
}

func (r *activityRepository) Aggregate(ctx context.Context, filter domain.ActivityFilter) (domain.ActivityStats, error) {
	var row struct {
		Total             int64
		Logins            int64
		Logouts           int64
		FailedLogins      int64
		AdminEntries      int64
		UserEntries       int64
		AvgSessionMinutes *float64
	}
	err := r.db.WithContext(ctx).
		Model(&sessionEventModel{}).
		Scopes(activityScope(filter)).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN action = 'login' THEN 1 ELSE 0 END), 0) AS logins,
			COALESCE(SUM(CASE WHEN action = 'logout' THEN 1 ELSE 0 END), 0) AS logouts,
			COALESCE(SUM(CASE WHEN action = 'failed_login' THEN 1 ELSE 0 END), 0) AS failed_logins,
			COALESCE(SUM(CASE WHEN role = 'admin' THEN 1 ELSE 0 END), 0) AS admin_entries,
			COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0) AS user_entries,
			AVG(CASE WHEN session_duration_minutes > 0 THEN session_duration_minutes END) AS avg_session_minutes`).
		Take(&row).Error
	if err != nil {
		return domain.ActivityStats{}, storageErr("aggregate session events", err)
	}
	stats := domain.ActivityStats{
		Total:        row.Total,
		Logins:       row.Logins,
		Logouts:      row.Logouts,
		FailedLogins: row.FailedLogins,
		AdminEntries: row.AdminEntries,
		UserEntries:  row.UserEntries,
	}
	if row.AvgSessionMinutes != nil {
		stats.AvgSessionMinutes = *row.AvgSessionMinutes
	}
	return stats, nil
}

func (r *activityRepository) CountSince(ctx context.Context, windowStart time.Time, filter domain.ActivityFilter) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&sessionEventModel{}).
		Scopes(activityScope(filter)).
		Where("created_at >= ?", windowStart).
		Count(&n).Error
	if err != nil {
		return 0, storageErr("count recent session events", err)
	}
	return n, nil
}

func (r *activityRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&sessionEventModel{})
	if res.Error != nil {
		return 0, storageErr("delete session events by id", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *activityRepository) DeleteByFilter(ctx context.Context, filter domain.ActivityFilter) (int64, error) {
	res := r.db.WithContext(ctx).
		Scopes(activityScope(filter)).
		Delete(&sessionEventModel{})
	if res.Error != nil {
		return 0, storageErr("delete session events by filter", res.Error)
	}
	return res.RowsAffected, nil
}
