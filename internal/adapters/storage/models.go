package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

type sessionEventModel struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SubjectID            *uuid.UUID `gorm:"column:subject_id;type:uuid;index"`
	DisplayName          string     `gorm:"column:display_name"`
	Email                string     `gorm:"column:email;index"`
	Role                 string     `gorm:"column:role;index"`
	Action               string     `gorm:"column:action;index"`
	Status               string     `gorm:"column:status;index:idx_session_events_open"`
	CredentialInstanceID *uuid.UUID `gorm:"column:credential_instance_id;type:uuid;index:idx_session_events_open"`
	LoginTime            *time.Time `gorm:"column:login_time"`
	LogoutTime           *time.Time `gorm:"column:logout_time"`
	DurationMinutes      *int       `gorm:"column:session_duration_minutes"`
	SourceAddress        *string    `gorm:"column:source_address"`
	ClientAgent          string     `gorm:"column:client_agent"`
	CreatedAt            time.Time  `gorm:"column:created_at;index"`
}

func (sessionEventModel) TableName() string { return "session_events" }

type taskModel struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;index"`
	Title       string     `gorm:"column:title"`
	Description string     `gorm:"column:description"`
	Priority    string     `gorm:"column:priority"`
	DueDate     *time.Time `gorm:"column:due_date"`
	Progress    int        `gorm:"column:progress"`
	Status      string     `gorm:"column:status;index"`
	Version     int64      `gorm:"column:version"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (taskModel) TableName() string { return "tasks" }

type outboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload"`
	CreatedAt    time.Time  `gorm:"column:created_at;index"`
	PublishedAt  *time.Time `gorm:"column:published_at;index"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	ClaimToken   *string    `gorm:"column:claim_token"`
	ClaimUntil   *time.Time `gorm:"column:claim_until"`
	DeadLetterAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "activity_outbox" }

func toEventModel(e domain.SessionEvent) sessionEventModel {
	return sessionEventModel{
		ID:                   e.ID,
		SubjectID:            nullableUUID(e.SubjectID),
		DisplayName:          e.DisplayName,
		Email:                e.Email,
		Role:                 e.Role,
		Action:               string(e.Action),
		Status:               string(e.Status),
		CredentialInstanceID: nullableUUID(e.CredentialInstanceID),
		LoginTime:            e.LoginTime,
		LogoutTime:           e.LogoutTime,
		DurationMinutes:      e.DurationMinutes,
		SourceAddress:        nullableString(e.SourceAddress),
		ClientAgent:          e.ClientAgent,
		CreatedAt:            e.CreatedAt,
	}
}

func toDomainEvent(row sessionEventModel) domain.SessionEvent {
	return domain.SessionEvent{
		ID:                   row.ID,
		SubjectID:            derefUUID(row.SubjectID),
		DisplayName:          row.DisplayName,
		Email:                row.Email,
		Role:                 row.Role,
		Action:               domain.EventAction(row.Action),
		Status:               domain.SessionStatus(row.Status),
		CredentialInstanceID: derefUUID(row.CredentialInstanceID),
		LoginTime:            row.LoginTime,
		LogoutTime:           row.LogoutTime,
		DurationMinutes:      row.DurationMinutes,
		SourceAddress:        derefString(row.SourceAddress),
		ClientAgent:          row.ClientAgent,
		CreatedAt:            row.CreatedAt,
	}
}

func toTaskModel(t domain.Task) taskModel {
	return taskModel{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Progress:    t.Progress,
		Status:      string(t.Status),
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toDomainTask(row taskModel) domain.Task {
	return domain.Task{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    domain.TaskPriority(row.Priority),
		DueDate:     row.DueDate,
		Progress:    row.Progress,
		Status:      domain.TaskStatus(row.Status),
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
