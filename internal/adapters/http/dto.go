package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

type sessionEventDTO struct {
	ID                   uuid.UUID  `json:"id"`
	SubjectID            *uuid.UUID `json:"subjectId,omitempty"`
	DisplayName          string     `json:"displayName,omitempty"`
	Email                string     `json:"email"`
	Role                 string     `json:"role,omitempty"`
	Action               string     `json:"action"`
	Status               string     `json:"status,omitempty"`
	CredentialInstanceID *uuid.UUID `json:"credentialInstanceId,omitempty"`
	LoginTime            *time.Time `json:"loginTime,omitempty"`
	LogoutTime           *time.Time `json:"logoutTime,omitempty"`
	DurationMinutes      *int       `json:"sessionDurationMinutes,omitempty"`
	SourceAddress        string     `json:"sourceAddress,omitempty"`
	ClientAgent          string     `json:"clientAgent,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func toSessionEventDTO(e domain.SessionEvent) sessionEventDTO {
	dto := sessionEventDTO{
		ID:              e.ID,
		DisplayName:     e.DisplayName,
		Email:           e.Email,
		Role:            e.Role,
		Action:          string(e.Action),
		Status:          string(e.Status),
		LoginTime:       e.LoginTime,
		LogoutTime:      e.LogoutTime,
		DurationMinutes: e.DurationMinutes,
		SourceAddress:   e.SourceAddress,
		ClientAgent:     e.ClientAgent,
		CreatedAt:       e.CreatedAt,
	}
	if e.SubjectID != uuid.Nil {
		id := e.SubjectID
		dto.SubjectID = &id
	}
	if e.CredentialInstanceID != uuid.Nil {
		id := e.CredentialInstanceID
		dto.CredentialInstanceID = &id
	}
	return dto
}

func toSessionEventDTOs(items []domain.SessionEvent) []sessionEventDTO {
	out := make([]sessionEventDTO, 0, len(items))
	for _, e := range items {
		out = append(out, toSessionEventDTO(e))
	}
	return out
}

type taskDTO struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Progress    int        `json:"progress"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toTaskDTO(t domain.Task) taskDTO {
	return taskDTO{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Progress:    t.Progress,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskDTOs(items []domain.Task) []taskDTO {
	out := make([]taskDTO, 0, len(items))
	for _, t := range items {
		out = append(out, toTaskDTO(t))
	}
	return out
}
