package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/application"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Progress    *int       `json:"progress,omitempty"`
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_task")
		return
	}
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_task", err)
		return
	}
	task, err := h.service.CreateTask(r.Context(), actor, application.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Progress:    req.Progress,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_task", err)
		return
	}
	writeMutation(w, http.StatusCreated, "Task created", map[string]any{"task": toTaskDTO(task)})
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_tasks")
		return
	}
	tasks, err := h.service.ListTasks(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "list_tasks", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tasks": toTaskDTOs(tasks)})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_task")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(r.Context(), w, "get_task", errors.New("invalid task id"))
		return
	}
	task, err := h.service.GetTask(r.Context(), actor, id)
	if err != nil {
		writeMappedError(r.Context(), w, "get_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"task": toTaskDTO(task)})
}

type updateTaskRequest struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Priority      *string    `json:"priority,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	RemoveDueDate bool       `json:"removeDueDate,omitempty"`
	Progress      *int       `json:"progress,omitempty"`
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "update_task")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(r.Context(), w, "update_task", errors.New("invalid task id"))
		return
	}
	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_task", err)
		return
	}
	task, err := h.service.UpdateTask(r.Context(), actor, id, application.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		RemoveDueDate: req.RemoveDueDate,
		Progress:      req.Progress,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "update_task", err)
		return
	}
	writeMutation(w, http.StatusOK, "Task updated", map[string]any{"task": toTaskDTO(task)})
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_task")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(r.Context(), w, "delete_task", errors.New("invalid task id"))
		return
	}
	if err := h.service.DeleteTask(r.Context(), actor, id); err != nil {
		writeMappedError(r.Context(), w, "delete_task", err)
		return
	}
	writeMutation(w, http.StatusOK, "Task deleted", map[string]any{"deletedCount": 1})
}

func (h *Handler) toggleTaskStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "toggle_task_status")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(r.Context(), w, "toggle_task_status", errors.New("invalid task id"))
		return
	}
	task, err := h.service.ToggleTaskStatus(r.Context(), actor, id)
	if err != nil {
		writeMappedError(r.Context(), w, "toggle_task_status", err)
		return
	}
	writeMutation(w, http.StatusOK, "Task status toggled", map[string]any{"task": toTaskDTO(task)})
}

type setProgressRequest struct {
	Progress *int `json:"progress"`
}

func (h *Handler) setTaskProgress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "set_task_progress")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(r.Context(), w, "set_task_progress", errors.New("invalid task id"))
		return
	}
	var req setProgressRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_task_progress", err)
		return
	}
	if req.Progress == nil {
		writeValidationError(r.Context(), w, "set_task_progress", errors.New("progress is required"))
		return
	}
	task, err := h.service.SetTaskProgress(r.Context(), actor, id, *req.Progress)
	if err != nil {
		writeMappedError(r.Context(), w, "set_task_progress", err)
		return
	}
	writeMutation(w, http.StatusOK, "Task progress updated", map[string]any{"task": toTaskDTO(task)})
}

func (h *Handler) taskSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "task_summary")
		return
	}
	summary, err := h.service.TaskSummary(r.Context(), actor, application.TaskSummaryInput{
		UserID: r.URL.Query().Get("userId"),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "task_summary", err)
		return
	}
	byPriority := make(map[string]int64, len(summary.ByPriority))
	for priority, n := range summary.ByPriority {
		byPriority[string(priority)] = n
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"total":      summary.Total,
		"complete":   summary.Complete,
		"incomplete": summary.Incomplete,
		"byPriority": byPriority,
	})
}
