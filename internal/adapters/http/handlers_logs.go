package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/application"
)

func activityQueryFromRequest(r *http.Request) (application.ActivityQuery, error) {
	q := r.URL.Query()
	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		return application.ActivityQuery{}, err
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		return application.ActivityQuery{}, err
	}
	return application.ActivityQuery{
		Action:        q.Get("action"),
		Role:          q.Get("role"),
		EmailContains: q.Get("email"),
		From:          from,
		To:            to,
		SortField:     q.Get("sortBy"),
		SortDirection: q.Get("sortDir"),
		Page:          parseIntDefault(q.Get("page"), 1),
		PageSize:      parseIntDefault(q.Get("pageSize"), 0),
	}, nil
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_logs")
		return
	}
	query, err := activityQueryFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "list_logs", err)
		return
	}
	page, err := h.service.ListActivity(r.Context(), actor, query)
	if err != nil {
		writeMappedError(r.Context(), w, "list_logs", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"logs": toSessionEventDTOs(page.Items),
		"pagination": map[string]any{
			"total":      page.Total,
			"page":       page.Page,
			"pageSize":   page.PageSize,
			"totalPages": page.TotalPages,
			"hasNext":    page.HasNext,
			"hasPrev":    page.HasPrev,
		},
	})
}

func (h *Handler) logStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "log_stats")
		return
	}
	query, err := activityQueryFromRequest(r)
	if err != nil {
		writeValidationError(r.Context(), w, "log_stats", err)
		return
	}
	result, err := h.service.ActivityStats(r.Context(), actor, query)
	if err != nil {
		writeMappedError(r.Context(), w, "log_stats", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"total":             result.Stats.Total,
		"logins":            result.Stats.Logins,
		"logouts":           result.Stats.Logouts,
		"failedLogins":      result.Stats.FailedLogins,
		"adminEntries":      result.Stats.AdminEntries,
		"userEntries":       result.Stats.UserEntries,
		"avgSessionMinutes": result.Stats.AvgSessionMinutes,
		"recent": map[string]any{
			"since":        result.Since,
			"total":        result.RecentTotal,
			"failedLogins": result.RecentFailedLogins,
		},
	})
}

func (h *Handler) deleteLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_log")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeValidationError(r.Context(), w, "delete_log", errors.New("invalid log id"))
		return
	}
	if err := h.service.DeleteActivityEntry(r.Context(), actor, id); err != nil {
		writeMappedError(r.Context(), w, "delete_log", err)
		return
	}
	writeMutation(w, http.StatusOK, "Log entry deleted", map[string]any{"deletedCount": 1})
}

type purgeLogsRequest struct {
	IDs     []string          `json:"ids,omitempty"`
	Filters *purgeLogsFilters `json:"filters,omitempty"`
}

type purgeLogsFilters struct {
	Action string `json:"action,omitempty"`
	Role   string `json:"role,omitempty"`
	Email  string `json:"email,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

func (h *Handler) purgeLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "purge_logs")
		return
	}
	var req purgeLogsRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "purge_logs", err)
		return
	}

	input := application.PurgeInput{}
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "purge_logs", errors.New("ids must be valid UUIDs"))
			return
		}
		input.IDs = append(input.IDs, id)
	}
	if req.Filters != nil {
		from, err := parseTimeParam(req.Filters.From)
		if err != nil {
			writeValidationError(r.Context(), w, "purge_logs", err)
			return
		}
		to, err := parseTimeParam(req.Filters.To)
		if err != nil {
			writeValidationError(r.Context(), w, "purge_logs", err)
			return
		}
		input.Filter = &application.ActivityQuery{
			Action:        req.Filters.Action,
			Role:          req.Filters.Role,
			EmailContains: req.Filters.Email,
			From:          from,
			To:            to,
		}
	}

	deleted, err := h.service.PurgeActivity(r.Context(), actor, input)
	if err != nil {
		writeMappedError(r.Context(), w, "purge_logs", err)
		return
	}
	writeMutation(w, http.StatusOK, "Log entries deleted", map[string]any{"deletedCount": deleted})
}
