package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackyard/taskhub/internal/application"
	"github.com/stackyard/taskhub/internal/ports"
)

// Handler is the HTTP adapter entrypoint. It holds only the application
// service and the principal resolver so transport stays a thin shell.
type Handler struct {
	service       *application.Service
	resolver      ports.PrincipalResolver
	internalToken string
	ready         func() error
}

// NewHandler constructs the HTTP handler. internalToken guards the hook
// routes that carry no resolvable principal; ready backs the readiness probe.
func NewHandler(service *application.Service, resolver ports.PrincipalResolver, internalToken string, ready func() error) *Handler {
	return &Handler{
		service:       service,
		resolver:      resolver,
		internalToken: internalToken,
		ready:         ready,
	}
}

// NewRouter registers the route tree and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1/events", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(handler.internalTokenMiddleware)
			r.Post("/failed-login", handler.recordFailedLogin)
			r.Post("/expire", handler.expireCredential)
		})
		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/login", handler.recordLogin)
			r.Post("/logout", handler.recordLogout)
			r.Post("/token-refresh", handler.recordTokenRefresh)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", handler.listLogs)
			r.Get("/stats", handler.logStats)
			r.Delete("/{id}", handler.deleteLog)
			r.Delete("/", handler.purgeLogs)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", handler.createTask)
			r.Get("/", handler.listTasks)
			r.Get("/stats/summary", handler.taskSummary)
			r.Get("/{id}", handler.getTask)
			r.Put("/{id}", handler.updateTask)
			r.Delete("/{id}", handler.deleteTask)
			r.Patch("/{id}/status", handler.toggleTaskStatus)
			r.Patch("/{id}/progress", handler.setTaskProgress)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}
