package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
	"github.com/stackyard/taskhub/internal/ports"
)

// Config holds the application-level knobs. Page size bounds guard reporting
// reads against unbounded result sets.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	// RecentWindow is the lookback used by the stats recent-activity block.
	RecentWindow time.Duration
}

type Service struct {
	cfg      Config
	activity ports.ActivityRepository
	tasks    ports.TaskRepository
	outbox   ports.OutboxRepository
	nowFn    func() time.Time
}

type Dependencies struct {
	Config   Config
	Activity ports.ActivityRepository
	Tasks    ports.TaskRepository
	Outbox   ports.OutboxRepository
	// Now overrides the clock; nil means UTC wall time.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 200
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 24 * time.Hour
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:      cfg,
		activity: deps.Activity,
		tasks:    deps.Tasks,
		outbox:   deps.Outbox,
		nowFn:    nowFn,
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func (s *Service) requireAdmin(actor Actor) error {
	if actor.SubjectID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	if normalizeRole(actor.Role) != "admin" {
		return domain.ErrForbidden
	}
	return nil
}

// canActOn applies the ownership rule: an owner or an admin may act on a
// task; everyone else sees NotFound rather than Forbidden so task ids are
// not probeable.
func canActOn(actor Actor, task domain.Task) bool {
	return task.OwnerID == actor.SubjectID || normalizeRole(actor.Role) == "admin"
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	})
}

// parseFilter validates the transport-shaped predicate into the domain filter.
func parseFilter(q ActivityQuery) (domain.ActivityFilter, error) {
	filter := domain.ActivityFilter{
		Role:          normalizeRole(q.Role),
		EmailContains: strings.TrimSpace(q.EmailContains),
		From:          q.From,
		To:            q.To,
	}
	action := strings.ToLower(strings.TrimSpace(q.Action))
	switch domain.EventAction(action) {
	case "", domain.ActionLogin, domain.ActionLogout, domain.ActionTokenRefresh, domain.ActionFailedLogin:
		filter.Action = domain.EventAction(action)
	default:
		return domain.ActivityFilter{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, q.Action)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.ActivityFilter{}, fmt.Errorf("%w: date range end precedes start", domain.ErrInvalidRequest)
	}
	return filter, nil
}

func (s *Service) normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}
