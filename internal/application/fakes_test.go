package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
	"github.com/stackyard/taskhub/internal/ports"
)

type fakeActivity struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (f *fakeActivity) Insert(_ context.Context, event domain.SessionEvent) (domain.SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = uuid.New()
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeActivity) GetByID(_ context.Context, id uuid.UUID) (domain.SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.SessionEvent{}, domain.ErrNotFound
}

func (f *fakeActivity) CloseMostRecentActive(_ context.Context, subjectID, credentialInstanceID uuid.UUID, at time.Time) (*domain.SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	best := -1
	for i, e := range f.events {
		if !e.Open() || e.SubjectID != subjectID || e.CredentialInstanceID != credentialInstanceID {
			continue
		}
		if best == -1 || e.CreatedAt.After(f.events[best].CreatedAt) {
			best = i
		}
	}
	if best == -1 {
		return nil, nil
	}
	f.events[best] = f.events[best].Close(at)
	closed := f.events[best]
	return &closed, nil
}

func (f *fakeActivity) ExpireByCredential(_ context.Context, credentialInstanceID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i, e := range f.events {
		if e.Open() && e.CredentialInstanceID == credentialInstanceID {
			f.events[i].Status = domain.StatusExpired
			n++
		}
	}
	return n, nil
}

func matchesFilter(e domain.SessionEvent, filter domain.ActivityFilter) bool {
	if filter.Action != "" && e.Action != filter.Action {
		return false
	}
	if filter.Role != "" && e.Role != filter.Role {
		return false
	}
	if filter.EmailContains != "" && !strings.Contains(strings.ToLower(e.Email), strings.ToLower(filter.EmailContains)) {
		return false
	}
	if filter.From != nil && e.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && e.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

func (f *fakeActivity) List(_ context.Context, filter domain.ActivityFilter, s domain.ActivitySort, page, pageSize int) ([]domain.SessionEvent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.SessionEvent
	for _, e := range f.events {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		before := matched[i].CreatedAt.Before(matched[j].CreatedAt)
		if s.Direction == domain.SortDesc {
			return !before
		}
		return before
	})
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeActivity) Aggregate(_ context.Context, filter domain.ActivityFilter) (domain.ActivityStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats domain.ActivityStats
	var durationSum, durationN int64
	for _, e := range f.events {
		if !matchesFilter(e, filter) {
			continue
		}
		stats.Total++
		switch e.Action {
		case domain.ActionLogin:
			stats.Logins++
		case domain.ActionLogout:
			stats.Logouts++
		case domain.ActionFailedLogin:
			stats.FailedLogins++
		}
		switch e.Role {
		case "admin":
			stats.AdminEntries++
		case "user":
			stats.UserEntries++
		}
		if e.DurationMinutes != nil && *e.DurationMinutes > 0 {
			durationSum += int64(*e.DurationMinutes)
			durationN++
		}
	}
	if durationN > 0 {
		stats.AvgSessionMinutes = float64(durationSum) / float64(durationN)
	}
	return stats, nil
}

func (f *fakeActivity) CountSince(_ context.Context, windowStart time.Time, filter domain.ActivityFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.events {
		if !e.CreatedAt.Before(windowStart) && matchesFilter(e, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeActivity) DeleteByIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idSet := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	kept := f.events[:0]
	var deleted int64
	for _, e := range f.events {
		if idSet[e.ID] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return deleted, nil
}

func (f *fakeActivity) DeleteByFilter(_ context.Context, filter domain.ActivityFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.events[:0]
	var deleted int64
	for _, e := range f.events {
		if matchesFilter(e, filter) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return deleted, nil
}

type fakeTasks struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]domain.Task
	order []uuid.UUID
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{byID: make(map[uuid.UUID]domain.Task)}
}

func (f *fakeTasks) Create(_ context.Context, task domain.Task) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.ID = uuid.New()
	task.Version = 1
	f.byID[task.ID] = task
	f.order = append(f.order, task.ID)
	return task, nil
}

func (f *fakeTasks) GetByID(_ context.Context, id uuid.UUID) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.byID[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return task, nil
}

func (f *fakeTasks) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, id := range f.order {
		if task, ok := f.byID[id]; ok && task.OwnerID == ownerID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTasks) ListAll(_ context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Task, 0, len(f.order))
	for _, id := range f.order {
		if task, ok := f.byID[id]; ok {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTasks) Update(_ context.Context, id uuid.UUID, transition func(domain.Task) (domain.Task, error)) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.byID[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	next, err := transition(task)
	if err != nil {
		return domain.Task{}, err
	}
	next.Version = task.Version + 1
	f.byID[id] = next
	return next, nil
}

func (f *fakeTasks) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeTasks) Summary(_ context.Context, ownerID uuid.UUID) (domain.TaskSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := domain.TaskSummary{ByPriority: map[domain.TaskPriority]int64{}}
	for _, task := range f.byID {
		if task.OwnerID != ownerID {
			continue
		}
		summary.Total++
		if task.Status == domain.TaskComplete {
			summary.Complete++
		} else {
			summary.Incomplete++
		}
		summary.ByPriority[task.Priority]++
	}
	return summary, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	service  *Service
	activity *fakeActivity
	tasks    *fakeTasks
	outbox   *fakeOutbox
	now      time.Time
}

// newFixture wires the service over in-memory fakes with a controllable clock.
func newFixture() *fixture {
	f := &fixture{
		activity: &fakeActivity{},
		tasks:    newFakeTasks(),
		outbox:   &fakeOutbox{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(Dependencies{
		Activity: f.activity,
		Tasks:    f.tasks,
		Outbox:   f.outbox,
		Now:      func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func adminActor() Actor {
	return Actor{SubjectID: uuid.New(), Role: "admin", Email: "admin@example.com"}
}

func userActor() Actor {
	return Actor{SubjectID: uuid.New(), Role: "user", Email: "user@example.com"}
}
