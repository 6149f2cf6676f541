package domain

import (
	"testing"
	"time"
)

func TestSessionDurationMinutesRoundsAndFloors(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		logout time.Time
		want   int
	}{
		{"exact", base.Add(30 * time.Minute), 30},
		{"rounds up", base.Add(29*time.Minute + 31*time.Second), 30},
		{"rounds down", base.Add(29*time.Minute + 29*time.Second), 29},
		{"sub-minute", base.Add(20 * time.Second), 0},
		{"clock skew floors at zero", base.Add(-3 * time.Minute), 0},
	}
	for _, tc := range cases {
		if got := SessionDurationMinutes(base, tc.logout); got != tc.want {
			t.Fatalf("%s: want %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestCloseStampsTerminalState(t *testing.T) {
	t.Parallel()

	loginAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entry := SessionEvent{
		Action:    ActionLogin,
		Status:    StatusActive,
		LoginTime: &loginAt,
	}
	closedAt := loginAt.Add(45 * time.Minute)
	closed := entry.Close(closedAt)

	if closed.Status != StatusLoggedOut {
		t.Fatalf("want logged_out, got %q", closed.Status)
	}
	if closed.LogoutTime == nil || !closed.LogoutTime.Equal(closedAt) {
		t.Fatalf("logout time not stamped: %v", closed.LogoutTime)
	}
	if closed.DurationMinutes == nil || *closed.DurationMinutes != 45 {
		t.Fatalf("duration not derived: %v", closed.DurationMinutes)
	}
	if !entry.Open() {
		t.Fatalf("original entry should still report open; Close must not mutate in place")
	}
	if closed.Open() {
		t.Fatalf("closed entry must not report open")
	}
}

func TestNewActivityPageDerivesPagingFacts(t *testing.T) {
	t.Parallel()

	page := NewActivityPage(make([]SessionEvent, 5), 45, 3, 20)
	if page.TotalPages != 3 {
		t.Fatalf("45 entries at page size 20: want 3 pages, got %d", page.TotalPages)
	}
	if page.HasNext {
		t.Fatalf("page 3 of 3 must not report a next page")
	}
	if !page.HasPrev {
		t.Fatalf("page 3 must report a previous page")
	}

	first := NewActivityPage(make([]SessionEvent, 20), 45, 1, 20)
	if first.HasPrev {
		t.Fatalf("page 1 must not report a previous page")
	}
	if !first.HasNext {
		t.Fatalf("page 1 of 3 must report a next page")
	}
}
