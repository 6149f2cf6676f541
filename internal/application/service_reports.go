package application

import (
	"context"
	"strings"

	"github.com/stackyard/taskhub/internal/domain"
)

// ListActivity serves the admin log view: predicate filter, single-field
// sort, 1-based pagination with a bounded page size.
func (s *Service) ListActivity(ctx context.Context, actor Actor, query ActivityQuery) (domain.ActivityPage, error) {
	if err := s.requireAdmin(actor); err != nil {
		return domain.ActivityPage{}, err
	}
	filter, err := parseFilter(query)
	if err != nil {
		return domain.ActivityPage{}, err
	}
	page, pageSize := s.normalizePaging(query.Page, query.PageSize)
	sort := parseSort(query)

	items, total, err := s.activity.List(ctx, filter, sort, page, pageSize)
	if err != nil {
		return domain.ActivityPage{}, err
	}
	return domain.NewActivityPage(items, total, page, pageSize), nil
}

// ActivityStats aggregates the filtered ledger and adds a recent-activity
// window on top, reusing the same predicate for the windowed counts.
func (s *Service) ActivityStats(ctx context.Context, actor Actor, query ActivityQuery) (ActivityStatsResult, error) {
	if err := s.requireAdmin(actor); err != nil {
		return ActivityStatsResult{}, err
	}
	filter, err := parseFilter(query)
	if err != nil {
		return ActivityStatsResult{}, err
	}

	stats, err := s.activity.Aggregate(ctx, filter)
	if err != nil {
		return ActivityStatsResult{}, err
	}

	since := s.nowFn().Add(-s.cfg.RecentWindow)
	recentTotal, err := s.activity.CountSince(ctx, since, filter)
	if err != nil {
		return ActivityStatsResult{}, err
	}
	failedFilter := filter
	failedFilter.Action = domain.ActionFailedLogin
	recentFailed, err := s.activity.CountSince(ctx, since, failedFilter)
	if err != nil {
		return ActivityStatsResult{}, err
	}

	return ActivityStatsResult{
		Stats:              stats,
		Since:              since,
		RecentTotal:        recentTotal,
		RecentFailedLogins: recentFailed,
	}, nil
}

// parseSort whitelists sortable fields; anything else falls back to the
// default createdAt-descending ordering.
func parseSort(query ActivityQuery) domain.ActivitySort {
	sort := domain.ActivitySort{Field: "created_at", Direction: domain.SortDesc}
	switch strings.ToLower(strings.TrimSpace(query.SortField)) {
	case "created_at", "email", "action", "login_time", "session_duration_minutes":
		sort.Field = strings.ToLower(strings.TrimSpace(query.SortField))
	}
	if strings.EqualFold(strings.TrimSpace(query.SortDirection), "asc") {
		sort.Direction = domain.SortAsc
	}
	return sort
}
