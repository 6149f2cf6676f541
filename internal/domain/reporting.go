package domain

import "time"

// ActivityFilter is the predicate language shared by ledger queries and bulk
// deletion. Zero values mean "no constraint on this field".
type ActivityFilter struct {
	Action        EventAction
	Role          string
	EmailContains string
	From          *time.Time
	To            *time.Time
}

// Empty reports whether the filter constrains nothing.
func (f ActivityFilter) Empty() bool {
	return f.Action == "" && f.Role == "" && f.EmailContains == "" && f.From == nil && f.To == nil
}

// SortDirection orders a single-field sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ActivitySort is a single-field sort. The storage layer whitelists the field
// names it accepts; anything else falls back to the default ordering.
type ActivitySort struct {
	Field     string
	Direction SortDirection
}

// ActivityPage is one page of ledger entries plus the derived paging facts.
type ActivityPage struct {
	Items      []SessionEvent
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// NewActivityPage derives the paging facts from a total count. page is 1-based.
func NewActivityPage(items []SessionEvent, total int64, page, pageSize int) ActivityPage {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return ActivityPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    int64(page)*int64(pageSize) < total,
		HasPrev:    page > 1,
	}
}

// ActivityStats is the aggregate view over a filtered slice of the ledger.
// AvgSessionMinutes averages only closed sessions with a positive duration;
// null and zero durations are excluded from the mean, not treated as zero.
type ActivityStats struct {
	Total             int64
	Logins            int64
	Logouts           int64
	FailedLogins      int64
	AdminEntries      int64
	UserEntries       int64
	AvgSessionMinutes float64
}

// TaskSummary is the owner-scoped rollup behind GET /tasks/stats/summary.
type TaskSummary struct {
	Total      int64
	Complete   int64
	Incomplete int64
	ByPriority map[TaskPriority]int64
}
