package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

// DeleteActivityEntry removes a single ledger row by id.
func (s *Service) DeleteActivityEntry(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	deleted, err := s.activity.DeleteByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PurgeActivity bulk-deletes ledger rows by an explicit id set or by the
// shared predicate language — exactly one of the two. Ids that resolve to
// nothing are skipped silently; the returned count reflects rows actually
// removed.
func (s *Service) PurgeActivity(ctx context.Context, actor Actor, input PurgeInput) (int64, error) {
	if err := s.requireAdmin(actor); err != nil {
		return 0, err
	}
	hasIDs := len(input.IDs) > 0
	hasFilter := input.Filter != nil
	if hasIDs == hasFilter {
		return 0, fmt.Errorf("%w: supply exactly one of ids or filters", domain.ErrInvalidRequest)
	}

	if hasIDs {
		return s.activity.DeleteByIDs(ctx, input.IDs)
	}

	filter, err := parseFilter(*input.Filter)
	if err != nil {
		return 0, err
	}
	// An all-matching filter would silently truncate the ledger; require the
	// caller to constrain at least one field.
	if filter.Empty() {
		return 0, fmt.Errorf("%w: filter must constrain at least one field", domain.ErrInvalidRequest)
	}
	return s.activity.DeleteByFilter(ctx, filter)
}
