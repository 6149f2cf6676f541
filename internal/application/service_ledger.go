package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
)

// RecordLogin appends an active login entry to the ledger. It never checks
// for a pre-existing session: credential instance ids are unique per
// issuance, and a subject logging in again under a new instance simply holds
// two independently active sessions.
func (s *Service) RecordLogin(ctx context.Context, input RecordLoginInput) (domain.SessionEvent, error) {
	if input.SubjectID == uuid.Nil || input.CredentialInstanceID == uuid.Nil {
		return domain.SessionEvent{}, fmt.Errorf("%w: subject and credential instance are required", domain.ErrInvalidRequest)
	}
	now := s.nowFn()
	entry := domain.SessionEvent{
		SubjectID:            input.SubjectID,
		DisplayName:          strings.TrimSpace(input.DisplayName),
		Email:                strings.TrimSpace(input.Email),
		Role:                 normalizeRole(input.Role),
		Action:               domain.ActionLogin,
		Status:               domain.StatusActive,
		CredentialInstanceID: input.CredentialInstanceID,
		LoginTime:            &now,
		SourceAddress:        input.SourceAddress,
		ClientAgent:          input.ClientAgent,
		CreatedAt:            now,
	}
	saved, err := s.activity.Insert(ctx, entry)
	if err != nil {
		return domain.SessionEvent{}, err
	}
	if err := s.enqueueEvent(ctx, "session.logged_in", saved.SubjectID.String(), sessionEventPayload(saved)); err != nil {
		return domain.SessionEvent{}, err
	}
	return saved, nil
}

// RecordFailedLogin appends an audit-only entry. It carries no session state
// and is never correlated to a logout.
func (s *Service) RecordFailedLogin(ctx context.Context, input RecordFailedLoginInput) (domain.SessionEvent, error) {
	email := strings.TrimSpace(input.AttemptedEmail)
	if email == "" {
		return domain.SessionEvent{}, fmt.Errorf("%w: attempted email is required", domain.ErrInvalidRequest)
	}
	now := s.nowFn()
	entry := domain.SessionEvent{
		Email:         email,
		Role:          normalizeRole(input.Role),
		Action:        domain.ActionFailedLogin,
		SourceAddress: input.SourceAddress,
		ClientAgent:   input.ClientAgent,
		CreatedAt:     now,
	}
	saved, err := s.activity.Insert(ctx, entry)
	if err != nil {
		return domain.SessionEvent{}, err
	}
	if err := s.enqueueEvent(ctx, "session.login_failed", email, sessionEventPayload(saved)); err != nil {
		return domain.SessionEvent{}, err
	}
	return saved, nil
}

// RecordTokenRefresh appends an audit row for a credential refresh. Like a
// failed login it carries no lifecycle state of its own.
func (s *Service) RecordTokenRefresh(ctx context.Context, input RecordLoginInput) (domain.SessionEvent, error) {
	if input.SubjectID == uuid.Nil || input.CredentialInstanceID == uuid.Nil {
		return domain.SessionEvent{}, fmt.Errorf("%w: subject and credential instance are required", domain.ErrInvalidRequest)
	}
	now := s.nowFn()
	entry := domain.SessionEvent{
		SubjectID:            input.SubjectID,
		DisplayName:          strings.TrimSpace(input.DisplayName),
		Email:                strings.TrimSpace(input.Email),
		Role:                 normalizeRole(input.Role),
		Action:               domain.ActionTokenRefresh,
		CredentialInstanceID: input.CredentialInstanceID,
		SourceAddress:        input.SourceAddress,
		ClientAgent:          input.ClientAgent,
		CreatedAt:            now,
	}
	return s.activity.Insert(ctx, entry)
}

// RecordLogout closes the most recent active session for the (subject,
// credential instance) pair. A nil result means nothing was open — a stale or
// replayed logout is an idempotent no-op, distinguishing "nothing to close"
// from "close failed".
func (s *Service) RecordLogout(ctx context.Context, subjectID, credentialInstanceID uuid.UUID) (*domain.SessionEvent, error) {
	if subjectID == uuid.Nil || credentialInstanceID == uuid.Nil {
		return nil, fmt.Errorf("%w: subject and credential instance are required", domain.ErrInvalidRequest)
	}
	closed, err := s.activity.CloseMostRecentActive(ctx, subjectID, credentialInstanceID, s.nowFn())
	if err != nil {
		return nil, err
	}
	if closed == nil {
		return nil, nil
	}
	if err := s.enqueueEvent(ctx, "session.logged_out", closed.SubjectID.String(), sessionEventPayload(*closed)); err != nil {
		return nil, err
	}
	return closed, nil
}

// ExpireCredential sweeps every active session held under the credential
// instance to expired. Used when a credential is revoked server-side without
// an explicit logout; abandoned sessions get no logout time and no duration.
func (s *Service) ExpireCredential(ctx context.Context, credentialInstanceID uuid.UUID) (int64, error) {
	if credentialInstanceID == uuid.Nil {
		return 0, fmt.Errorf("%w: credential instance is required", domain.ErrInvalidRequest)
	}
	expired, err := s.activity.ExpireByCredential(ctx, credentialInstanceID)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		payload := map[string]any{
			"credential_instance_id": credentialInstanceID.String(),
			"expired_count":          expired,
		}
		if err := s.enqueueEvent(ctx, "session.expired", credentialInstanceID.String(), payload); err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func sessionEventPayload(e domain.SessionEvent) map[string]any {
	payload := map[string]any{
		"event_id": e.ID.String(),
		"action":   string(e.Action),
		"email":    e.Email,
		"role":     e.Role,
	}
	if e.SubjectID != uuid.Nil {
		payload["subject_id"] = e.SubjectID.String()
	}
	if e.DurationMinutes != nil {
		payload["session_duration_minutes"] = *e.DurationMinutes
	}
	return payload
}
