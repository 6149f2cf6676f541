package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/application"
)

// recordLogin appends an active ledger entry for the authenticated principal.
// The identity snapshot comes from the resolved credential, not the body, so
// a caller cannot ledger a login as someone else.
func (h *Handler) recordLogin(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "record_login")
		return
	}
	saved, err := h.service.RecordLogin(r.Context(), application.RecordLoginInput{
		SubjectID:            actor.SubjectID,
		DisplayName:          actor.DisplayName,
		Email:                actor.Email,
		Role:                 actor.Role,
		CredentialInstanceID: actor.CredentialInstanceID,
		SourceAddress:        readIP(r),
		ClientAgent:          r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "record_login", err)
		return
	}
	writeMutation(w, http.StatusCreated, "Login recorded", map[string]any{"entry": toSessionEventDTO(saved)})
}

func (h *Handler) recordLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "record_logout")
		return
	}
	closed, err := h.service.RecordLogout(r.Context(), actor.SubjectID, actor.CredentialInstanceID)
	if err != nil {
		writeMappedError(r.Context(), w, "record_logout", err)
		return
	}
	if closed == nil {
		writeMessage(w, http.StatusOK, "No active session to close")
		return
	}
	writeMutation(w, http.StatusOK, "Session closed", map[string]any{"entry": toSessionEventDTO(*closed)})
}

func (h *Handler) recordTokenRefresh(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "record_token_refresh")
		return
	}
	saved, err := h.service.RecordTokenRefresh(r.Context(), application.RecordLoginInput{
		SubjectID:            actor.SubjectID,
		DisplayName:          actor.DisplayName,
		Email:                actor.Email,
		Role:                 actor.Role,
		CredentialInstanceID: actor.CredentialInstanceID,
		SourceAddress:        readIP(r),
		ClientAgent:          r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "record_token_refresh", err)
		return
	}
	writeMutation(w, http.StatusCreated, "Token refresh recorded", map[string]any{"entry": toSessionEventDTO(saved)})
}

type recordFailedLoginRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) recordFailedLogin(w http.ResponseWriter, r *http.Request) {
	var req recordFailedLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "record_failed_login", err)
		return
	}
	saved, err := h.service.RecordFailedLogin(r.Context(), application.RecordFailedLoginInput{
		AttemptedEmail: req.Email,
		Role:           req.Role,
		SourceAddress:  readIP(r),
		ClientAgent:    r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "record_failed_login", err)
		return
	}
	writeMutation(w, http.StatusCreated, "Failed login recorded", map[string]any{"entry": toSessionEventDTO(saved)})
}

type expireCredentialRequest struct {
	CredentialInstanceID string `json:"credentialInstanceId"`
}

func (h *Handler) expireCredential(w http.ResponseWriter, r *http.Request) {
	var req expireCredentialRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "expire_credential", err)
		return
	}
	credentialID, err := uuid.Parse(req.CredentialInstanceID)
	if err != nil {
		writeValidationError(r.Context(), w, "expire_credential", errors.New("invalid credentialInstanceId"))
		return
	}
	expired, err := h.service.ExpireCredential(r.Context(), credentialID)
	if err != nil {
		writeMappedError(r.Context(), w, "expire_credential", err)
		return
	}
	writeMutation(w, http.StatusOK, "Credential sessions expired", map[string]any{"expiredCount": expired})
}
