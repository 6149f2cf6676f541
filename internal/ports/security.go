package ports

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the verified identity attached to a request. Token issuance
// and credential storage live in an external collaborator; this service only
// consumes the resolved result.
type Principal struct {
	SubjectID   uuid.UUID
	Role        string
	Email       string
	DisplayName string
	// CredentialInstanceID identifies the specific issued credential (one per
	// token issuance), distinct from the subject's identity.
	CredentialInstanceID uuid.UUID
}

// PrincipalResolver verifies an inbound bearer credential and yields the
// principal it represents, or fails with domain.ErrUnauthorized.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}
