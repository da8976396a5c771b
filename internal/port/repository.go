package port

import (
	"context"

	"github.com/google/uuid"

	"docslice/internal/domain"
)

// SessionRepository is the durable gateway for workflow sessions. One
// keyed record per session, overwrite-idempotent: the latest Save wins.
// Artifact bytes and selection flags never reach the repository.
type SessionRepository interface {
	Save(ctx context.Context, session *domain.Session) error
	Load(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, offset, limit int) ([]domain.Session, int, error)
}

// AuditRepository records mutations for the chain-of-custody trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error)
}
