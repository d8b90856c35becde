package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// AuditService records and reads the audit trail.
type AuditService interface {
	// Log appends an event. Failures are logged, never returned.
	Log(ctx context.Context, event domain.AuditEvent)

	// List returns matching events, newest first, at most 100.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)

	// History returns an actor's past queries, newest first.
	History(ctx context.Context, actor string, limit int) ([]domain.AuditEvent, error)
}
