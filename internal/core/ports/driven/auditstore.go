package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// AuditStore is the append-only audit trail.
// Events are never updated or deleted.
type AuditStore interface {
	// Append records an event and assigns its ID.
	Append(ctx context.Context, event *domain.AuditEvent) error

	// List returns events matching the filter, newest first.
	// The filter is already normalised by the caller.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
}
