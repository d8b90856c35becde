package services

import (
	"context"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure AuditService implements the interface.
var _ driving.AuditService = (*AuditService)(nil)

// AuditService records and reads the audit trail.
type AuditService struct {
	store driven.AuditStore
	now   func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(store driven.AuditStore) *AuditService {
	return &AuditService{
		store: store,
		now:   time.Now,
	}
}

// Log appends an event. A failed write is reported to the operational
// log and swallowed so the operation being audited still completes.
func (s *AuditService) Log(ctx context.Context, event domain.AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Details == nil {
		event.Details = map[string]any{}
	}

	// A cancelled request must not drop its audit record.
	if err := s.store.Append(context.WithoutCancel(ctx), &event); err != nil {
		logger.Errorw("audit write failed",
			"action", event.Action,
			"actor", event.Actor,
			"document_id", event.DocumentID,
			"error", err,
		)
	}
}

// List returns matching events, newest first.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	filter, err := filter.Normalise()
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, filter)
}

// History returns the questions an actor asked, newest first.
func (s *AuditService) History(ctx context.Context, actor string, limit int) ([]domain.AuditEvent, error) {
	return s.List(ctx, domain.AuditFilter{
		Actor:  actor,
		Action: domain.ActionChatQuery,
		Limit:  limit,
	})
}
