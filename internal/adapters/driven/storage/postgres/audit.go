package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

type auditStore struct {
	db *gorm.DB
}

var _ driven.AuditStore = (*auditStore)(nil)

func (s *auditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	row := auditRow{
		Actor:      event.Actor,
		Action:     string(event.Action),
		DocumentID: event.DocumentID,
		Details:    jsonMap(event.Details),
		Timestamp:  event.Timestamp.UTC(),
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return mapError("append audit event", err)
	}
	event.ID = row.ID
	return nil
}

func (s *auditStore) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	q := s.db.WithContext(ctx).Model(&auditRow{})
	if filter.Start != nil {
		q = q.Where("timestamp >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		q = q.Where("timestamp <= ?", filter.End.UTC())
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if filter.DocumentID != "" {
		q = q.Where("document_id = ?", filter.DocumentID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.MaxAuditLimit
	}

	var rows []auditRow
	if err := q.Order("timestamp DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, mapError("list audit events", err)
	}

	events := make([]domain.AuditEvent, len(rows))
	for i, r := range rows {
		events[i] = domain.AuditEvent{
			ID:         r.ID,
			Actor:      r.Actor,
			Action:     domain.AuditAction(r.Action),
			DocumentID: r.DocumentID,
			Details:    map[string]any(r.Details),
			Timestamp:  r.Timestamp.UTC(),
			IPAddress:  r.IPAddress,
			UserAgent:  r.UserAgent,
		}
	}
	return events, nil
}
