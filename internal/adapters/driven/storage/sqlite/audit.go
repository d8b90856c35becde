package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// auditStore implements driven.AuditStore.
type auditStore struct {
	store *Store
}

var _ driven.AuditStore = (*auditStore)(nil)

// Append records an event and assigns its ID.
func (s *auditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	details := event.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshalling details: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO audit_events (actor, action, document_id, details, timestamp, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.Actor, string(event.Action), event.DocumentID, string(detailsJSON),
		event.Timestamp.UTC(), event.IPAddress, event.UserAgent)
	if err != nil {
		return fmt.Errorf("%w: appending audit event: %v", domain.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	event.ID = id
	return nil
}

// List returns events matching the filter, newest first.
func (s *auditStore) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.Start != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.Start.UTC())
	}
	if filter.End != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, filter.End.UTC())
	}
	if filter.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.DocumentID != "" {
		where = append(where, "document_id = ?")
		args = append(args, filter.DocumentID)
	}

	query := `SELECT id, actor, action, document_id, details, timestamp, ip_address, user_agent
		FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.MaxAuditLimit
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying audit events: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var events []domain.AuditEvent //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			e           domain.AuditEvent
			action      string
			detailsJSON string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &action, &e.DocumentID, &detailsJSON,
			&e.Timestamp, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.Action = domain.AuditAction(action)
		if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshaling audit details: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}
