package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

var _ driven.AuditStore = (*AuditStore)(nil)

// AuditStore is an append-only in-memory audit log.
type AuditStore struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
	nextID int64
}

// NewAuditStore creates an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append records a copy of event and assigns its ID.
func (s *AuditStore) Append(_ context.Context, event *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	event.ID = s.nextID
	stored := *event
	stored.Details = maps.Clone(event.Details)
	if stored.Details == nil {
		stored.Details = map[string]any{}
	}
	stored.Timestamp = event.Timestamp.UTC()
	s.events = append(s.events, stored)
	return nil
}

// List returns matching events ordered by timestamp then ID, newest first.
func (s *AuditStore) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditEvent
	for i := range s.events {
		if filter.Matches(&s.events[i]) {
			e := s.events[i]
			e.Details = maps.Clone(e.Details)
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.AuditEvent) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.MaxAuditLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
