package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// A single mutex serialises every write, which makes the version
// compare-and-swap trivially atomic.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	successors map[string]string
	chunks     map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:  make(map[string]domain.Document),
		successors: make(map[string]string),
		chunks:     make(map[string][]domain.Chunk),
	}
}

// Create stores a new chain head at version 1.
func (s *DocumentStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("%w: document %s already exists", domain.ErrStorage, doc.ID)
	}
	doc.Version = 1
	doc.PreviousVersionID = nil
	doc.Status = domain.StatusPending
	doc.Archived = false
	s.documents[doc.ID] = *doc
	return nil
}

// Get retrieves a version by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// Successor returns the version that superseded id.
func (s *DocumentStore) Successor(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next, ok := s.successors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[next]
	return &doc, nil
}

// CommitUpdate archives id and stores its successor.
func (s *DocumentStore) CommitUpdate(
	_ context.Context,
	id string,
	expectedVersion int,
	patch domain.DocumentPatch,
	actor string,
	at time.Time,
) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if old.Archived || old.Version != expectedVersion {
		return nil, fmt.Errorf("%w: document %s is at version %d, expected %d",
			domain.ErrConflict, id, old.Version, expectedVersion)
	}

	next := old
	patch.Apply(&next)
	prev := old.ID
	next.ID = uuid.NewString()
	next.Version = old.Version + 1
	next.PreviousVersionID = &prev
	next.Status = domain.StatusPending
	next.ChunkCount = 0
	next.ProcessingError = ""
	next.ProcessingStartedAt = nil
	next.LastModifiedBy = actor
	next.LastModifiedAt = at.UTC()

	old.Archived = true
	s.documents[id] = old
	s.documents[next.ID] = next
	s.successors[id] = next.ID
	return &next, nil
}

// ClaimProcessing marks a PENDING version as being ingested.
func (s *DocumentStore) ClaimProcessing(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	switch {
	case !ok:
		return domain.ErrNotFound
	case doc.Status != domain.StatusPending:
		return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, id, doc.Status)
	case doc.ProcessingStartedAt != nil:
		return fmt.Errorf("%w: document %s", domain.ErrAlreadyClaimed, id)
	}
	started := at.UTC()
	doc.ProcessingStartedAt = &started
	s.documents[id] = doc
	return nil
}

// MarkProcessed settles a PENDING version as PROCESSED.
func (s *DocumentStore) MarkProcessed(_ context.Context, id string, chunkCount int) error {
	return s.settle(id, func(doc *domain.Document) {
		doc.Status = domain.StatusProcessed
		doc.ChunkCount = chunkCount
		doc.ProcessingError = ""
	})
}

// MarkFailed settles a PENDING version as FAILED.
func (s *DocumentStore) MarkFailed(_ context.Context, id string, reason string) error {
	return s.settle(id, func(doc *domain.Document) {
		doc.Status = domain.StatusFailed
		doc.ProcessingError = reason
	})
}

func (s *DocumentStore) settle(id string, apply func(*domain.Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Status != domain.StatusPending {
		return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, id, doc.Status)
	}
	apply(&doc)
	s.documents[id] = doc
	return nil
}

// SaveChunks stores chunks. Existing indexes are never overwritten.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, ok := s.documents[c.DocumentID]; !ok {
			return fmt.Errorf("%w: chunk for unknown document %s", domain.ErrStorage, c.DocumentID)
		}
		for _, existing := range s.chunks[c.DocumentID] {
			if existing.Index == c.Index {
				return fmt.Errorf("%w: chunk %d of %s already stored", domain.ErrStorage, c.Index, c.DocumentID)
			}
		}
	}
	touched := make(map[string]struct{})
	for _, c := range chunks {
		c.Metadata = maps.Clone(c.Metadata)
		s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
		touched[c.DocumentID] = struct{}{}
	}
	for id := range touched {
		slices.SortFunc(s.chunks[id], func(a, b domain.Chunk) int { return a.Index - b.Index })
	}
	return nil
}

// DeleteChunks removes every chunk of a version.
func (s *DocumentStore) DeleteChunks(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// GetChunks returns the chunks of a version ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks[documentID]), nil
}

// ListCurrent returns every non-archived version, newest first.
func (s *DocumentStore) ListCurrent(_ context.Context) ([]domain.Document, error) {
	docs := s.filter(func(d *domain.Document) bool { return !d.Archived })
	slices.SortFunc(docs, func(a, b domain.Document) int {
		if c := b.LastModifiedAt.Compare(a.LastModifiedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return docs, nil
}

// ListUnclaimed returns PENDING versions never claimed, oldest first.
func (s *DocumentStore) ListUnclaimed(_ context.Context) ([]domain.Document, error) {
	docs := s.filter(func(d *domain.Document) bool {
		return d.Status == domain.StatusPending && d.ProcessingStartedAt == nil
	})
	slices.SortFunc(docs, func(a, b domain.Document) int {
		if c := a.LastModifiedAt.Compare(b.LastModifiedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return docs, nil
}

// ListStaleClaims returns PENDING versions claimed before claimedBefore,
// oldest claim first.
func (s *DocumentStore) ListStaleClaims(_ context.Context, claimedBefore time.Time) ([]domain.Document, error) {
	docs := s.filter(func(d *domain.Document) bool {
		return d.Status == domain.StatusPending && d.ProcessingStartedAt != nil &&
			d.ProcessingStartedAt.Before(claimedBefore)
	})
	slices.SortFunc(docs, func(a, b domain.Document) int {
		if c := a.ProcessingStartedAt.Compare(*b.ProcessingStartedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return docs, nil
}

// Close is a no-op.
func (s *DocumentStore) Close() error {
	return nil
}

func (s *DocumentStore) filter(keep func(*domain.Document) bool) []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if keep(&doc) {
			out = append(out, doc)
		}
	}
	return out
}

func compareIDs(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
