package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

var errBoom = errors.New("boom")

// --- Mock implementations for service testing ---

// stubClassifier always returns the same intent.
type stubClassifier struct {
	intent domain.Intent
}

func (s stubClassifier) Classify(string) domain.Intent {
	if s.intent == "" {
		return domain.IntentGeneral
	}
	return s.intent
}

// fakeIndex implements driving.VectorIndex with canned hits.
type fakeIndex struct {
	mu      sync.Mutex
	hits    []domain.ScoredText
	delay   time.Duration
	addErr  error
	short   bool
	lastK   int
	added   []domain.IndexItem
	deleted []string
}

func (f *fakeIndex) Add(_ context.Context, items []domain.IndexItem) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.added = append(f.added, items...)
	if f.short {
		return len(items) - 1, nil
	}
	return len(items), nil
}

func (f *fakeIndex) Search(ctx context.Context, _ string, k int) []domain.ScoredText {
	f.mu.Lock()
	f.lastK = k
	delay := f.delay
	hits := append([]domain.ScoredText(nil), f.hits...)
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
	return hits
}

func (f *fakeIndex) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

// recordingAudit implements driving.AuditService in memory.
type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *recordingAudit) Log(_ context.Context, event domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) List(_ context.Context, _ domain.AuditFilter) ([]domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.events...), nil
}

func (r *recordingAudit) History(_ context.Context, _ string, _ int) ([]domain.AuditEvent, error) {
	return nil, nil
}

func (r *recordingAudit) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]domain.AuditAction, len(r.events))
	for i, e := range r.events {
		actions[i] = e.Action
	}
	return actions
}

func (r *recordingAudit) last() domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// failingAuditStore rejects every append.
type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, *domain.AuditEvent) error { return errBoom }
func (failingAuditStore) List(context.Context, domain.AuditFilter) ([]domain.AuditEvent, error) {
	return nil, errBoom
}

// fakeIngestion implements driving.IngestionService by recording jobs.
type fakeIngestion struct {
	mu        sync.Mutex
	jobs      []domain.IngestionJob
	submitErr error
}

func (f *fakeIngestion) Submit(_ context.Context, job domain.IngestionJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeIngestion) Process(_ context.Context, job domain.IngestionJob) domain.IngestionResult {
	return domain.IngestionResult{DocumentID: job.DocumentID}
}

func (f *fakeIngestion) Resume(context.Context) (int, error) { return 0, nil }

// memFiles implements driven.FileStore over a map.
type memFiles struct {
	mu       sync.Mutex
	data     map[string][]byte
	writeErr error
	deleted  []string
}

func newMemFiles() *memFiles {
	return &memFiles{data: make(map[string][]byte)}
}

func (m *memFiles) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memFiles) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *memFiles) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memFiles) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// flakyDocStore wraps the memory store and injects failures.
type flakyDocStore struct {
	*memory.DocumentStore
	createErr        error
	saveChunksErr    error
	markProcessedErr error
}

func (f *flakyDocStore) Create(ctx context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.DocumentStore.Create(ctx, doc)
}

func (f *flakyDocStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if f.saveChunksErr != nil {
		return f.saveChunksErr
	}
	return f.DocumentStore.SaveChunks(ctx, chunks)
}

func (f *flakyDocStore) MarkProcessed(ctx context.Context, id string, chunkCount int) error {
	if f.markProcessedErr != nil {
		return f.markProcessedErr
	}
	return f.DocumentStore.MarkProcessed(ctx, id, chunkCount)
}

// failingEmbedder fails every request.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) ModelName() string { return "failing" }
func (failingEmbedder) Ping(context.Context) error { return domain.ErrEmbeddingUnavailable }
func (failingEmbedder) Close() error { return nil }

// unreachableStore is a vector store whose backend is down.
type unreachableStore struct{}

func (unreachableStore) Upsert(context.Context, []driven.VectorRecord) error {
	return domain.ErrIndexUnavailable
}

func (unreachableStore) Query(context.Context, []float32, int) ([]driven.VectorHit, error) {
	return nil, domain.ErrIndexUnavailable
}

func (unreachableStore) Delete(context.Context, []string) error { return domain.ErrIndexUnavailable }
func (unreachableStore) Count(context.Context) (int, error) { return 0, domain.ErrIndexUnavailable }
func (unreachableStore) Close() error { return nil }
