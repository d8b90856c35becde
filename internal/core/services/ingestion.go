package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestionService = (*Ingestor)(nil)

// Ingestor runs document ingestion on a pool of background workers.
// Jobs are claimed in the document store before any work starts, so a
// version is never ingested twice, even across processes.
type Ingestor struct {
	docs        driven.DocumentStore
	files       driven.FileStore
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	index       driving.VectorIndex
	audit       driving.AuditService
	workers     int
	staleAfter  time.Duration
	now         func() time.Time

	queue    chan domain.IngestionJob
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// submitMu is held shared by Submit while it enqueues and exclusively
	// by Stop before draining, so no job lands in the queue after the drain.
	submitMu sync.RWMutex

	mu       sync.Mutex
	running  bool
	inflight int
	idle     chan struct{}
}

// NewIngestor creates an ingestor. Call Start to begin processing queued jobs.
func NewIngestor(
	docs driven.DocumentStore,
	files driven.FileStore,
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	index driving.VectorIndex,
	audit driving.AuditService,
	cfg domain.IngestionSettings,
) *Ingestor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.StaleClaimAfter <= 0 {
		cfg.StaleClaimAfter = domain.DefaultAppSettings("").Ingestion.StaleClaimAfter
	}
	idle := make(chan struct{})
	close(idle)
	return &Ingestor{
		docs:        docs,
		files:       files,
		normalisers: normalisers,
		pipeline:    pipeline,
		index:       index,
		audit:       audit,
		workers:     cfg.Workers,
		staleAfter:  cfg.StaleClaimAfter,
		now:         time.Now,
		queue:       make(chan domain.IngestionJob, cfg.QueueSize),
		done:        make(chan struct{}),
		idle:        idle,
	}
}

// Start launches the workers. It returns immediately. Cancelling ctx
// has the same effect as Stop.
func (i *Ingestor) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		return // Already running
	}
	i.running = true

	for n := 0; n < i.workers; n++ {
		i.wg.Add(1)
		go i.work(ctx)
	}
	go func() {
		select {
		case <-ctx.Done():
			_ = i.Stop()
		case <-i.done:
		}
	}()
}

// Stop stops accepting jobs and waits for running jobs to finish.
// Queued jobs that never started stay PENDING and unclaimed; Resume
// picks them up on the next start.
func (i *Ingestor) Stop() error {
	i.stopOnce.Do(func() { close(i.done) })

	// Wait out any Submit still enqueueing.
	i.submitMu.Lock()
	defer i.submitMu.Unlock()
	i.wg.Wait()

	for {
		select {
		case <-i.queue:
			i.finish()
		default:
			return nil
		}
	}
}

// Submit queues a job. It blocks only while the queue is full.
func (i *Ingestor) Submit(ctx context.Context, job domain.IngestionJob) error {
	i.submitMu.RLock()
	defer i.submitMu.RUnlock()

	select {
	case <-i.done:
		return domain.ErrQueueClosed
	default:
	}

	i.begin()
	select {
	case i.queue <- job:
		logger.Debug("queued ingestion of %s", job.DocumentID)
		return nil
	case <-i.done:
		i.finish()
		return domain.ErrQueueClosed
	case <-ctx.Done():
		i.finish()
		return ctx.Err()
	}
}

// Wait blocks until every submitted job has finished or ctx is done.
func (i *Ingestor) Wait(ctx context.Context) error {
	i.mu.Lock()
	idle := i.idle
	i.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume settles stale claims and queues every PENDING version that was
// never claimed. A version whose claim is older than the stale threshold
// belongs to a run that died; it is marked FAILED rather than retried.
func (i *Ingestor) Resume(ctx context.Context) (int, error) {
	if err := i.settleStale(ctx); err != nil {
		return 0, err
	}

	docs, err := i.docs.ListUnclaimed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unclaimed documents: %w", err)
	}

	for n, doc := range docs {
		if err := i.Submit(ctx, domain.IngestionJob{DocumentID: doc.ID, Actor: domain.SystemActor}); err != nil {
			return n, err
		}
	}
	if len(docs) > 0 {
		logger.Info("Resumed ingestion of %d documents", len(docs))
	}
	return len(docs), nil
}

func (i *Ingestor) settleStale(ctx context.Context) error {
	cutoff := i.now().UTC().Add(-i.staleAfter)
	stale, err := i.docs.ListStaleClaims(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale claims: %w", err)
	}

	for _, doc := range stale {
		if err := i.docs.MarkFailed(ctx, doc.ID, reasonInterrupted); err != nil {
			// Settled by its own run after all.
			logger.Warnw("failed to settle stale claim", "document_id", doc.ID, "error", err)
			continue
		}
		i.audit.Log(ctx, domain.AuditEvent{
			Actor:      domain.SystemActor,
			Action:     domain.ActionProcessFailed,
			DocumentID: doc.ID,
			Details: map[string]any{
				"filename":   doc.Filename,
				"version":    doc.Version,
				"error":      reasonInterrupted,
				"claimed_at": doc.ProcessingStartedAt.UTC().Format(time.RFC3339),
			},
		})
		logger.Warnw("interrupted ingestion marked failed", "document_id", doc.ID, "claimed_at", *doc.ProcessingStartedAt)
	}
	return nil
}

// reasonInterrupted is recorded on versions whose ingestion run died.
const reasonInterrupted = "ingestion interrupted"

func (i *Ingestor) work(ctx context.Context) {
	defer i.wg.Done()
	for {
		select {
		case <-i.done:
			return
		case <-ctx.Done():
			return
		case job := <-i.queue:
			result := i.Process(ctx, job)
			if result.Err != nil {
				logger.Debug("ingestion of %s ended with %v", job.DocumentID, result.Err)
			}
			i.finish()
		}
	}
}

func (i *Ingestor) begin() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.inflight == 0 {
		i.idle = make(chan struct{})
	}
	i.inflight++
}

func (i *Ingestor) finish() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.inflight--
	if i.inflight == 0 {
		close(i.idle)
	}
}

// Process claims and ingests one document version synchronously.
// Once claimed, the version always ends PROCESSED or FAILED, with a
// matching audit event. Cancelling ctx does not interrupt a claimed run.
func (i *Ingestor) Process(ctx context.Context, job domain.IngestionJob) domain.IngestionResult {
	ctx = context.WithoutCancel(ctx)
	result := domain.IngestionResult{DocumentID: job.DocumentID, Status: domain.StatusPending}

	actor := job.Actor
	if actor == "" {
		actor = domain.SystemActor
	}

	if err := i.docs.ClaimProcessing(ctx, job.DocumentID, i.now().UTC()); err != nil {
		// Another run owns it, or it already settled.
		result.Err = err
		return result
	}

	doc, err := i.docs.Get(ctx, job.DocumentID)
	if err != nil {
		result.Err = err
		return result
	}

	sections, chunks, err := i.ingest(ctx, doc)
	result.Sections = sections
	if err != nil {
		return i.fail(ctx, doc, actor, result, err)
	}

	if err := i.docs.MarkProcessed(ctx, doc.ID, len(chunks)); err != nil {
		if delErr := i.docs.DeleteChunks(ctx, doc.ID); delErr != nil {
			logger.Warnw("failed to remove chunks of unsettled version", "document_id", doc.ID, "error", delErr)
		}
		i.discard(ctx, chunks)
		return i.fail(ctx, doc, actor, result, err)
	}

	result.Status = domain.StatusProcessed
	result.Chunks = len(chunks)

	i.audit.Log(ctx, domain.AuditEvent{
		Actor:      actor,
		Action:     domain.ActionProcessComplete,
		DocumentID: doc.ID,
		Details: map[string]any{
			"filename":       doc.Filename,
			"version":        doc.Version,
			"total_sections": sections,
			"total_chunks":   len(chunks),
		},
	})
	logger.Infow("document processed",
		"document_id", doc.ID,
		"version", doc.Version,
		"sections", sections,
		"chunks", len(chunks),
	)
	return result
}

// ingest extracts, segments, chunks and indexes one version.
func (i *Ingestor) ingest(ctx context.Context, doc *domain.Document) (int, []domain.Chunk, error) {
	content, err := i.files.Read(ctx, doc.FileKey)
	if err != nil {
		return 0, nil, fmt.Errorf("read file: %w", err)
	}

	extracted, err := i.normalisers.Normalise(ctx, &domain.RawDocument{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		MIMEType:   domain.MIMETypeForFilename(doc.Filename),
		Content:    content,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("extract text: %w", err)
	}

	parsed := &domain.ParsedDocument{Document: doc, Text: extracted.Text}
	chunks, err := i.pipeline.Process(ctx, parsed)
	if err != nil {
		return parsed.Sections, nil, fmt.Errorf("segment: %w", err)
	}
	if len(chunks) == 0 {
		return parsed.Sections, chunks, nil
	}

	items := make([]domain.IndexItem, len(chunks))
	for n, c := range chunks {
		items[n] = domain.IndexItem{ID: c.VectorID, Text: c.Content, Metadata: c.Metadata}
	}
	added, err := i.index.Add(ctx, items)
	if err != nil {
		return parsed.Sections, nil, fmt.Errorf("index chunks: %w", err)
	}
	if added != len(items) {
		i.discard(ctx, chunks)
		return parsed.Sections, nil, fmt.Errorf("index chunks: indexed %d of %d", added, len(items))
	}

	if err := i.docs.SaveChunks(ctx, chunks); err != nil {
		i.discard(ctx, chunks)
		return parsed.Sections, nil, fmt.Errorf("save chunks: %w", err)
	}
	return parsed.Sections, chunks, nil
}

// discard removes the vectors of chunks that will not be recorded.
func (i *Ingestor) discard(ctx context.Context, chunks []domain.Chunk) {
	ids := make([]string, len(chunks))
	for n, c := range chunks {
		ids[n] = c.VectorID
	}
	if err := i.index.Delete(ctx, ids); err != nil {
		logger.Warnw("failed to remove orphaned vectors", "count", len(ids), "error", err)
	}
}

func (i *Ingestor) fail(
	ctx context.Context,
	doc *domain.Document,
	actor string,
	result domain.IngestionResult,
	cause error,
) domain.IngestionResult {
	if !errors.Is(cause, domain.ErrProcessing) {
		cause = fmt.Errorf("%w: %w", domain.ErrProcessing, cause)
	}
	result.Err = cause

	if err := i.docs.MarkFailed(ctx, doc.ID, cause.Error()); err != nil {
		logger.Errorw("failed to record ingestion failure", "document_id", doc.ID, "error", err)
	} else {
		result.Status = domain.StatusFailed
	}

	i.audit.Log(ctx, domain.AuditEvent{
		Actor:      actor,
		Action:     domain.ActionProcessFailed,
		DocumentID: doc.ID,
		Details: map[string]any{
			"filename": doc.Filename,
			"version":  doc.Version,
			"error":    cause.Error(),
		},
	})
	logger.Warnw("document processing failed", "document_id", doc.ID, "error", cause)
	return result
}
