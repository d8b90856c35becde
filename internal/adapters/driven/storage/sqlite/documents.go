package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// documentColumns is the column list every document query selects.
const documentColumns = `id, version, previous_version_id, status, archived, title, summary,
	source, document_type, section_number, filename, file_key, chunk_count, processing_error,
	amendment_date, effective_date, processing_started_at,
	uploaded_by, uploaded_at, last_modified_by, last_modified_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Create inserts a new chain head at version 1.
func (s *documentStore) Create(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Version = 1
	doc.PreviousVersionID = nil
	doc.Status = domain.StatusPending
	doc.Archived = false

	if err := insertDocument(ctx, s.store.db, doc); err != nil {
		return fmt.Errorf("%w: creating document: %v", domain.ErrStorage, err)
	}
	return nil
}

// Get retrieves a version by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// Successor returns the version that superseded id.
func (s *documentStore) Successor(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE previous_version_id = ?", id)
	return scanDocument(row)
}

// CommitUpdate archives id and inserts its successor.
func (s *documentStore) CommitUpdate(
	ctx context.Context,
	id string,
	expectedVersion int,
	patch domain.DocumentPatch,
	actor string,
	at time.Time,
) (*domain.Document, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The compare-and-swap comes first so the transaction takes the write
	// lock before it reads anything.
	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET archived = 1
		WHERE id = ? AND version = ? AND archived = 0
	`, id, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: archiving version: %v", domain.ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	old, err := scanDocument(tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: document %s is at version %d, expected %d",
			domain.ErrConflict, id, old.Version, expectedVersion)
	}

	next := *old
	patch.Apply(&next)
	prev := old.ID
	next.ID = uuid.NewString()
	next.Version = old.Version + 1
	next.PreviousVersionID = &prev
	next.Status = domain.StatusPending
	next.Archived = false
	next.ChunkCount = 0
	next.ProcessingError = ""
	next.ProcessingStartedAt = nil
	next.LastModifiedBy = actor
	next.LastModifiedAt = at.UTC()

	if err := insertDocument(ctx, tx, &next); err != nil {
		return nil, fmt.Errorf("%w: inserting version: %v", domain.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing update: %v", domain.ErrStorage, err)
	}
	return &next, nil
}

// ClaimProcessing marks a PENDING version as being ingested.
func (s *documentStore) ClaimProcessing(ctx context.Context, id string, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET processing_started_at = ?
		WHERE id = ? AND status = 'PENDING' AND processing_started_at IS NULL
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: claiming document: %v", domain.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusPending {
		return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, id, doc.Status)
	}
	return fmt.Errorf("%w: document %s", domain.ErrAlreadyClaimed, id)
}

// MarkProcessed transitions PENDING to PROCESSED.
func (s *documentStore) MarkProcessed(ctx context.Context, id string, chunkCount int) error {
	return s.transition(ctx, id, `
		UPDATE documents SET status = 'PROCESSED', chunk_count = ?, processing_error = ''
		WHERE id = ? AND status = 'PENDING'
	`, chunkCount, id)
}

// MarkFailed transitions PENDING to FAILED.
func (s *documentStore) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.transition(ctx, id, `
		UPDATE documents SET status = 'FAILED', processing_error = ?
		WHERE id = ? AND status = 'PENDING'
	`, reason, id)
}

func (s *documentStore) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating status: %v", domain.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: document %s is already %s", domain.ErrInvalidTransition, id, doc.Status)
}

// SaveChunks stores the chunks of one version.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, chunk_index, content, metadata, vector_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %v", domain.ErrStorage, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, chunk.DocumentID, chunk.Index, chunk.Content,
			string(metadataJSON), chunk.VectorID); err != nil {
			return fmt.Errorf("%w: saving chunk %d: %v", domain.ErrStorage, chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

// DeleteChunks removes every chunk of a version.
func (s *documentStore) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("%w: deleting chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

// GetChunks returns the chunks of a version ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, content, metadata, vector_id
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var metadataJSON string
		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Content,
			&metadataJSON, &chunk.VectorID); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ListCurrent returns every non-archived version, newest first.
func (s *documentStore) ListCurrent(ctx context.Context) ([]domain.Document, error) {
	return s.list(ctx, `WHERE archived = 0 ORDER BY last_modified_at DESC, id`)
}

// ListUnclaimed returns PENDING versions never claimed for ingestion, oldest first.
func (s *documentStore) ListUnclaimed(ctx context.Context) ([]domain.Document, error) {
	return s.list(ctx, `WHERE status = 'PENDING' AND processing_started_at IS NULL
		ORDER BY last_modified_at, id`)
}

// ListStaleClaims returns PENDING versions claimed before claimedBefore,
// oldest claim first. Claim times are compared after scanning since the
// driver stores them as text.
func (s *documentStore) ListStaleClaims(ctx context.Context, claimedBefore time.Time) ([]domain.Document, error) {
	claimed, err := s.list(ctx, `WHERE status = 'PENDING' AND processing_started_at IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	stale := claimed[:0]
	for _, doc := range claimed {
		if doc.ProcessingStartedAt != nil && doc.ProcessingStartedAt.Before(claimedBefore) {
			stale = append(stale, doc)
		}
	}
	slices.SortFunc(stale, func(a, b domain.Document) int {
		return a.ProcessingStartedAt.Compare(*b.ProcessingStartedAt)
	})
	return stale, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *documentStore) Close() error {
	return nil
}

func (s *documentStore) list(ctx context.Context, where string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents "+where)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertDocument(ctx context.Context, db execer, doc *domain.Document) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID, doc.Version, doc.PreviousVersionID, string(doc.Status), doc.Archived,
		doc.Title, doc.Summary, doc.Source, string(doc.DocumentType), doc.SectionNumber,
		doc.Filename, doc.FileKey, doc.ChunkCount, doc.ProcessingError,
		utcPtr(doc.AmendmentDate), utcPtr(doc.EffectiveDate), utcPtr(doc.ProcessingStartedAt),
		doc.UploadedBy, doc.UploadedAt.UTC(), doc.LastModifiedBy, doc.LastModifiedAt.UTC(),
	)
	return err
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc                             domain.Document
		prev                            sql.NullString
		status, docType                 string
		amendment, effective, startedAt sql.NullTime
	)

	if err := row.Scan(&doc.ID, &doc.Version, &prev, &status, &doc.Archived,
		&doc.Title, &doc.Summary, &doc.Source, &docType, &doc.SectionNumber,
		&doc.Filename, &doc.FileKey, &doc.ChunkCount, &doc.ProcessingError,
		&amendment, &effective, &startedAt,
		&doc.UploadedBy, &doc.UploadedAt, &doc.LastModifiedBy, &doc.LastModifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.Status(status)
	doc.DocumentType = domain.DocumentType(docType)
	if prev.Valid {
		doc.PreviousVersionID = &prev.String
	}
	doc.AmendmentDate = nullTimePtr(amendment)
	doc.EffectiveDate = nullTimePtr(effective)
	doc.ProcessingStartedAt = nullTimePtr(startedAt)
	return &doc, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
