package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

type documentStore struct {
	db *gorm.DB
}

var _ driven.DocumentStore = (*documentStore)(nil)

func (s *documentStore) Create(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Version = 1
	doc.PreviousVersionID = nil
	doc.Status = domain.StatusPending
	doc.Archived = false

	row := toDocumentRow(doc)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return mapError("create document", err)
	}
	return nil
}

func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.first(ctx, s.db, "id = ?", id)
}

func (s *documentStore) Successor(ctx context.Context, id string) (*domain.Document, error) {
	return s.first(ctx, s.db, "previous_version_id = ?", id)
}

// CommitUpdate archives id and inserts its successor in one transaction.
// Concurrent writers block on the row lock taken by the archive UPDATE and
// then see archived = true, so only one of them commits.
func (s *documentStore) CommitUpdate(
	ctx context.Context,
	id string,
	expectedVersion int,
	patch domain.DocumentPatch,
	actor string,
	at time.Time,
) (*domain.Document, error) {
	var next *domain.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&documentRow{}).
			Where("id = ? AND version = ? AND archived = ?", id, expectedVersion, false).
			Update("archived", true)
		if res.Error != nil {
			return mapError("archive version", res.Error)
		}

		old, err := s.first(ctx, tx, "id = ?", id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: document %s is at version %d, expected %d",
				domain.ErrConflict, id, old.Version, expectedVersion)
		}

		successor := *old
		patch.Apply(&successor)
		prev := old.ID
		successor.ID = uuid.NewString()
		successor.Version = old.Version + 1
		successor.PreviousVersionID = &prev
		successor.Status = domain.StatusPending
		successor.Archived = false
		successor.ChunkCount = 0
		successor.ProcessingError = ""
		successor.ProcessingStartedAt = nil
		successor.LastModifiedBy = actor
		successor.LastModifiedAt = at.UTC()

		row := toDocumentRow(&successor)
		if err := tx.Create(&row).Error; err != nil {
			return mapError("insert version", err)
		}
		next = &successor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *documentStore) ClaimProcessing(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("id = ? AND status = ? AND processing_started_at IS NULL", id, string(domain.StatusPending)).
		Update("processing_started_at", at.UTC())
	if res.Error != nil {
		return mapError("claim document", res.Error)
	}
	if res.RowsAffected > 0 {
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

func (s *documentStore) MarkProcessed(ctx context.Context, id string, chunkCount int) error {
	return s.settle(ctx, id, map[string]any{
		"status":           string(domain.StatusProcessed),
		"chunk_count":      chunkCount,
		"processing_error": "",
	})
}

func (s *documentStore) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.settle(ctx, id, map[string]any{
		"status":           string(domain.StatusFailed),
		"processing_error": reason,
	})
}

func (s *documentStore) settle(ctx context.Context, id string, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Updates(updates)
	if res.Error != nil {
		return mapError("settle document", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, id, doc.Status)
}

func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = chunkRow{
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Metadata:   jsonMap(c.Metadata),
			VectorID:   c.VectorID,
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		// Chunks are immutable, so a duplicate is a storage fault rather than a retryable conflict.
		return fmt.Errorf("%w: saving chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *documentStore) DeleteChunks(ctx context.Context, documentID string) error {
	if err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&chunkRow{}).Error; err != nil {
		return mapError("delete chunks", err)
	}
	return nil
}

func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	var rows []chunkRow
	if err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index").
		Find(&rows).Error; err != nil {
		return nil, mapError("get chunks", err)
	}
	chunks := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		chunks[i] = domain.Chunk{
			DocumentID: r.DocumentID,
			Index:      r.ChunkIndex,
			Content:    r.Content,
			Metadata:   map[string]any(r.Metadata),
			VectorID:   r.VectorID,
		}
	}
	return chunks, nil
}

func (s *documentStore) ListCurrent(ctx context.Context) ([]domain.Document, error) {
	return s.list(ctx, s.db.Where("archived = ?", false).Order("last_modified_at DESC, id"))
}

func (s *documentStore) ListUnclaimed(ctx context.Context) ([]domain.Document, error) {
	return s.list(ctx, s.db.
		Where("status = ? AND processing_started_at IS NULL", string(domain.StatusPending)).
		Order("last_modified_at, id"))
}

func (s *documentStore) ListStaleClaims(ctx context.Context, claimedBefore time.Time) ([]domain.Document, error) {
	return s.list(ctx, s.db.
		Where("status = ? AND processing_started_at < ?", string(domain.StatusPending), claimedBefore.UTC()).
		Order("processing_started_at, id"))
}

// Close is a no-op; the owning Store closes the pool.
func (s *documentStore) Close() error {
	return nil
}

func (s *documentStore) first(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Document, error) {
	var row documentRow
	if err := db.WithContext(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, mapError("get document", err)
	}
	return row.toDomain(), nil
}

func (s *documentStore) list(ctx context.Context, q *gorm.DB) ([]domain.Document, error) {
	var rows []documentRow
	if err := q.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, mapError("list documents", err)
	}
	docs := make([]domain.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].toDomain()
	}
	return docs, nil
}
