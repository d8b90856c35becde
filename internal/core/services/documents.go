package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// filenamePattern accepts word characters, dashes, dots and spaces.
var filenamePattern = regexp.MustCompile(`^[\w\-. ]+$`)

// maxChainLength bounds chain walks so a corrupted chain cannot loop forever.
const maxChainLength = 10000

// DocumentService manages uploads and document version chains.
type DocumentService struct {
	docs      driven.DocumentStore
	files     driven.FileStore
	audit     driving.AuditService
	ingestion driving.IngestionService
	upload    domain.UploadSettings
	now       func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docs driven.DocumentStore,
	files driven.FileStore,
	audit driving.AuditService,
	ingestion driving.IngestionService,
	upload domain.UploadSettings,
) *DocumentService {
	return &DocumentService{
		docs:      docs,
		files:     files,
		audit:     audit,
		ingestion: ingestion,
		upload:    upload,
		now:       time.Now,
	}
}

// Upload validates the request, stores the file, creates a PENDING chain
// head and queues it for ingestion.
func (s *DocumentService) Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadReceipt, error) {
	if err := s.validateUpload(&req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := uuid.NewString()
	doc := &domain.Document{
		ID:             id,
		Version:        1,
		Status:         domain.StatusPending,
		Title:          req.Title,
		Summary:        req.Summary,
		Source:         req.Source,
		DocumentType:   req.DocumentType,
		SectionNumber:  req.SectionNumber,
		Filename:       req.Filename,
		FileKey:        id + strings.ToLower(filepath.Ext(req.Filename)),
		AmendmentDate:  req.AmendmentDate,
		EffectiveDate:  req.EffectiveDate,
		UploadedBy:     req.Actor.ID,
		UploadedAt:     now,
		LastModifiedBy: req.Actor.ID,
		LastModifiedAt: now,
	}

	if err := s.files.Write(ctx, doc.FileKey, req.Content); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), doc.FileKey); delErr != nil {
			logger.Warnw("failed to remove orphaned upload", "key", doc.FileKey, "error", delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.audit.Log(ctx, domain.AuditEvent{
		Actor:      req.Actor.ID,
		Action:     domain.ActionUpload,
		DocumentID: id,
		IPAddress:  req.Actor.IPAddress,
		UserAgent:  req.Actor.UserAgent,
		Details: map[string]any{
			"filename":      req.Filename,
			"source":        req.Source,
			"document_type": string(req.DocumentType),
			"size":          len(req.Content),
		},
	})

	s.schedule(ctx, id, req.Actor.ID)
	return &domain.UploadReceipt{DocumentID: id, Status: domain.UploadStatusProcessing}, nil
}

func (s *DocumentService) validateUpload(req *domain.UploadRequest) error {
	req.Filename = strings.TrimSpace(req.Filename)
	if req.Filename == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if !filenamePattern.MatchString(req.Filename) {
		return fmt.Errorf("%w: filename %q contains invalid characters", domain.ErrValidation, req.Filename)
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !s.upload.IsAllowed(ext) {
		return fmt.Errorf("%w: file type %q not allowed (allowed: %s)",
			domain.ErrValidation, ext, strings.Join(s.upload.AllowedExtensions, ", "))
	}
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: file is empty", domain.ErrValidation)
	}
	if int64(len(req.Content)) > s.upload.MaxSize {
		return fmt.Errorf("%w: file size %d exceeds maximum %d",
			domain.ErrValidation, len(req.Content), s.upload.MaxSize)
	}
	if req.DocumentType == "" {
		req.DocumentType = domain.DocumentTypeCyberLaw
	}
	if !req.DocumentType.IsValid() {
		return fmt.Errorf("%w: unknown document type %q", domain.ErrValidation, req.DocumentType)
	}
	if strings.TrimSpace(req.Actor.ID) == "" {
		return fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	}
	return nil
}

// Update commits a new version of id if its stored version still equals
// expectedVersion, then queues the new version for ingestion.
func (s *DocumentService) Update(
	ctx context.Context,
	id string,
	expectedVersion int,
	patch domain.DocumentPatch,
	actor domain.Actor,
) (*domain.UpdateReceipt, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if expectedVersion < 1 {
		return nil, fmt.Errorf("%w: expected version must be at least 1", domain.ErrValidation)
	}
	if strings.TrimSpace(actor.ID) == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	next, err := s.docs.CommitUpdate(ctx, id, expectedVersion, patch, actor.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, domain.AuditEvent{
		Actor:      actor.ID,
		Action:     domain.ActionUpdate,
		DocumentID: id,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details: map[string]any{
			"old_version":     expectedVersion,
			"new_version":     next.Version,
			"new_document_id": next.ID,
			"changes":         patch.Changes(),
		},
	})

	s.schedule(ctx, next.ID, actor.ID)
	return &domain.UpdateReceipt{NewDocumentID: next.ID, Version: next.Version}, nil
}

// schedule queues ingestion. A version that cannot be queued stays
// PENDING and unclaimed, so Resume picks it up later.
func (s *DocumentService) schedule(ctx context.Context, id, actor string) {
	if err := s.ingestion.Submit(ctx, domain.IngestionJob{DocumentID: id, Actor: actor}); err != nil {
		logger.Warnw("ingestion not queued; will resume on next start", "document_id", id, "error", err)
	}
}

// Get returns one version.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.Get(ctx, id)
}

// Latest follows the chain forward from id to its current version.
func (s *DocumentService) Latest(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for n := 0; n < maxChainLength; n++ {
		next, err := s.docs.Successor(ctx, doc.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return doc, nil
		}
		if err != nil {
			return nil, err
		}
		doc = next
	}
	return nil, fmt.Errorf("%w: chain from %s exceeds %d versions", domain.ErrStorage, id, maxChainLength)
}

// Versions returns the whole chain containing id, oldest first.
func (s *DocumentService) Versions(ctx context.Context, id string) ([]domain.Document, error) {
	head, err := s.Latest(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := []domain.Document{*head}
	for prev := head.PreviousVersionID; prev != nil; {
		if len(chain) >= maxChainLength {
			return nil, fmt.Errorf("%w: chain from %s exceeds %d versions", domain.ErrStorage, id, maxChainLength)
		}
		doc, err := s.docs.Get(ctx, *prev)
		if err != nil {
			return nil, fmt.Errorf("get version %s: %w", *prev, err)
		}
		chain = append(chain, *doc)
		prev = doc.PreviousVersionID
	}

	slices.Reverse(chain)
	return chain, nil
}

// List returns the current version of every chain.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docs.ListCurrent(ctx)
}

// Chunks returns the chunks indexed for a version.
func (s *DocumentService) Chunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	if _, err := s.docs.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.docs.GetChunks(ctx, id)
}
