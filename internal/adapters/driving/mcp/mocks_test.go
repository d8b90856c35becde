package mcp

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	answer    *domain.Answer
	err       error
	lastQuery string
	lastActor domain.Actor
}

func (m *mockRetrievalService) Answer(_ context.Context, query string, actor domain.Actor) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastActor = actor
	return m.answer, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	latest    *domain.Document
	chunks    []domain.Chunk
	err       error

	lastUpload  domain.UploadRequest
	lastPatch   domain.DocumentPatch
	lastVersion int
}

func (m *mockDocumentService) Upload(_ context.Context, req domain.UploadRequest) (*domain.UploadReceipt, error) {
	m.lastUpload = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UploadReceipt{DocumentID: "doc-new", Status: domain.UploadStatusProcessing}, nil
}

func (m *mockDocumentService) Update(
	_ context.Context,
	_ string,
	expectedVersion int,
	patch domain.DocumentPatch,
	_ domain.Actor,
) (*domain.UpdateReceipt, error) {
	m.lastPatch = patch
	m.lastVersion = expectedVersion
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UpdateReceipt{NewDocumentID: "doc-v2", Version: expectedVersion + 1}, nil
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Latest(_ context.Context, _ string) (*domain.Document, error) {
	return m.latest, m.err
}

func (m *mockDocumentService) Versions(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	events       []domain.AuditEvent
	err          error
	lastFilter   domain.AuditFilter
	historyActor string
}

func (m *mockAuditService) Log(context.Context, domain.AuditEvent) {}

func (m *mockAuditService) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	m.lastFilter = filter
	return m.events, m.err
}

func (m *mockAuditService) History(_ context.Context, actor string, _ int) ([]domain.AuditEvent, error) {
	m.historyActor = actor
	return m.events, m.err
}
