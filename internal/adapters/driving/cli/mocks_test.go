package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/custodia-labs/lexrag/internal/connectors/filesystem"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var testTime = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	docs   map[string]*domain.Document
	chunks []domain.Chunk
	err    error

	lastUpload  domain.UploadRequest
	lastID      string
	lastVersion int
	lastPatch   domain.DocumentPatch
	lastActor   domain.Actor
}

func newMockDocumentService() *mockDocumentService {
	prev := "doc-1"
	return &mockDocumentService{
		docs: map[string]*domain.Document{
			"doc-1": {
				ID: "doc-1", Version: 1, Status: domain.StatusProcessed, Archived: true,
				Title: "IT Act 2000", Source: "Gazette", DocumentType: domain.DocumentTypeCyberLaw,
				Filename: "it_act.txt", ChunkCount: 4, UploadedBy: "alice", UploadedAt: testTime,
				LastModifiedBy: "alice", LastModifiedAt: testTime,
			},
			"doc-2": {
				ID: "doc-2", Version: 2, PreviousVersionID: &prev, Status: domain.StatusProcessed,
				Title: "IT Act 2000 (amended)", Source: "Gazette", DocumentType: domain.DocumentTypeCyberLaw,
				Filename: "it_act.txt", ChunkCount: 4, UploadedBy: "alice", UploadedAt: testTime,
				LastModifiedBy: "bob", LastModifiedAt: testTime.Add(time.Hour),
			},
		},
		chunks: []domain.Chunk{{
			DocumentID: "doc-2",
			Index:      0,
			Content:    "Whoever commits hacking shall be punished",
			Metadata:   map[string]any{domain.MetaSectionTitle: "Section 66"},
		}},
	}
}

func (m *mockDocumentService) Upload(_ context.Context, req domain.UploadRequest) (*domain.UploadReceipt, error) {
	m.lastUpload = req
	if m.err != nil {
		return nil, m.err
	}
	m.docs["doc-new"] = &domain.Document{
		ID: "doc-new", Version: 1, Status: domain.StatusProcessed, Title: req.Title,
		Filename: req.Filename, ChunkCount: 3,
	}
	return &domain.UploadReceipt{DocumentID: "doc-new", Status: domain.UploadStatusProcessing}, nil
}

func (m *mockDocumentService) Update(
	_ context.Context,
	id string,
	expectedVersion int,
	patch domain.DocumentPatch,
	actor domain.Actor,
) (*domain.UpdateReceipt, error) {
	m.lastID = id
	m.lastVersion = expectedVersion
	m.lastPatch = patch
	m.lastActor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UpdateReceipt{NewDocumentID: "doc-3", Version: expectedVersion + 1}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentService) Latest(ctx context.Context, _ string) (*domain.Document, error) {
	return m.Get(ctx, "doc-2")
}

func (m *mockDocumentService) Versions(_ context.Context, id string) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.docs[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return []domain.Document{*m.docs["doc-1"], *m.docs["doc-2"]}, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Document{*m.docs["doc-2"]}, nil
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	err       error
	lastQuery string
	lastActor domain.Actor
}

func (m *mockRetrievalService) Answer(_ context.Context, query string, actor domain.Actor) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastActor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Answer{
		Answer: "Based on the Cyber Laws, here are the applicable penalties and punishments:\n\nWhoever commits hacking...",
		Intent: domain.IntentPenalty,
		Sources: []domain.AnswerSource{
			{DocumentID: "doc-2", Title: "IT Act 2000", Section: "Section 66", Confidence: 87.5},
		},
		Confidence:  87.5,
		ContextUsed: 1,
	}, nil
}

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	events []domain.AuditEvent
	err    error

	lastFilter   domain.AuditFilter
	historyActor string
	historyLimit int
}

func (m *mockAuditService) Log(_ context.Context, event domain.AuditEvent) {
	m.events = append(m.events, event)
}

func (m *mockAuditService) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	m.lastFilter = filter
	return m.events, m.err
}

func (m *mockAuditService) History(_ context.Context, actor string, limit int) ([]domain.AuditEvent, error) {
	m.historyActor = actor
	m.historyLimit = limit
	return m.events, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	values map[string]any
	getErr error
	setErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{values: map[string]any{
		"embedding.provider":        "hashing",
		"embedding.api_key":         "",
		"retrieval.top_k":           5,
		"upload.allowed_extensions": []string{".pdf", ".docx", ".txt"},
	}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return domain.DefaultAppSettings("/data"), nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Value(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettingsService) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// mockIngestion is a mock IngestionWaiter.
type mockIngestion struct {
	waited bool
	err    error
}

func (m *mockIngestion) Wait(_ context.Context) error {
	m.waited = true
	return m.err
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	documents *mockDocumentService
	retrieval *mockRetrievalService
	audit     *mockAuditService
	settings  *mockSettingsService
	ingestion *mockIngestion
}

// setupTestServices installs fresh mocks and default flag values, and
// returns a cleanup function that restores the previous state.
func setupTestServices() (*testServices, func()) {
	oldDocs, oldRetrieval, oldAudit := documentService, retrievalService, auditService
	oldSettings, oldIngestion := settingsService, ingestionWaiter
	oldLoader, oldBootstrap, oldStdin := settingsLoader, bootstrap, stdin

	ts := &testServices{
		documents: newMockDocumentService(),
		retrieval: &mockRetrievalService{},
		audit:     &mockAuditService{},
		settings:  newMockSettingsService(),
		ingestion: &mockIngestion{},
	}
	documentService = ts.documents
	retrievalService = ts.retrieval
	auditService = ts.audit
	settingsService = ts.settings
	ingestionWaiter = ts.ingestion
	settingsLoader, bootstrap = nil, nil
	resetFlags()

	return ts, func() {
		documentService, retrievalService, auditService = oldDocs, oldRetrieval, oldAudit
		settingsService, ingestionWaiter = oldSettings, oldIngestion
		settingsLoader, bootstrap, stdin = oldLoader, oldBootstrap, oldStdin
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

// resetFlags restores the flag variables that persist between executions.
func resetFlags() {
	actorID = "tester"
	verbose, configDir, logFormat = false, "", ""
	uploadTitle, uploadSummary, uploadSource, uploadSection = "", "", "", ""
	uploadType, uploadNoWait = string(domain.DocumentTypeCyberLaw), false
	updateExpected, updatePatch, updateTitle, updateSummary, updateSource = 0, "", "", "", ""
	queryJSON, documentsJSON, auditJSON, historyJSON = false, false, false, false
	auditActor, auditAction, auditDocument, auditSince, auditUntil = "", "", "", "", ""
	auditLimit, historyLimit = domain.MaxAuditLimit, 20
	watchSource, watchType = filesystem.DefaultSource, string(domain.DocumentTypeCyberLaw)
	updateCmd.Flags().Lookup("expected-version").Changed = false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTempFile creates a file with content in dir and returns its path.
func writeTempFile(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, []byte(content), 0o600)
}
