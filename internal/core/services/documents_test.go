package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

type documentFixture struct {
	service   *DocumentService
	docs      *flakyDocStore
	files     *memFiles
	audit     *recordingAudit
	ingestion *fakeIngestion
}

func newDocumentFixture() *documentFixture {
	f := &documentFixture{
		docs:      &flakyDocStore{DocumentStore: memory.NewDocumentStore()},
		files:     newMemFiles(),
		audit:     &recordingAudit{},
		ingestion: &fakeIngestion{},
	}
	f.service = NewDocumentService(f.docs, f.files, f.audit, f.ingestion, domain.DefaultAppSettings("/data").Upload)
	return f
}

func validUpload() domain.UploadRequest {
	return domain.UploadRequest{
		Filename:     "it_act 2000.txt",
		Content:      []byte("SECTION 66: Computer Related Offences\nWhoever commits hacking shall be punished."),
		Source:       "Gazette of India",
		DocumentType: domain.DocumentTypeCyberLaw,
		Actor:        domain.Actor{ID: "editor"},
	}
}

func strPtr(s string) *string { return &s }

func TestDocumentService_Upload(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()

	receipt, err := f.service.Upload(ctx, validUpload())

	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusProcessing, receipt.Status)

	doc, err := f.service.Get(ctx, receipt.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.Equal(t, "it_act 2000", doc.Title)
	assert.Equal(t, receipt.DocumentID+".txt", doc.FileKey)
	assert.Equal(t, "editor", doc.UploadedBy)
	assert.Equal(t, "editor", doc.LastModifiedBy)

	stored, err := f.files.Read(ctx, doc.FileKey)
	require.NoError(t, err)
	assert.Equal(t, validUpload().Content, stored)

	require.Equal(t, []domain.AuditAction{domain.ActionUpload}, f.audit.actions())
	event := f.audit.last()
	assert.Equal(t, receipt.DocumentID, event.DocumentID)
	assert.Equal(t, "it_act 2000.txt", event.Details["filename"])
	assert.Equal(t, "Gazette of India", event.Details["source"])

	assert.Equal(t, []domain.IngestionJob{{DocumentID: receipt.DocumentID, Actor: "editor"}}, f.ingestion.jobs)
}

func TestDocumentService_Upload_DefaultsDocumentType(t *testing.T) {
	f := newDocumentFixture()
	req := validUpload()
	req.DocumentType = ""
	req.Title = "  Information Technology Act  "

	receipt, err := f.service.Upload(context.Background(), req)

	require.NoError(t, err)
	doc, err := f.service.Get(context.Background(), receipt.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeCyberLaw, doc.DocumentType)
	assert.Equal(t, "Information Technology Act", doc.Title)
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.UploadRequest)
	}{
		{"empty filename", func(r *domain.UploadRequest) { r.Filename = "  " }},
		{"path separator", func(r *domain.UploadRequest) { r.Filename = "../etc/passwd.txt" }},
		{"disallowed extension", func(r *domain.UploadRequest) { r.Filename = "payload.exe" }},
		{"no extension", func(r *domain.UploadRequest) { r.Filename = "README" }},
		{"empty content", func(r *domain.UploadRequest) { r.Content = nil }},
		{"oversized", func(r *domain.UploadRequest) { r.Content = make([]byte, 50*1024*1024+1) }},
		{"unknown document type", func(r *domain.UploadRequest) { r.DocumentType = "memo" }},
		{"missing actor", func(r *domain.UploadRequest) { r.Actor = domain.Actor{} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newDocumentFixture()
			req := validUpload()
			tc.mutate(&req)

			receipt, err := f.service.Upload(context.Background(), req)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Nil(t, receipt)
			assert.Empty(t, f.files.data)
			assert.Empty(t, f.audit.actions())
			assert.Empty(t, f.ingestion.jobs)
			docs, _ := f.service.List(context.Background())
			assert.Empty(t, docs)
		})
	}
}

func TestDocumentService_Upload_ExtensionCaseInsensitive(t *testing.T) {
	f := newDocumentFixture()
	req := validUpload()
	req.Filename = "ACT.TXT"

	receipt, err := f.service.Upload(context.Background(), req)

	require.NoError(t, err)
	doc, err := f.service.Get(context.Background(), receipt.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, receipt.DocumentID+".txt", doc.FileKey)
}

func TestDocumentService_Upload_CreateFailureRemovesFile(t *testing.T) {
	f := newDocumentFixture()
	f.docs.createErr = domain.ErrStorage

	receipt, err := f.service.Upload(context.Background(), validUpload())

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Nil(t, receipt)
	assert.Empty(t, f.files.data)
	assert.Len(t, f.files.deleted, 1)
	assert.Empty(t, f.audit.actions())
	assert.Empty(t, f.ingestion.jobs)
}

func TestDocumentService_Upload_FileWriteFailure(t *testing.T) {
	f := newDocumentFixture()
	f.files.writeErr = errBoom

	_, err := f.service.Upload(context.Background(), validUpload())

	assert.ErrorIs(t, err, errBoom)
	docs, _ := f.service.List(context.Background())
	assert.Empty(t, docs)
}

func TestDocumentService_Upload_QueueClosedStillAccepted(t *testing.T) {
	f := newDocumentFixture()
	f.ingestion.submitErr = domain.ErrQueueClosed

	receipt, err := f.service.Upload(context.Background(), validUpload())

	require.NoError(t, err)
	unclaimed, err := f.docs.ListUnclaimed(context.Background())
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)
	assert.Equal(t, receipt.DocumentID, unclaimed[0].ID)
}

func TestDocumentService_Update(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	receipt, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)

	patch := domain.DocumentPatch{Title: strPtr("IT Act (amended)"), Summary: strPtr("2008 amendment")}
	update, err := f.service.Update(ctx, receipt.DocumentID, 1, patch, domain.Actor{ID: "reviewer"})

	require.NoError(t, err)
	assert.Equal(t, 2, update.Version)
	assert.NotEqual(t, receipt.DocumentID, update.NewDocumentID)

	old, err := f.service.Get(ctx, receipt.DocumentID)
	require.NoError(t, err)
	assert.True(t, old.Archived)
	assert.Equal(t, "it_act 2000", old.Title)

	next, err := f.service.Get(ctx, update.NewDocumentID)
	require.NoError(t, err)
	assert.Equal(t, "IT Act (amended)", next.Title)
	assert.Equal(t, "2008 amendment", next.Summary)
	assert.Equal(t, "Gazette of India", next.Source)
	assert.Equal(t, domain.StatusPending, next.Status)
	assert.Equal(t, "reviewer", next.LastModifiedBy)
	require.NotNil(t, next.PreviousVersionID)
	assert.Equal(t, receipt.DocumentID, *next.PreviousVersionID)

	assert.Equal(t, []domain.AuditAction{domain.ActionUpload, domain.ActionUpdate}, f.audit.actions())
	event := f.audit.last()
	assert.Equal(t, receipt.DocumentID, event.DocumentID)
	assert.Equal(t, 1, event.Details["old_version"])
	assert.Equal(t, 2, event.Details["new_version"])
	assert.Equal(t, update.NewDocumentID, event.Details["new_document_id"])
	assert.Equal(t, map[string]any{"title": "IT Act (amended)", "summary": "2008 amendment"}, event.Details["changes"])

	require.Len(t, f.ingestion.jobs, 2)
	assert.Equal(t, domain.IngestionJob{DocumentID: update.NewDocumentID, Actor: "reviewer"}, f.ingestion.jobs[1])
}

func TestDocumentService_Update_Conflict(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	receipt, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)
	patch := domain.DocumentPatch{Title: strPtr("x")}

	_, err = f.service.Update(ctx, receipt.DocumentID, 2, patch, domain.Actor{ID: "a"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.service.Update(ctx, receipt.DocumentID, 1, patch, domain.Actor{ID: "a"})
	require.NoError(t, err)

	// The archived version can no longer be updated.
	_, err = f.service.Update(ctx, receipt.DocumentID, 1, patch, domain.Actor{ID: "b"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.service.Update(ctx, "missing", 1, patch, domain.Actor{ID: "b"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []domain.AuditAction{domain.ActionUpload, domain.ActionUpdate}, f.audit.actions())
	assert.Len(t, f.ingestion.jobs, 2)
}

func TestDocumentService_Update_Validation(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	receipt, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)

	_, err = f.service.Update(ctx, receipt.DocumentID, 1, domain.DocumentPatch{}, domain.Actor{ID: "a"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.Update(ctx, receipt.DocumentID, 1, domain.DocumentPatch{Title: strPtr(" ")}, domain.Actor{ID: "a"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.Update(ctx, receipt.DocumentID, 0, domain.DocumentPatch{Title: strPtr("x")}, domain.Actor{ID: "a"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.Update(ctx, receipt.DocumentID, 1, domain.DocumentPatch{Title: strPtr("x")}, domain.Actor{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	doc, err := f.service.Get(ctx, receipt.DocumentID)
	require.NoError(t, err)
	assert.False(t, doc.Archived)
}

func TestDocumentService_Update_ConcurrentSingleWinner(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	receipt, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)

	const racers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Update(ctx, receipt.DocumentID, 1,
				domain.DocumentPatch{Title: strPtr("racer")}, domain.Actor{ID: "racer"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, racers-1, conflicts)

	// A loser re-reads the head and retries.
	head, err := f.service.Latest(ctx, receipt.DocumentID)
	require.NoError(t, err)
	retry, err := f.service.Update(ctx, head.ID, head.Version, domain.DocumentPatch{Title: strPtr("retry")}, domain.Actor{ID: "racer"})
	require.NoError(t, err)
	assert.Equal(t, 3, retry.Version)
}

func TestDocumentService_Chain(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	first, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)
	second, err := f.service.Update(ctx, first.DocumentID, 1, domain.DocumentPatch{Source: strPtr("MeitY")}, domain.Actor{ID: "a"})
	require.NoError(t, err)
	third, err := f.service.Update(ctx, second.NewDocumentID, 2, domain.DocumentPatch{Title: strPtr("v3")}, domain.Actor{ID: "a"})
	require.NoError(t, err)

	other, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)

	for _, id := range []string{first.DocumentID, second.NewDocumentID, third.NewDocumentID} {
		latest, err := f.service.Latest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, third.NewDocumentID, latest.ID)
		assert.Equal(t, 3, latest.Version)

		versions, err := f.service.Versions(ctx, id)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		for i, v := range versions {
			assert.Equal(t, i+1, v.Version)
		}
		assert.Equal(t, first.DocumentID, versions[0].ID)
		assert.Nil(t, versions[0].PreviousVersionID)
	}

	current, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, current, 2)
	ids := []string{current[0].ID, current[1].ID}
	assert.ElementsMatch(t, []string{third.NewDocumentID, other.DocumentID}, ids)

	_, err = f.service.Latest(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.service.Versions(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Chunks(t *testing.T) {
	f := newDocumentFixture()
	ctx := context.Background()
	receipt, err := f.service.Upload(ctx, validUpload())
	require.NoError(t, err)

	require.NoError(t, f.docs.SaveChunks(ctx, []domain.Chunk{
		{DocumentID: receipt.DocumentID, Index: 1, Content: "b", VectorID: domain.ChunkVectorID(receipt.DocumentID, 1)},
		{DocumentID: receipt.DocumentID, Index: 0, Content: "a", VectorID: domain.ChunkVectorID(receipt.DocumentID, 0)},
	}))

	chunks, err := f.service.Chunks(ctx, receipt.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].Content)
	assert.Equal(t, "b", chunks[1].Content)

	_, err = f.service.Chunks(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
