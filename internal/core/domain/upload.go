package domain

import "time"

// UploadRequest carries a new document into the system.
type UploadRequest struct {
	// Filename is the original file name; its extension selects the extractor.
	Filename string

	// Content is the raw file bytes.
	Content []byte

	// Title defaults to the filename without extension.
	Title string

	// Summary is optional.
	Summary string

	// Source names where the document came from.
	Source string

	// DocumentType classifies the document.
	DocumentType DocumentType

	// SectionNumber is optional.
	SectionNumber string

	// AmendmentDate is optional.
	AmendmentDate *time.Time

	// EffectiveDate is optional.
	EffectiveDate *time.Time

	// Actor performs the upload.
	Actor Actor
}

// UploadStatusProcessing is the acknowledgement status of an accepted upload.
const UploadStatusProcessing = "processing"

// UploadReceipt acknowledges an accepted upload. Ingestion continues in the background.
type UploadReceipt struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// UpdateReceipt identifies the version created by a successful update.
type UpdateReceipt struct {
	NewDocumentID string `json:"new_document_id"`
	Version       int    `json:"version"`
}

// IngestionJob asks the pipeline to process one document version.
type IngestionJob struct {
	// DocumentID is the version to process.
	DocumentID string

	// Actor is recorded on the completion audit event.
	Actor string
}

// IngestionResult reports the outcome of one ingestion job.
type IngestionResult struct {
	DocumentID string
	Status     Status
	Sections   int
	Chunks     int
	Err        error
}
