package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status is the processing state of a single document version.
type Status string

// Document version states. PROCESSED and FAILED are terminal.
const (
	// StatusPending means the version is stored but not yet indexed.
	StatusPending Status = "PENDING"

	// StatusProcessed means every chunk of the version is durably indexed.
	StatusProcessed Status = "PROCESSED"

	// StatusFailed means ingestion failed. The version is superseded only by an update.
	StatusFailed Status = "FAILED"
)

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// DocumentType classifies a legal document.
type DocumentType string

// Recognised document types.
const (
	DocumentTypeCyberLaw     DocumentType = "cyber_law"
	DocumentTypeAmendment    DocumentType = "amendment"
	DocumentTypeGuideline    DocumentType = "guideline"
	DocumentTypeCircular     DocumentType = "circular"
	DocumentTypeNotification DocumentType = "notification"
)

// DocumentTypes lists every recognised document type.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeCyberLaw,
		DocumentTypeAmendment,
		DocumentTypeGuideline,
		DocumentTypeCircular,
		DocumentTypeNotification,
	}
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	for _, known := range DocumentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Document is one version of a legal document.
// Versions of the same logical document form a chain linked through
// PreviousVersionID. Exactly one version per chain is current (not archived).
type Document struct {
	// ID is the unique identifier for this version.
	ID string `json:"id"`

	// Version is 1 for a chain head and increases by one per update.
	Version int `json:"version"`

	// PreviousVersionID links to the version this one superseded.
	// Nil for the first version of a chain.
	PreviousVersionID *string `json:"previous_version_id,omitempty"`

	// Status is the ingestion state of this version.
	Status Status `json:"status"`

	// Archived is true once a newer version supersedes this one.
	// Archived versions are immutable.
	Archived bool `json:"archived"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Summary is an optional free-text abstract.
	Summary string `json:"summary,omitempty"`

	// Source names where the document came from (gazette, ministry, etc).
	Source string `json:"source"`

	// DocumentType classifies the document.
	DocumentType DocumentType `json:"document_type"`

	// SectionNumber optionally pins the document to a statute section.
	SectionNumber string `json:"section_number,omitempty"`

	// Filename is the name the file was uploaded under.
	Filename string `json:"filename"`

	// FileKey locates the stored file in the file store.
	FileKey string `json:"file_key"`

	// ChunkCount is the number of chunks indexed for this version.
	ChunkCount int `json:"chunk_count"`

	// ProcessingError holds the failure message for FAILED versions.
	ProcessingError string `json:"processing_error,omitempty"`

	// AmendmentDate is when the law was amended, if known.
	AmendmentDate *time.Time `json:"amendment_date,omitempty"`

	// EffectiveDate is when the law takes effect, if known.
	EffectiveDate *time.Time `json:"effective_date,omitempty"`

	// ProcessingStartedAt is set when an ingestion run claims this version.
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`

	// UploadedBy is the actor that created the chain.
	UploadedBy string `json:"uploaded_by"`

	// UploadedAt is when the chain was created.
	UploadedAt time.Time `json:"uploaded_at"`

	// LastModifiedBy is the actor that created this version.
	LastModifiedBy string `json:"last_modified_by"`

	// LastModifiedAt is when this version was created.
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// Extension returns the lower-cased file extension including the dot.
func (d *Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.Filename))
}

// IsCurrent returns true if no newer version supersedes this one.
func (d *Document) IsCurrent() bool {
	return !d.Archived
}

// DocumentPatch enumerates the fields an update may change.
// Nil fields are left unchanged.
type DocumentPatch struct {
	Title   *string `json:"title,omitempty"`
	Summary *string `json:"summary,omitempty"`
	Source  *string `json:"source,omitempty"`
}

// IsEmpty returns true if the patch changes nothing.
func (p DocumentPatch) IsEmpty() bool {
	return p.Title == nil && p.Summary == nil && p.Source == nil
}

// Validate rejects patches that would blank out required fields.
func (p DocumentPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: patch has no fields", ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if p.Source != nil && strings.TrimSpace(*p.Source) == "" {
		return fmt.Errorf("%w: source cannot be empty", ErrValidation)
	}
	return nil
}

// Apply copies the patched fields onto d.
func (p DocumentPatch) Apply(d *Document) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Summary != nil {
		d.Summary = *p.Summary
	}
	if p.Source != nil {
		d.Source = *p.Source
	}
}

// Changes returns the patched fields as a flat map for audit details.
func (p DocumentPatch) Changes() map[string]any {
	changes := make(map[string]any, 3)
	if p.Title != nil {
		changes["title"] = *p.Title
	}
	if p.Summary != nil {
		changes["summary"] = *p.Summary
	}
	if p.Source != nil {
		changes["source"] = *p.Source
	}
	return changes
}

// Chunk is a retrievable span of one document version.
// Chunks are immutable once created.
type Chunk struct {
	// DocumentID links to the owning document version.
	DocumentID string `json:"document_id"`

	// Index is the 0-based position within the document version.
	Index int `json:"index"`

	// Content is the non-empty text of this chunk.
	Content string `json:"content"`

	// Metadata holds section title, keywords, counts and provenance.
	Metadata map[string]any `json:"metadata"`

	// VectorID correlates the chunk with its vector index entry.
	VectorID string `json:"vector_id"`
}

// ChunkVectorID returns the vector index id for a chunk of a document version.
func ChunkVectorID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// Chunk metadata keys.
const (
	MetaChunkID       = "chunk_id"
	MetaChunkIndex    = "chunk_index"
	MetaDocumentID    = "document_id"
	MetaDocumentTitle = "document_title"
	MetaSource        = "source"
	MetaDocumentType  = "document_type"
	MetaVersion       = "version"
	MetaUploadedBy    = "uploaded_by"
	MetaSectionTitle  = "section_title"
	MetaSectionIndex  = "section_index"
	MetaKeywords      = "keywords"
	MetaPage          = "page"
	MetaWordCount     = "word_count"
	MetaCharCount     = "char_count"
)

// Section is a titled span of legal text found by segmentation.
type Section struct {
	// Title is the heading line that opened the section.
	Title string

	// Content is the body text, lines joined by single spaces.
	Content string

	// Keywords lists vocabulary terms present in the section.
	Keywords []string

	// Page is the page the heading appeared on, 0 when unknown.
	Page int
}

// ProvenanceMetadata returns the document-level metadata every chunk carries.
func ProvenanceMetadata(d *Document) map[string]any {
	if d == nil {
		return make(map[string]any)
	}
	return map[string]any{
		MetaDocumentID:    d.ID,
		MetaDocumentTitle: d.Title,
		MetaSource:        d.Source,
		MetaDocumentType:  string(d.DocumentType),
		MetaVersion:       d.Version,
		MetaUploadedBy:    d.UploadedBy,
	}
}
