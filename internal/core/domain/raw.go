package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument is an uploaded file before text extraction.
type RawDocument struct {
	// DocumentID is the version the file belongs to.
	DocumentID string

	// Filename is the original file name.
	Filename string

	// MIMEType selects the text extractor.
	MIMEType string

	// Content is the raw file bytes.
	Content []byte
}

// MIME types of the accepted upload formats.
const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeText = "text/plain"
)

// MIMETypeForFilename maps a file extension to its MIME type.
// Unknown extensions map to application/octet-stream.
func MIMETypeForFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMETypePDF
	case ".docx":
		return MIMETypeDOCX
	case ".txt", ".text":
		return MIMETypeText
	default:
		return "application/octet-stream"
	}
}

// ParsedDocument is a document version with its extracted text,
// passed through the segmentation and chunking pipeline.
type ParsedDocument struct {
	// Document is the version being processed.
	Document *Document

	// Text is the extracted plain text. PDF text is page-delimited
	// by "--- Page n ---" marker lines.
	Text string

	// Sections is the number of sections found, set by segmentation.
	Sections int
}
