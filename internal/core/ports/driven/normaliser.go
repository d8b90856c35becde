package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Normaliser extracts plain text from one family of file formats.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts text from a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of text extraction.
type NormaliseResult struct {
	// Text is the extracted plain text.
	Text string

	// Pages is the page count for paged formats, 0 otherwise.
	Pages int
}

// NormaliserRegistry selects the appropriate normaliser for a document.
type NormaliserRegistry interface {
	// Normalise extracts text using the best matching normaliser.
	// Returns domain.ErrUnsupportedFormat if none matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
