package normalisers

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/normalisers/docx"
	"github.com/custodia-labs/lexrag/internal/normalisers/pdf"
	"github.com/custodia-labs/lexrag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to the best matching normaliser.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Defaults returns a registry holding the plain text, DOCX and PDF normalisers.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
}

// Normalise extracts text using the highest-priority normaliser for the
// document's MIME type. Ties go to the earliest registration.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrValidation)
	}

	n := r.find(raw.MIMEType)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, raw.MIMEType)
	}
	return n.Normalise(ctx, raw)
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []string
	for _, n := range r.normalisers {
		types = append(types, n.SupportedMIMETypes()...)
	}
	sort.Strings(types)
	return slices.Compact(types)
}

func (r *Registry) find(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Normaliser
	for _, n := range r.normalisers {
		if !slices.Contains(n.SupportedMIMETypes(), mimeType) {
			continue
		}
		if best == nil || n.Priority() > best.Priority() {
			best = n
		}
	}
	return best
}
