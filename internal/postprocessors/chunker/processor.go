// Package chunker provides a deterministic sliding-window chunking processor.
package chunker

import (
	"context"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators are tried in order when looking for a chunk boundary.
var separators = []string{"\n\n", "\n", " "}

// Processor splits section content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits each incoming section chunk into windows. Output chunks
// inherit the section metadata and are numbered contiguously across the
// whole document. With no incoming chunks the full document text is
// treated as a single untitled section.
func (p *Processor) Process(ctx context.Context, doc *domain.ParsedDocument, sections []domain.Chunk) ([]domain.Chunk, error) {
	if sections == nil {
		if doc.Text == "" {
			return nil, nil
		}
		sections = []domain.Chunk{{
			Content:  doc.Text,
			Metadata: domain.ProvenanceMetadata(doc.Document),
		}}
	}

	var docID string
	if doc.Document != nil {
		docID = doc.Document.ID
	}

	chunks := make([]domain.Chunk, 0, len(sections))
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range p.Split(section.Content) {
			index := len(chunks)
			vectorID := domain.ChunkVectorID(docID, index)

			meta := maps.Clone(section.Metadata)
			if meta == nil {
				meta = make(map[string]any)
			}
			meta[domain.MetaChunkIndex] = index
			meta[domain.MetaChunkID] = vectorID
			meta[domain.MetaWordCount] = len(strings.Fields(text))
			meta[domain.MetaCharCount] = utf8.RuneCountInString(text)

			chunks = append(chunks, domain.Chunk{
				DocumentID: docID,
				Index:      index,
				Content:    text,
				Metadata:   meta,
				VectorID:   vectorID,
			})
		}
	}

	return chunks, nil
}

// Split cuts text into trimmed, non-empty windows of at most chunkSize
// characters. Each window ends at the last paragraph, line or word break
// in its second half, or at a hard cut when none exists. Consecutive
// windows share up to overlap characters.
func (p *Processor) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < n {
		end := start + p.chunkSize
		next := end
		if end >= n {
			end = n
			next = n
		} else if cut, resume, ok := boundary(runes, start+max(p.chunkSize/2, 1), end); ok {
			end = cut
			next = resume
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if next >= n {
			break
		}

		// Step back by the overlap, but always move forward.
		following := next - p.overlap
		if following <= start {
			following = next
		}
		start = alignToWord(runes, following, next)
	}

	return out
}

// boundary finds the last separator starting in [lo, hi). It returns the
// window end (before the separator) and the position after it.
func boundary(runes []rune, lo, hi int) (cut, resume int, ok bool) {
	if lo >= hi {
		return 0, 0, false
	}
	window := string(runes[lo:hi])
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			cut = lo + utf8.RuneCountInString(window[:i])
			return cut, cut + utf8.RuneCountInString(sep), true
		}
	}
	return 0, 0, false
}

// alignToWord moves pos forward to the start of the next word when it
// falls inside one, without passing limit.
func alignToWord(runes []rune, pos, limit int) int {
	if pos == 0 || pos >= limit || runes[pos-1] == ' ' || runes[pos-1] == '\n' {
		return pos
	}
	for i := pos; i < limit; i++ {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i + 1
		}
	}
	return pos
}
