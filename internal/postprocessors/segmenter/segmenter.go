// Package segmenter splits extracted legal text into titled sections.
package segmenter

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// headingPatterns start a new section when found anywhere in a trimmed line.
var headingPatterns = []*regexp.Regexp{
	// Act citation.
	regexp.MustCompile(`(?i)(IT\s+Act,\s*2000|Information\s+Technology\s+Act,\s*2000)`),
	// SECTION 66, SECTION 43A: ...
	regexp.MustCompile(`(?i)SECTION\s+\d+[A-Z]*\s*[:\.]?\s*(.+)`),
	// Cyber-law category.
	regexp.MustCompile(`(?i)(Cyber\s+Crime|Cyber\s+Security|Data\s+Protection|Digital\s+Signature)`),
	// Numbered heading: "1. Short title", "2) Definitions".
	regexp.MustCompile(`(?i)^\s*(\d+[\.\)])\s+(.+)$`),
}

var pageMarker = regexp.MustCompile(`^---\s*Page\s+(\d+)\s*---$`)

// Vocabulary is the fixed keyword list, in reporting order.
var Vocabulary = []string{
	"hacking",
	"phishing",
	"malware",
	"data breach",
	"encryption",
	"digital signature",
	"electronic record",
	"cyber terrorism",
	"identity theft",
	"privacy",
	"certifying authority",
	"intermediary",
	"computer resource",
	"network service",
	"electronic governance",
}

// IsHeading reports whether a trimmed line opens a new section.
func IsHeading(line string) bool {
	for _, p := range headingPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// ExtractKeywords returns the vocabulary terms contained in text,
// in vocabulary order.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	for _, kw := range Vocabulary {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// Segment splits text into sections. Lines before the first heading are
// dropped, so text without any heading yields no sections.
func Segment(text string) []domain.Section {
	var (
		sections []domain.Section
		current  *domain.Section
		body     strings.Builder
		page     int
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(body.String())
		current.Keywords = ExtractKeywords(current.Title + " " + current.Content)
		sections = append(sections, *current)
		body.Reset()
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := pageMarker.FindStringSubmatch(line); m != nil {
			page, _ = strconv.Atoi(m[1])
			continue
		}
		if IsHeading(line) {
			flush()
			current = &domain.Section{Title: line, Page: page}
			continue
		}
		if current != nil {
			body.WriteString(line)
			body.WriteByte(' ')
		}
	}
	flush()

	return sections
}

// Processor emits one chunk per section for the chunker to split.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a segmentation processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "segmenter"
}

// Process segments doc.Text and records the section count on doc.
// Input chunks are ignored.
func (p *Processor) Process(_ context.Context, doc *domain.ParsedDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	sections := Segment(doc.Text)
	doc.Sections = len(sections)

	chunks := make([]domain.Chunk, 0, len(sections))
	for i, s := range sections {
		meta := domain.ProvenanceMetadata(doc.Document)
		meta[domain.MetaSectionTitle] = s.Title
		meta[domain.MetaSectionIndex] = i
		meta[domain.MetaKeywords] = s.Keywords
		if s.Page > 0 {
			meta[domain.MetaPage] = s.Page
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.Document.ID,
			Index:      i,
			Content:    s.Content,
			Metadata:   meta,
		})
	}
	return chunks, nil
}
