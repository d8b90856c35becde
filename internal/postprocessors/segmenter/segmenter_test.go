package segmenter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

const section66 = `SECTION 66: Computer Related Offences
If any person, dishonestly or fraudulently, does any act referred to in
section forty-three, he shall be punishable with imprisonment.

The punishment may extend to three years or with fine which may extend
to five lakh rupees or with both.
`

func TestSegment_SectionHeading(t *testing.T) {
	sections := Segment(section66)

	require.Len(t, sections, 1)
	assert.Equal(t, "SECTION 66: Computer Related Offences", sections[0].Title)
	assert.Contains(t, sections[0].Content, "dishonestly or fraudulently")
	assert.Contains(t, sections[0].Content, "five lakh rupees or with both.")
	assert.Empty(t, sections[0].Keywords)
	assert.NotNil(t, sections[0].Keywords)
}

func TestSegment_LinesJoinedWithSingleSpace(t *testing.T) {
	sections := Segment("SECTION 1: Short title\nfirst line\n\n   second line   \n")

	require.Len(t, sections, 1)
	assert.Equal(t, "first line second line", sections[0].Content)
}

func TestSegment_HeadingPatterns(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"act citation", "The Information Technology Act, 2000"},
		{"act short form", "it act,2000 as amended"},
		{"section with suffix", "Section 43A. Compensation for failure to protect data"},
		{"cyber category", "Chapter on cyber security incidents"},
		{"digital signature", "DIGITAL SIGNATURE CERTIFICATES"},
		{"numbered dot", "1. Short title and commencement"},
		{"numbered paren", "2) Definitions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsHeading(tt.line))
		})
	}

	assert.False(t, IsHeading("whoever commits an offence shall be liable"))
	assert.False(t, IsHeading("1.5 crore rupees"))
}

func TestSegment_PreambleDroppedAndSectionsFlushed(t *testing.T) {
	text := "Gazette of India\nExtraordinary\n" +
		"SECTION 43: Penalty for damage to computer system\nbody one\n" +
		"SECTION 66C: Identity theft\nbody two mentions phishing\n"

	sections := Segment(text)

	require.Len(t, sections, 2)
	assert.Equal(t, "body one", sections[0].Content)
	assert.Equal(t, "SECTION 66C: Identity theft", sections[1].Title)
	assert.Equal(t, []string{"phishing", "identity theft"}, sections[1].Keywords)
}

func TestSegment_NoHeadings(t *testing.T) {
	assert.Empty(t, Segment("plain prose without any legal heading\nmore prose"))
	assert.Empty(t, Segment(""))
}

func TestSegment_PageMarkers(t *testing.T) {
	text := "\n--- Page 1 ---\nSECTION 1: Short title\nintro\n" +
		"\n--- Page 2 ---\nmore intro\nSECTION 2: Definitions\nterms\n"

	sections := Segment(text)

	require.Len(t, sections, 2)
	assert.Equal(t, 1, sections[0].Page)
	assert.Equal(t, "intro more intro", sections[0].Content)
	assert.Equal(t, 2, sections[1].Page)
}

func TestSegment_Deterministic(t *testing.T) {
	text := section66 + "\nSECTION 66F: Cyber terrorism\nwhoever uses malware and hacking\n"
	assert.Equal(t, Segment(text), Segment(text))
}

func TestExtractKeywords(t *testing.T) {
	text := "PRIVACY breach by Hacking; a data breach of an electronic record. Hacking again."

	assert.Equal(t, []string{"hacking", "data breach", "electronic record", "privacy"}, ExtractKeywords(text))
	assert.Empty(t, ExtractKeywords("nothing relevant"))
}

func TestProcessor_Process(t *testing.T) {
	doc := &domain.ParsedDocument{
		Document: &domain.Document{
			ID:           "doc-1",
			Version:      2,
			Title:        "IT Act",
			Source:       "Gazette",
			DocumentType: domain.DocumentTypeCyberLaw,
			UploadedBy:   "alice",
		},
		Text: "--- Page 3 ---\n" + section66 + "SECTION 67: Publishing obscene material\nbody\n",
	}

	chunks, err := New().Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 2, doc.Sections)
	assert.Equal(t, "SECTION 66: Computer Related Offences", chunks[0].Metadata[domain.MetaSectionTitle])
	assert.Equal(t, 3, chunks[0].Metadata[domain.MetaPage])
	assert.Equal(t, "doc-1", chunks[1].Metadata[domain.MetaDocumentID])
	assert.Equal(t, "IT Act", chunks[1].Metadata[domain.MetaDocumentTitle])
	assert.Equal(t, 2, chunks[1].Metadata[domain.MetaVersion])
	assert.Equal(t, 1, chunks[1].Metadata[domain.MetaSectionIndex])
	assert.Equal(t, "body", chunks[1].Content)
}
