package domain

// Intent is the closed-set purpose of a user query.
type Intent string

// Query intents.
const (
	IntentDefinition Intent = "definition"
	IntentPenalty    Intent = "penalty"
	IntentProcedure  Intent = "procedure"
	IntentSection    Intent = "section"
	IntentGeneral    Intent = "general"
)

// String returns the string representation.
func (i Intent) String() string {
	return string(i)
}

// IndexItem is one text to embed and store in the vector index.
type IndexItem struct {
	// ID is the caller-supplied opaque key.
	ID string

	// Text is embedded and returned verbatim by searches.
	Text string

	// Metadata is stored flat alongside the embedding.
	Metadata map[string]any
}

// ScoredText is a vector index search hit.
type ScoredText struct {
	// ID is the key the entry was added under.
	ID string

	// Text is the stored text.
	Text string

	// Metadata is the stored metadata.
	Metadata map[string]any

	// Score is the similarity normalised to [0,1], higher is more relevant.
	Score float64
}

// SectionTitle returns the section_title metadata, or "" if absent.
func (s ScoredText) SectionTitle() string {
	if v, ok := s.Metadata[MetaSectionTitle].(string); ok {
		return v
	}
	return ""
}

// AnswerSource cites one retained search hit.
type AnswerSource struct {
	// DocumentID is the document version the text came from.
	DocumentID string `json:"document_id,omitempty"`

	// Title is the originating document title.
	Title string `json:"title"`

	// Section is the section title, if present.
	Section string `json:"section,omitempty"`

	// Confidence is the hit score as a percentage.
	Confidence float64 `json:"confidence"`
}

// Answer is a synthesised reply to a query.
type Answer struct {
	// Answer is the rendered answer text.
	Answer string `json:"answer"`

	// Intent is the classified query intent.
	Intent Intent `json:"intent"`

	// Sources cites each retained hit, best first.
	Sources []AnswerSource `json:"sources"`

	// Confidence is the mean retained score as a percentage, 0 when nothing was found.
	Confidence float64 `json:"confidence"`

	// ContextUsed is the number of retained hits that fed the context block.
	ContextUsed int `json:"context_used"`
}
