package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// PostProcessor turns extracted text into chunks.
// PostProcessors are chained in a pipeline (segmentation, then chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a parsed document and returns chunks.
	// A processor that creates chunks from text receives nil;
	// a processor that refines chunks receives and returns them.
	Process(ctx context.Context, doc *domain.ParsedDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error)
}
