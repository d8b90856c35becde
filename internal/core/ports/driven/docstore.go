package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DocumentStore persists document versions, their chains and chunks.
//
// Every method is atomic. CommitUpdate is a compare-and-swap on the
// version column: of several concurrent callers passing the same
// expected version, exactly one succeeds and the others get
// domain.ErrConflict with nothing mutated.
type DocumentStore interface {
	// Create inserts a new chain head. The store forces Version to 1,
	// Status to PENDING and clears PreviousVersionID.
	Create(ctx context.Context, doc *domain.Document) error

	// Get retrieves a version by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Successor returns the version that superseded id.
	// Returns domain.ErrNotFound if id is current.
	Successor(ctx context.Context, id string) (*domain.Document, error)

	// CommitUpdate archives id and inserts its successor with the patch
	// applied, version+1 and status PENDING. Returns domain.ErrConflict
	// if the stored version differs from expectedVersion or id is
	// already archived, and domain.ErrNotFound if id does not exist.
	CommitUpdate(ctx context.Context, id string, expectedVersion int, patch domain.DocumentPatch, actor string, at time.Time) (*domain.Document, error)

	// ClaimProcessing marks a PENDING version as being ingested.
	// Returns domain.ErrAlreadyClaimed if another run holds the claim
	// and domain.ErrInvalidTransition if the version is not PENDING.
	ClaimProcessing(ctx context.Context, id string, at time.Time) error

	// MarkProcessed transitions PENDING to PROCESSED.
	// Returns domain.ErrInvalidTransition from any other state.
	MarkProcessed(ctx context.Context, id string, chunkCount int) error

	// MarkFailed transitions PENDING to FAILED.
	// Returns domain.ErrInvalidTransition from any other state.
	MarkFailed(ctx context.Context, id string, reason string) error

	// SaveChunks stores the chunks of one version in a single transaction.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// DeleteChunks removes every chunk of a version. Missing chunks are
	// not an error.
	DeleteChunks(ctx context.Context, documentID string) error

	// GetChunks returns the chunks of a version ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListCurrent returns every non-archived version, newest first.
	ListCurrent(ctx context.Context) ([]domain.Document, error)

	// ListUnclaimed returns PENDING versions never claimed for ingestion.
	ListUnclaimed(ctx context.Context) ([]domain.Document, error)

	// ListStaleClaims returns PENDING versions claimed before the given
	// time, oldest claim first.
	ListStaleClaims(ctx context.Context, claimedBefore time.Time) ([]domain.Document, error)

	// Close releases resources.
	Close() error
}
