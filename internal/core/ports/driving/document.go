package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// DocumentService manages uploads and the version chains of documents.
type DocumentService interface {
	// Upload validates and stores a file, creates a PENDING version and
	// schedules ingestion. It returns before ingestion completes.
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadReceipt, error)

	// Update commits a new version of id if its stored version still equals
	// expectedVersion. Returns domain.ErrConflict otherwise.
	Update(ctx context.Context, id string, expectedVersion int, patch domain.DocumentPatch, actor domain.Actor) (*domain.UpdateReceipt, error)

	// Get returns one version, including its current version number.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Latest follows the chain forward from id to its current version.
	Latest(ctx context.Context, id string) (*domain.Document, error)

	// Versions returns the whole chain containing id, oldest first.
	Versions(ctx context.Context, id string) ([]domain.Document, error)

	// List returns the current version of every chain.
	List(ctx context.Context) ([]domain.Document, error)

	// Chunks returns the chunks indexed for a version.
	Chunks(ctx context.Context, id string) ([]domain.Chunk, error)
}
