package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// IngestionService runs document ingestion out-of-band.
type IngestionService interface {
	// Submit queues a job. It blocks only while the queue is full.
	Submit(ctx context.Context, job domain.IngestionJob) error

	// Process runs a job synchronously. Failures are recorded on the
	// document and in the audit trail, and reported in the result.
	Process(ctx context.Context, job domain.IngestionJob) domain.IngestionResult

	// Resume queues every PENDING version that was never claimed.
	Resume(ctx context.Context) (int, error)
}
