package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed, oversized or wrong-type input at the boundary.
	// Nothing has been mutated when this is returned.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownField indicates an update patch named a field that cannot be changed.
	ErrUnknownField = errors.New("unknown field")

	// ErrConflict indicates the expected version no longer matches the stored version.
	// The caller must re-read the latest version before retrying.
	ErrConflict = errors.New("version conflict")

	// ErrInvalidTransition indicates a status change from a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyClaimed indicates ingestion for a version is already running.
	ErrAlreadyClaimed = errors.New("ingestion already claimed")

	// ErrProcessing indicates extraction, segmentation or indexing failed during ingestion.
	ErrProcessing = errors.New("processing failed")

	// ErrUnsupportedFormat indicates no text extractor handles the file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrIndexUnavailable indicates the vector index backend cannot be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStorage indicates the underlying persistence layer failed.
	ErrStorage = errors.New("storage failure")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrQueueClosed indicates the ingestion queue no longer accepts jobs.
	ErrQueueClosed = errors.New("ingestion queue closed")
)
