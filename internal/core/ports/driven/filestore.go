package driven

import "context"

// FileStore keeps uploaded file bytes under opaque keys.
type FileStore interface {
	// Write stores data under key, replacing any existing value.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the data under key. Returns domain.ErrNotFound if absent.
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
