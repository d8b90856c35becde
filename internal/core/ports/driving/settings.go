package driving

import "github.com/custodia-labs/lexrag/internal/core/domain"

// SettingsService reads and writes application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults, then file, then environment.
	Get() (*domain.AppSettings, error)

	// Set stores a single dotted key.
	Set(key string, value string) error

	// Value returns the effective raw value of a dotted key.
	Value(key string) (any, bool)

	// Keys lists every known key.
	Keys() []string
}
