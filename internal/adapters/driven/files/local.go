package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Local implements driven.FileStore on a directory. Keys are slash
// separated paths relative to the root.
type Local struct {
	root string
}

var _ driven.FileStore = (*Local)(nil)

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating upload directory: %v", domain.ErrStorage, err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

// resolve maps key below root, rejecting keys that would escape it.
func (l *Local) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid file key %q", domain.ErrValidation, key)
	}
	return filepath.Join(l.root, clean), nil
}

// Write stores data under key, creating parent directories. The file is
// written to a temporary name first so readers never see partial content.
func (l *Local) Write(_ context.Context, key string, data []byte) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrStorage, key, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: writing %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// Read returns the bytes stored under key.
func (l *Local) Read(_ context.Context, key string) ([]byte, error) {
	full, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrStorage, key, err)
	}
	return data, nil
}

// Delete removes key. Missing keys are ignored.
func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: deleting %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	full, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
}
