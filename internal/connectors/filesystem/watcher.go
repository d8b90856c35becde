// Package filesystem watches an inbox directory and uploads files dropped
// into it.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// DefaultSettleDelay is how long a file must stay unchanged before upload.
// Editors and copy tools usually emit several writes per file.
const DefaultSettleDelay = 500 * time.Millisecond

// DefaultSource is recorded as the document source when none is configured.
const DefaultSource = "inbox"

// Uploader accepts new documents.
type Uploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadReceipt, error)
}

// Result reports the outcome of one upload triggered by the watcher.
type Result struct {
	// Path is the absolute path of the uploaded file.
	Path string

	// DocumentID is set when the upload was accepted.
	DocumentID string

	// Err is set when the file could not be read or was rejected.
	Err error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithActor sets the actor recorded on uploads.
func WithActor(actor domain.Actor) Option {
	return func(w *Watcher) { w.actor = actor }
}

// WithSource sets the document source recorded on uploads.
func WithSource(source string) Option {
	return func(w *Watcher) { w.source = source }
}

// WithDocumentType sets the document type recorded on uploads.
func WithDocumentType(t domain.DocumentType) Option {
	return func(w *Watcher) { w.documentType = t }
}

// WithExtensions restricts uploads to the given extensions (with dot).
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		w.extensions = make([]string, len(exts))
		for i, ext := range exts {
			w.extensions[i] = strings.ToLower(ext)
		}
	}
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// Watcher uploads files created or rewritten in a directory.
// Subdirectories and hidden files are ignored.
type Watcher struct {
	root         string
	uploader     Uploader
	actor        domain.Actor
	source       string
	documentType domain.DocumentType
	extensions   []string
	settle       time.Duration

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
	timers  map[string]*time.Timer
}

// New creates a watcher for root.
func New(root string, uploader Uploader, opts ...Option) *Watcher {
	w := &Watcher{
		root:         root,
		uploader:     uploader,
		actor:        domain.Actor{ID: domain.SystemActor},
		source:       DefaultSource,
		documentType: domain.DocumentTypeCyberLaw,
		settle:       DefaultSettleDelay,
		timers:       make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Watch starts watching and returns a channel of upload results.
// The channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if w.watcher != nil {
		return nil, errors.New("watcher is already running")
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.watcher = fw

	results := make(chan Result)
	ready := make(chan string)
	done := make(chan struct{})
	go w.loop(ctx, fw, ready, done, results)

	logger.Info("Watching %s for new documents", w.root)
	return results, nil
}

func (w *Watcher) loop(
	ctx context.Context,
	fw *fsnotify.Watcher,
	ready chan string,
	done chan struct{},
	results chan<- Result,
) {
	defer close(results)
	defer close(done)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.debounce(path, ready, done)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warnw("inbox watcher error", "root", w.root, "error", err)

		case path := <-ready:
			result := w.upload(ctx, path)
			select {
			case results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFsEvent returns the path to upload for create and write events on
// visible regular files with an accepted extension.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || isHidden(rel) {
		return "", false
	}
	if !w.accepts(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

func (w *Watcher) accepts(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(path)))
}

// debounce (re)arms the settle timer for path.
func (w *Watcher) debounce(path string, ready chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) upload(ctx context.Context, path string) Result {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warnw("inbox file unreadable", "path", path, "error", err)
		return Result{Path: path, Err: err}
	}

	receipt, err := w.uploader.Upload(ctx, domain.UploadRequest{
		Filename:     filepath.Base(path),
		Content:      content,
		Source:       w.source,
		DocumentType: w.documentType,
		Actor:        w.actor,
	})
	if err != nil {
		logger.Warnw("inbox upload rejected", "path", path, "error", err)
		return Result{Path: path, Err: err}
	}

	logger.Infow("inbox file uploaded", "path", path, "document_id", receipt.DocumentID)
	return Result{Path: path, DocumentID: receipt.DocumentID}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
