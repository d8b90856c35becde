// Package pdf extracts text from PDF files with the poppler pdftotext tool.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrPDFToolNotFound
	}
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMETypePDF}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page. Each page with text is
// preceded by a "--- Page n ---" marker line; blank pages are omitted
// but still counted.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrValidation)
	}

	tmp, err := os.CreateTemp("", "lexrag-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", domain.ErrProcessing, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: write temp file: %w", domain.ErrProcessing, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: write temp file: %w", domain.ErrProcessing, err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext failed for %s: %w", domain.ErrProcessing, raw.Filename, err)
	}

	text, pages := markPages(string(out))
	return &driven.NormaliseResult{Text: text, Pages: pages}, nil
}

// markPages splits pdftotext output on form feeds and inserts page markers.
func markPages(out string) (string, int) {
	pages := strings.Split(out, "\f")
	// pdftotext terminates every page with a form feed.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}

	var b strings.Builder
	count := 0
	for i, page := range pages {
		page = strings.TrimRight(page, " \n\r\t")
		if strings.TrimSpace(page) != "" {
			fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", i+1, page)
		}
		count++
	}
	if strings.TrimSpace(out) == "" {
		count = 0
	}
	return b.String(), count
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return `pdftotext is required to extract text from PDF files.

  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}
