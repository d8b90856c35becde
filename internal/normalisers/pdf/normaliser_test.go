package pdf

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
	input  []byte
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	// The input file is the second to last argument.
	m.input, _ = os.ReadFile(args[len(args)-2])
	return m.output, m.err
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()

	assert.Equal(t, []string{"application/pdf"}, normaliser.SupportedMIMETypes())
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, result)
}

func TestNormalise_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one text\n\fPage two text\n\f")}
	raw := &domain.RawDocument{
		Filename: "it_act.pdf",
		MIMEType: domain.MIMETypePDF,
		Content:  []byte("%PDF-1.4 fake pdf content"),
	}

	result, err := NewWithRunner(runner).Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "\n--- Page 1 ---\nPage one text\n\n--- Page 2 ---\nPage two text\n", result.Text)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
	assert.Equal(t, raw.Content, runner.input)
}

func TestNormalise_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}
	raw := &domain.RawDocument{Filename: "broken.pdf", MIMEType: domain.MIMETypePDF, Content: []byte("x")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrProcessing)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, result)
}

func TestMarkPages(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		text  string
		pages int
	}{
		{"empty", "", "", 0},
		{"whitespace only", "  \n\f", "", 0},
		{"blank middle page", "A\n\f\n\fC\n\f", "\n--- Page 1 ---\nA\n\n--- Page 3 ---\nC\n", 3},
		{"no trailing form feed", "only page", "\n--- Page 1 ---\nonly page\n", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, pages := markPages(tc.out)
			assert.Equal(t, tc.text, text)
			assert.Equal(t, tc.pages, pages)
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}
