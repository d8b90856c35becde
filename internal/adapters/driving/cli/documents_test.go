package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestDocumentsCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(documentsCmd.Commands()))
	for _, c := range documentsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get", "latest", "versions", "chunks"}, names)
}

func TestDocumentsList(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "doc-2")
	assert.Contains(t, out, "IT Act 2000 (amended)")
	assert.Contains(t, out, "Version: 2 (PROCESSED)")
	assert.Contains(t, out, "Total: 1 documents")
	assert.NotContains(t, out, "doc-1")
}

func TestDocumentsList_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "list", "--json")

	require.NoError(t, err)
	var docs []domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)
	assert.Equal(t, 2, docs[0].Version)
}

func TestDocumentsGet(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Version:   1")
	assert.Contains(t, out, "Current:   false")
	assert.Contains(t, out, "Uploaded:  2024-03-01 10:30:00 by alice")
}

func TestDocumentsGet_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("documents", "get", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentsLatest(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "latest", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-2")
	assert.Contains(t, out, "Previous:  doc-1")
	assert.Contains(t, out, "Current:   true")
}

func TestDocumentsVersions(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "versions", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "  v1  doc-1  PROCESSED  2024-03-01 10:30:00  alice")
	assert.Contains(t, out, "* v2  doc-2  PROCESSED  2024-03-01 11:30:00  bob")
}

func TestDocumentsChunks(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("documents", "chunks", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "[0] Section 66")
	assert.Contains(t, out, "Whoever commits hacking")
	assert.Contains(t, out, "Total: 1 chunks")
}

func TestDocumentsChunks_Empty(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.chunks = nil

	out, err := execute("documents", "chunks", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "No chunks indexed.")
}

func TestDocumentsCmd_NoService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	documentService = nil

	for _, sub := range []string{"get", "latest", "versions", "chunks"} {
		_, err := execute("documents", sub, "doc-1")
		assert.EqualError(t, err, "document service not configured", sub)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "धारा...", truncate("धारा 66", 4))
}
