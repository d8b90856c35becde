package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "lexrag://documents/doc-456", "doc-456"},
		{"invalid prefix", "file://documents/doc-456", ""},
		{"chunks URI", "lexrag://documents/doc-456/chunks", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

func TestExtractChunksDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid chunks URI", "lexrag://documents/doc-1/chunks", "doc-1"},
		{"missing suffix", "lexrag://documents/doc-1", ""},
		{"missing id", "lexrag://documents//chunks", ""},
		{"invalid prefix", "file://documents/doc-1/chunks", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractChunksDocumentID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	docs := &mockDocumentService{documents: []domain.Document{
		{ID: "doc-1", Title: "IT Act", Version: 3, Status: domain.StatusProcessed},
	}}
	server := newTestServer(t, &mockRetrievalService{}, docs, nil)

	result, err := server.handleDocumentsResource(context.Background(), makeReadResourceRequest("lexrag://documents"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	text := result.Contents[0].Text
	assert.Contains(t, text, `"id": "doc-1"`)
	assert.Contains(t, text, `"version": 3`)
	assert.Contains(t, text, `"status": "PROCESSED"`)
	assert.Contains(t, text, "lexrag://documents/doc-1")
}

func TestServer_handleVersionsResource(t *testing.T) {
	docs := &mockDocumentService{documents: []domain.Document{{ID: "doc-1", Version: 1}}}
	server := newTestServer(t, &mockRetrievalService{}, docs, nil)

	result, err := server.handleVersionsResource(context.Background(), makeReadResourceRequest("lexrag://documents/doc-1"))
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"id": "doc-1"`)

	_, err = server.handleVersionsResource(context.Background(), makeReadResourceRequest("lexrag://other"))
	assert.Error(t, err)

	docs.err = domain.ErrNotFound
	_, err = server.handleVersionsResource(context.Background(), makeReadResourceRequest("lexrag://documents/missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestServer_handleChunksResource(t *testing.T) {
	docs := &mockDocumentService{chunks: []domain.Chunk{{DocumentID: "doc-1", Index: 0, Content: "Whoever commits hacking"}}}
	server := newTestServer(t, &mockRetrievalService{}, docs, nil)

	result, err := server.handleChunksResource(context.Background(), makeReadResourceRequest("lexrag://documents/doc-1/chunks"))

	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, "Whoever commits hacking")
	assert.Equal(t, jsonMIMEType, result.Contents[0].MIMEType)
}
