package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultAppSettings tests defaults are valid and match the service configuration
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings("/data")

	require.NoError(t, s.Validate())
	assert.Equal(t, "all-MiniLM-L6-v2", s.Embedding.Model)
	assert.Equal(t, 1000, s.Chunking.Size)
	assert.Equal(t, 200, s.Chunking.Overlap)
	assert.Equal(t, int64(52428800), s.Upload.MaxSize)
	assert.Equal(t, "/data/knowledge_base/pdfs", s.Files.UploadDir)
	assert.Equal(t, "/data/vector_store", s.Vector.Path)
	assert.Equal(t, 5, s.Retrieval.TopK)
	assert.Equal(t, 2000, s.Retrieval.ContextChars)
}

// TestUploadSettings_IsAllowed tests extension matching is case-insensitive
func TestUploadSettings_IsAllowed(t *testing.T) {
	u := UploadSettings{AllowedExtensions: []string{".pdf", ".txt"}}

	assert.True(t, u.IsAllowed(".PDF"))
	assert.True(t, u.IsAllowed(".txt"))
	assert.False(t, u.IsAllowed(".exe"))
	assert.False(t, u.IsAllowed(""))
}

// TestAppSettings_Validate tests rejected configurations
func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
	}{
		{"unknown provider", func(s *AppSettings) { s.Embedding.Provider = "cohere" }},
		{"openai without key", func(s *AppSettings) { s.Embedding.Provider = EmbeddingProviderOpenAI }},
		{"overlap equals size", func(s *AppSettings) { s.Chunking.Overlap = s.Chunking.Size }},
		{"zero size", func(s *AppSettings) { s.Chunking.Size = 0 }},
		{"no extensions", func(s *AppSettings) { s.Upload.AllowedExtensions = nil }},
		{"postgres without dsn", func(s *AppSettings) { s.Store.Backend = BackendPostgres }},
		{"unknown vector backend", func(s *AppSettings) { s.Vector.Backend = "faiss" }},
		{"s3 without bucket", func(s *AppSettings) { s.Files.Backend = BackendS3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings("/data")
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrValidation)
		})
	}
}
