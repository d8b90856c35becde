package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "/data")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings("/data"), settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider":        "ollama",
		"embedding.base_url":        "http://ollama:11434",
		"chunking.size":             int64(500),
		"chunking.overlap":          0,
		"retrieval.min_score":       0.25,
		"retrieval.timeout_ms":      1500,
		"upload.allowed_extensions": []any{"PDF", "txt"},
		"log.verbose":               true,
	})
	service := NewSettingsService(store, "/data")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "http://ollama:11434", settings.Embedding.BaseURL)
	assert.Equal(t, 500, settings.Chunking.Size)
	assert.Equal(t, 0, settings.Chunking.Overlap)
	assert.InDelta(t, 0.25, settings.Retrieval.MinScore, 1e-9)
	assert.Equal(t, 1500*time.Millisecond, settings.Retrieval.Timeout)
	assert.Equal(t, []string{".pdf", ".txt"}, settings.Upload.AllowedExtensions)
	assert.True(t, settings.Log.Verbose)
}

func TestSettingsService_Get_InvalidCombination(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.provider": "openai"})
	service := NewSettingsService(store, "/data")

	_, err := service.Get()

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  any
	}{
		{"string", "vector.collection", "statutes", "statutes"},
		{"choice", "store.backend", "postgres", "postgres"},
		{"int", "retrieval.top_k", " 8 ", 8},
		{"float", "retrieval.min_score", "0.4", 0.4},
		{"bool", "log.verbose", "true", true},
		{"list", "upload.allowed_extensions", ".pdf, .txt", []string{".pdf", ".txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, "/data")

			require.NoError(t, service.Set(tt.key, tt.value))

			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "/data")

	assert.ErrorIs(t, service.Set("llm.provider", "x"), domain.ErrUnknownField)
	assert.ErrorIs(t, service.Set("retrieval.top_k", "many"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set("chunking.size", "-1"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set("log.verbose", "maybe"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set("vector.backend", "faiss"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set("upload.allowed_extensions", " , "), domain.ErrValidation)
}

func TestSettingsService_Value(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"retrieval.top_k": 3})
	service := NewSettingsService(store, "/data")

	v, ok := service.Value("retrieval.top_k")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = service.Value("retrieval.timeout_ms")
	require.True(t, ok)
	assert.Equal(t, 10000, v)

	v, ok = service.Value("vector.path")
	require.True(t, ok)
	assert.Equal(t, "/data/vector_store", v)

	_, ok = service.Value("nope")
	assert.False(t, ok)
}

func TestSettingsService_StaleClaimThreshold(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "/data")

	v, ok := service.Value("ingestion.stale_claim_minutes")
	require.True(t, ok)
	assert.Equal(t, 30, v)

	require.NoError(t, service.Set("ingestion.stale_claim_minutes", "5"))
	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, settings.Ingestion.StaleClaimAfter)
}

func TestSettingsService_Keys(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "/data")

	keys := service.Keys()

	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "embedding.api_key")
	assert.Contains(t, keys, "log.format")
	for _, k := range keys {
		_, ok := service.Value(k)
		assert.True(t, ok, k)
	}
}
