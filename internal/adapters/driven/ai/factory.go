// Package ai builds the embedding service selected in settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ollamaDimensions lists vector sizes of common Ollama embedding models.
var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"all-minilm":        384,
	"mxbai-embed-large": 1024,
}

// CreateEmbeddingService creates the embedding service named by settings.
// An empty provider selects the offline hashing embedder.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return hashing.NewEmbeddingService(0), nil
	}

	switch settings.Provider {
	case domain.EmbeddingProviderHashing, "":
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.EmbeddingProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.EmbeddingProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrValidation, settings.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and checks
// it is reachable before returning it.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'lexrag config wizard' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'lexrag config wizard' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	logger.Infow("embedding service ready", "model", svc.ModelName(), "dimensions", svc.Dimensions())
	return svc, nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = ollamaDimensions[settings.Model]
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
