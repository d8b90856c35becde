package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/files"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/intent"
	"github.com/custodia-labs/lexrag/internal/logger"
	"github.com/custodia-labs/lexrag/internal/normalisers"
	"github.com/custodia-labs/lexrag/internal/postprocessors"
)

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i]())
	}
	return errors.Join(errs...)
}

// bootstrap builds the service graph for the configured backends and
// starts background ingestion.
func bootstrap(ctx context.Context, settings *domain.AppSettings) (_ *cli.Services, err error) {
	var cleanup closers
	defer func() {
		if err != nil {
			_ = cleanup.close()
		}
	}()

	docs, audits, err := openStores(settings.Store, &cleanup)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	cleanup.add(embedder.Close)

	vectors, err := openVectorStore(ctx, settings.Vector, embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	cleanup.add(vectors.Close)

	fileStore, err := openFileStore(settings.Files)
	if err != nil {
		return nil, err
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(postprocessors.DefaultOrder, map[string]map[string]any{
		"chunker": {"chunk_size": settings.Chunking.Size, "overlap": settings.Chunking.Overlap},
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	classifier, err := intent.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("training intent classifier: %w", err)
	}

	auditService := services.NewAuditService(audits)
	index := services.NewVectorIndex(vectors, embedder)
	ingestor := services.NewIngestor(docs, fileStore, normalisers.Defaults(), pipeline, index, auditService, settings.Ingestion)
	documentService := services.NewDocumentService(docs, fileStore, auditService, ingestor, settings.Upload)
	retrievalService := services.NewRetrievalService(classifier, index, auditService, settings.Retrieval)

	ingestor.Start(ctx)
	cleanup.add(ingestor.Stop)

	if n, err := ingestor.Resume(ctx); err != nil {
		logger.Warnw("resuming pending ingestion", "error", err)
	} else if n > 0 {
		logger.Infow("resumed pending ingestion", "documents", n)
	}

	return &cli.Services{
		Documents: documentService,
		Retrieval: retrievalService,
		Audit:     auditService,
		Ingestion: ingestor,
		Close:     cleanup.close,
	}, nil
}

func openStores(cfg domain.StoreSettings, cleanup *closers) (driven.DocumentStore, driven.AuditStore, error) {
	switch cfg.Backend {
	case domain.BackendSQLite:
		store, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		cleanup.add(store.Close)
		return store.DocumentStore(), store.AuditStore(), nil

	case domain.BackendPostgres:
		store, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		cleanup.add(store.Close)
		return store.DocumentStore(), store.AuditStore(), nil

	case domain.BackendMemory:
		logger.Warn("using in-memory store: documents are lost on exit")
		return memory.NewDocumentStore(), memory.NewAuditStore(), nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrValidation, cfg.Backend)
	}
}

func openVectorStore(ctx context.Context, cfg domain.VectorSettings, dimensions int) (driven.VectorStore, error) {
	switch cfg.Backend {
	case domain.BackendSQLite:
		return sqlite.NewVectorStore(cfg.Path)
	case domain.BackendQdrant:
		return qdrant.Dial(ctx, cfg.QdrantAddr, cfg.Collection, dimensions)
	case domain.BackendMemory:
		return memory.NewVectorStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrValidation, cfg.Backend)
	}
}

func openFileStore(cfg domain.FileSettings) (driven.FileStore, error) {
	switch cfg.Backend {
	case domain.BackendLocal:
		return files.NewLocal(cfg.UploadDir)
	case domain.BackendS3:
		client := files.NewS3Client(files.S3Config{Region: cfg.S3Region, Endpoint: cfg.S3Endpoint})
		return files.NewS3(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("%w: unknown files backend %q", domain.ErrValidation, cfg.Backend)
	}
}
