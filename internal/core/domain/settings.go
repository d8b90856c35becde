package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHashing is the offline hashed bag-of-words embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI cloud API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHashing, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// Backend names for pluggable stores.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendQdrant   = "qdrant"
	BackendLocal    = "local"
	BackendS3       = "s3"
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size for the hashing provider.
	Dimensions int
}

// ChunkingSettings controls the sliding chunk window, in characters.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// UploadSettings bounds accepted uploads.
type UploadSettings struct {
	// MaxSize is the largest accepted file in bytes.
	MaxSize int64

	// AllowedExtensions lists accepted extensions including the dot.
	AllowedExtensions []string
}

// IsAllowed reports whether ext (with dot, any case) may be uploaded.
func (u UploadSettings) IsAllowed(ext string) bool {
	return slices.Contains(u.AllowedExtensions, strings.ToLower(ext))
}

// FileSettings selects where uploaded files are kept.
type FileSettings struct {
	Backend    string
	UploadDir  string
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
}

// StoreSettings selects the relational store.
type StoreSettings struct {
	Backend     string
	Path        string
	PostgresDSN string
}

// VectorSettings selects the vector index backend.
type VectorSettings struct {
	Backend    string
	Path       string
	QdrantAddr string
	Collection string
}

// RetrievalSettings tunes query answering.
type RetrievalSettings struct {
	// TopK is the number of sources an answer cites.
	TopK int

	// MinScore is the exclusive lower bound a hit must clear to be retained.
	MinScore float64

	// ContextChars bounds the context block of an answer.
	ContextChars int

	// Timeout bounds how long a query waits on the vector index.
	Timeout time.Duration
}

// IngestionSettings sizes the background ingestion workers.
type IngestionSettings struct {
	Workers   int
	QueueSize int

	// StaleClaimAfter is how long a claimed PENDING version may go
	// unsettled before startup records it as FAILED.
	StaleClaimAfter time.Duration
}

// LogSettings controls operational logging.
type LogSettings struct {
	Format  string
	Verbose bool
}

// AppSettings is the complete configuration, read once at process start.
type AppSettings struct {
	DataDir   string
	Embedding EmbeddingSettings
	Chunking  ChunkingSettings
	Upload    UploadSettings
	Files     FileSettings
	Store     StoreSettings
	Vector    VectorSettings
	Retrieval RetrievalSettings
	Ingestion IngestionSettings
	Log       LogSettings
}

// DefaultAppSettings returns the default configuration rooted at dataDir.
func DefaultAppSettings(dataDir string) *AppSettings {
	return &AppSettings{
		DataDir: dataDir,
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHashing,
			Model:      "all-MiniLM-L6-v2",
			Dimensions: 384,
		},
		Chunking: ChunkingSettings{Size: 1000, Overlap: 200},
		Upload: UploadSettings{
			MaxSize:           50 * 1024 * 1024,
			AllowedExtensions: []string{".pdf", ".docx", ".txt"},
		},
		Files: FileSettings{
			Backend:   BackendLocal,
			UploadDir: dataDir + "/knowledge_base/pdfs",
		},
		Store: StoreSettings{
			Backend: BackendSQLite,
			Path:    dataDir,
		},
		Vector: VectorSettings{
			Backend:    BackendSQLite,
			Path:       dataDir + "/vector_store",
			QdrantAddr: "localhost:6334",
			Collection: "cyber_laws",
		},
		Retrieval: RetrievalSettings{
			TopK:         5,
			MinScore:     0,
			ContextChars: 2000,
			Timeout:      10 * time.Second,
		},
		Ingestion: IngestionSettings{Workers: 2, QueueSize: 64, StaleClaimAfter: 30 * time.Minute},
		Log:       LogSettings{Format: "console"},
	}
}

// Validate checks cross-field constraints.
func (s *AppSettings) Validate() error {
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrValidation, s.Embedding.Provider)
	}
	if s.Embedding.Provider.RequiresAPIKey() && s.Embedding.APIKey == "" {
		return fmt.Errorf("%w: embedding provider %s requires an API key", ErrValidation, s.Embedding.Provider)
	}
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrValidation)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, size)", ErrValidation)
	}
	if s.Upload.MaxSize <= 0 {
		return fmt.Errorf("%w: max upload size must be positive", ErrValidation)
	}
	if len(s.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: no allowed extensions", ErrValidation)
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrValidation)
	}
	switch s.Store.Backend {
	case BackendSQLite, BackendMemory:
	case BackendPostgres:
		if s.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres store requires a DSN", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrValidation, s.Store.Backend)
	}
	switch s.Vector.Backend {
	case BackendSQLite, BackendMemory, BackendQdrant:
	default:
		return fmt.Errorf("%w: unknown vector backend %q", ErrValidation, s.Vector.Backend)
	}
	switch s.Files.Backend {
	case BackendLocal:
	case BackendS3:
		if s.Files.S3Bucket == "" {
			return fmt.Errorf("%w: s3 file store requires a bucket", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown file backend %q", ErrValidation, s.Files.Backend)
	}
	return nil
}
