package services

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDims         = "embedding.dimensions"
	keyChunkSize         = "chunking.size"
	keyChunkOverlap      = "chunking.overlap"
	keyUploadMaxSize     = "upload.max_size"
	keyUploadExtensions  = "upload.allowed_extensions"
	keyFilesBackend      = "files.backend"
	keyFilesUploadDir    = "files.upload_dir"
	keyFilesS3Bucket     = "files.s3_bucket"
	keyFilesS3Prefix     = "files.s3_prefix"
	keyFilesS3Region     = "files.s3_region"
	keyFilesS3Endpoint   = "files.s3_endpoint"
	keyStoreBackend      = "store.backend"
	keyStorePath         = "store.path"
	keyStorePostgresDSN  = "store.postgres_dsn"
	keyVectorBackend     = "vector.backend"
	keyVectorPath        = "vector.path"
	keyVectorQdrantAddr  = "vector.qdrant_addr"
	keyVectorCollection  = "vector.collection"
	keyRetrievalTopK     = "retrieval.top_k"
	keyRetrievalMinScore = "retrieval.min_score"
	keyRetrievalContext  = "retrieval.context_chars"
	keyRetrievalTimeout  = "retrieval.timeout_ms"
	keyIngestWorkers     = "ingestion.workers"
	keyIngestQueueSize   = "ingestion.queue_size"
	keyIngestStaleClaim  = "ingestion.stale_claim_minutes"
	keyLogFormat         = "log.format"
	keyLogVerbose        = "log.verbose"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
)

// settingKey describes one configurable key: how to parse it and how to
// read its default out of an AppSettings.
type settingKey struct {
	kind    valueKind
	choices []string
	current func(*domain.AppSettings) any
}

var settingKeys = map[string]settingKey{
	keyEmbedProvider: {kind: kindString, choices: []string{"hashing", "ollama", "openai"},
		current: func(s *domain.AppSettings) any { return string(s.Embedding.Provider) }},
	keyEmbedModel:   {kind: kindString, current: func(s *domain.AppSettings) any { return s.Embedding.Model }},
	keyEmbedBaseURL: {kind: kindString, current: func(s *domain.AppSettings) any { return s.Embedding.BaseURL }},
	keyEmbedAPIKey:  {kind: kindString, current: func(s *domain.AppSettings) any { return s.Embedding.APIKey }},
	keyEmbedDims:    {kind: kindInt, current: func(s *domain.AppSettings) any { return s.Embedding.Dimensions }},
	keyChunkSize:    {kind: kindInt, current: func(s *domain.AppSettings) any { return s.Chunking.Size }},
	keyChunkOverlap: {kind: kindInt, current: func(s *domain.AppSettings) any { return s.Chunking.Overlap }},
	keyUploadMaxSize: {kind: kindInt,
		current: func(s *domain.AppSettings) any { return int(s.Upload.MaxSize) }},
	keyUploadExtensions: {kind: kindList,
		current: func(s *domain.AppSettings) any { return slices.Clone(s.Upload.AllowedExtensions) }},
	keyFilesBackend: {kind: kindString, choices: []string{domain.BackendLocal, domain.BackendS3},
		current: func(s *domain.AppSettings) any { return s.Files.Backend }},
	keyFilesUploadDir:  {kind: kindString, current: func(s *domain.AppSettings) any { return s.Files.UploadDir }},
	keyFilesS3Bucket:   {kind: kindString, current: func(s *domain.AppSettings) any { return s.Files.S3Bucket }},
	keyFilesS3Prefix:   {kind: kindString, current: func(s *domain.AppSettings) any { return s.Files.S3Prefix }},
	keyFilesS3Region:   {kind: kindString, current: func(s *domain.AppSettings) any { return s.Files.S3Region }},
	keyFilesS3Endpoint: {kind: kindString, current: func(s *domain.AppSettings) any { return s.Files.S3Endpoint }},
	keyStoreBackend: {kind: kindString,
		choices: []string{domain.BackendSQLite, domain.BackendPostgres, domain.BackendMemory},
		current: func(s *domain.AppSettings) any { return s.Store.Backend }},
	keyStorePath:        {kind: kindString, current: func(s *domain.AppSettings) any { return s.Store.Path }},
	keyStorePostgresDSN: {kind: kindString, current: func(s *domain.AppSettings) any { return s.Store.PostgresDSN }},
	keyVectorBackend: {kind: kindString,
		choices: []string{domain.BackendSQLite, domain.BackendQdrant, domain.BackendMemory},
		current: func(s *domain.AppSettings) any { return s.Vector.Backend }},
	keyVectorPath:       {kind: kindString, current: func(s *domain.AppSettings) any { return s.Vector.Path }},
	keyVectorQdrantAddr: {kind: kindString, current: func(s *domain.AppSettings) any { return s.Vector.QdrantAddr }},
	keyVectorCollection: {kind: kindString, current: func(s *domain.AppSettings) any { return s.Vector.Collection }},
	keyRetrievalTopK:    {kind: kindInt, current: func(s *domain.AppSettings) any { return s.Retrieval.TopK }},
	keyRetrievalMinScore: {kind: kindFloat,
		current: func(s *domain.AppSettings) any { return s.Retrieval.MinScore }},
	keyRetrievalContext: {kind: kindInt,
		current: func(s *domain.AppSettings) any { return s.Retrieval.ContextChars }},
	keyRetrievalTimeout: {kind: kindInt,
		current: func(s *domain.AppSettings) any { return int(s.Retrieval.Timeout / time.Millisecond) }},
	keyIngestWorkers:   {kind: kindInt, current: func(s *domain.AppSettings) any { return s.Ingestion.Workers }},
	keyIngestQueueSize: {kind: kindInt, current: func(s *domain.AppSettings) any { return s.Ingestion.QueueSize }},
	keyIngestStaleClaim: {kind: kindInt,
		current: func(s *domain.AppSettings) any { return int(s.Ingestion.StaleClaimAfter / time.Minute) }},
	keyLogFormat: {kind: kindString, choices: []string{"console", "json"},
		current: func(s *domain.AppSettings) any { return s.Log.Format }},
	keyLogVerbose: {kind: kindBool, current: func(s *domain.AppSettings) any { return s.Log.Verbose }},
}

// SettingsService resolves application settings from a config store
// layered over built-in defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
}

// NewSettingsService creates a new settings service. dataDir roots the
// default storage paths.
func NewSettingsService(configStore driven.ConfigStore, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataDir:     dataDir,
	}
}

// Get returns the effective settings and validates them.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings(s.dataDir)

	settings := &domain.AppSettings{
		DataDir: s.dataDir,
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.EmbeddingProvider(s.getString(keyEmbedProvider, string(d.Embedding.Provider))),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, d.Embedding.Dimensions),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunking.Overlap),
		},
		Upload: domain.UploadSettings{
			MaxSize:           int64(s.getInt(keyUploadMaxSize, int(d.Upload.MaxSize))),
			AllowedExtensions: s.getExtensions(d.Upload.AllowedExtensions),
		},
		Files: domain.FileSettings{
			Backend:    s.getString(keyFilesBackend, d.Files.Backend),
			UploadDir:  s.getString(keyFilesUploadDir, d.Files.UploadDir),
			S3Bucket:   s.configStore.GetString(keyFilesS3Bucket),
			S3Prefix:   s.configStore.GetString(keyFilesS3Prefix),
			S3Region:   s.configStore.GetString(keyFilesS3Region),
			S3Endpoint: s.configStore.GetString(keyFilesS3Endpoint),
		},
		Store: domain.StoreSettings{
			Backend:     s.getString(keyStoreBackend, d.Store.Backend),
			Path:        s.getString(keyStorePath, d.Store.Path),
			PostgresDSN: s.configStore.GetString(keyStorePostgresDSN),
		},
		Vector: domain.VectorSettings{
			Backend:    s.getString(keyVectorBackend, d.Vector.Backend),
			Path:       s.getString(keyVectorPath, d.Vector.Path),
			QdrantAddr: s.getString(keyVectorQdrantAddr, d.Vector.QdrantAddr),
			Collection: s.getString(keyVectorCollection, d.Vector.Collection),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:         s.getInt(keyRetrievalTopK, d.Retrieval.TopK),
			MinScore:     s.getFloat(keyRetrievalMinScore, d.Retrieval.MinScore),
			ContextChars: s.getInt(keyRetrievalContext, d.Retrieval.ContextChars),
			Timeout: time.Duration(s.getInt(keyRetrievalTimeout,
				int(d.Retrieval.Timeout/time.Millisecond))) * time.Millisecond,
		},
		Ingestion: domain.IngestionSettings{
			Workers:   s.getInt(keyIngestWorkers, d.Ingestion.Workers),
			QueueSize: s.getInt(keyIngestQueueSize, d.Ingestion.QueueSize),
			StaleClaimAfter: time.Duration(s.getInt(keyIngestStaleClaim,
				int(d.Ingestion.StaleClaimAfter/time.Minute))) * time.Minute,
		},
		Log: domain.LogSettings{
			Format:  s.getString(keyLogFormat, d.Log.Format),
			Verbose: s.getBool(keyLogVerbose, d.Log.Verbose),
		},
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	def, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, key)
	}

	parsed, err := parseSetting(def, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrValidation, key, err)
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Value returns the configured value of key, or its default when unset.
func (s *SettingsService) Value(key string) (any, bool) {
	def, known := settingKeys[key]
	if val, ok := s.configStore.Get(key); ok {
		return val, true
	}
	if !known {
		return nil, false
	}
	return def.current(domain.DefaultAppSettings(s.dataDir)), true
}

// Keys lists every known key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func parseSetting(def settingKey, value string) (any, error) {
	switch def.kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative: %d", n)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", value)
		}
		return b, nil
	case kindList:
		var items []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		if len(items) == 0 {
			return nil, errors.New("empty list")
		}
		return items, nil
	default:
		if len(def.choices) > 0 && !slices.Contains(def.choices, value) {
			return nil, fmt.Errorf("must be one of %s", strings.Join(def.choices, ", "))
		}
		return value, nil
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats a present zero as a real value so that overlap 0 or
// min_score 0 can be configured explicitly.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return defaultVal
		}
		return f
	default:
		return defaultVal
	}
}

// getExtensions normalises configured extensions to lowercase with a leading dot.
func (s *SettingsService) getExtensions(defaultVal []string) []string {
	raw := s.configStore.GetStringSlice(keyUploadExtensions)
	if len(raw) == 0 {
		return slices.Clone(defaultVal)
	}
	exts := make([]string, 0, len(raw))
	for _, ext := range raw {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
