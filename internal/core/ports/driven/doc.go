// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - DocumentStore: document versions, their chains and chunks (sqlite, postgres, memory)
//   - AuditStore: append-only audit trail (sqlite, postgres, memory)
//   - VectorStore: embedding persistence and nearest-neighbour lookup (sqlite, qdrant, memory)
//   - EmbeddingService: text to vector (hashing, ollama, openai)
//   - FileStore: uploaded file bytes (local directory, S3)
//   - Normaliser / NormaliserRegistry: text extraction per file format
//   - PostProcessor / PostProcessorPipeline: segmentation and chunking
//   - IntentClassifier: query intent
//   - ConfigStore: application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
