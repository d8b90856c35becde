// Package domain defines the core business entities for lexrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: one version of a legal document in its version chain
//   - Chunk: a retrievable span of a document version
//   - AuditEvent: an append-only record of a mutation or query
//   - Answer: a synthesised, provenance-bearing reply to a query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
