package mcp

import (
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers questions.
	Retrieval driving.RetrievalService

	// Document manages uploads and version chains.
	Document driving.DocumentService

	// Audit reads the audit trail. Optional; the audit tools are only
	// registered when it is set.
	Audit driving.AuditService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
