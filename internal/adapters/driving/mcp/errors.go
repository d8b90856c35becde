// Package mcp provides an MCP (Model Context Protocol) server adapter for lexrag.
// It lets AI assistants ask questions of the legal corpus, upload and amend
// documents, and read the audit trail.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
