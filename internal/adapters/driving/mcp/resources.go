package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for lexrag resources.
	uriScheme = "lexrag://"

	jsonMIMEType = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Current version of every document",
		MIMEType:    jsonMIMEType,
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-versions",
		Description: "The version chain containing a document, oldest first",
		MIMEType:    jsonMIMEType,
	}, s.handleVersionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/chunks",
		Name:        "document-chunks",
		Description: "Indexed chunks of a document version",
		MIMEType:    jsonMIMEType,
	}, s.handleChunksResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Version int    `json:"version"`
		Status  string `json:"status"`
		URI     string `json:"uri"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:      docs[i].ID,
			Title:   docs[i].Title,
			Version: docs[i].Version,
			Status:  string(docs[i].Status),
			URI:     uriScheme + "documents/" + docs[i].ID,
		}
	}
	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleVersionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// lexrag://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	versions, err := s.ports.Document.Versions(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return jsonResult(req.Params.URI, versions)
}

func (s *Server) handleChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// lexrag://documents/{documentId}/chunks
	docID := extractChunksDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunks, err := s.ports.Document.Chunks(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	return jsonResult(req.Params.URI, chunks)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the id from lexrag://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractChunksDocumentID extracts the id from lexrag://documents/{documentId}/chunks.
func extractChunksDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/chunks"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
