package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the legal question to answer"`
}

// UploadInput is the input schema for the upload tool.
type UploadInput struct {
	Filename      string `json:"filename" jsonschema:"file name including a .pdf, .docx or .txt extension"`
	Content       string `json:"content" jsonschema:"base64-encoded file content"`
	Title         string `json:"title,omitempty" jsonschema:"document title (defaults to the file name)"`
	Summary       string `json:"summary,omitempty" jsonschema:"short abstract"`
	Source        string `json:"source,omitempty" jsonschema:"where the document came from"`
	DocumentType  string `json:"document_type,omitempty" jsonschema:"cyber_law, amendment, guideline, circular or notification"`
	SectionNumber string `json:"section_number,omitempty" jsonschema:"statute section the document belongs to"`
}

// UpdateInput is the input schema for the update tool.
type UpdateInput struct {
	DocumentID      string  `json:"document_id" jsonschema:"the version being amended"`
	ExpectedVersion int     `json:"expected_version" jsonschema:"the version number last read; the update fails if it changed"`
	Title           *string `json:"title,omitempty" jsonschema:"new title"`
	Summary         *string `json:"summary,omitempty" jsonschema:"new summary"`
	Source          *string `json:"source,omitempty" jsonschema:"new source"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"a document version id"`
	Latest     bool   `json:"latest,omitempty" jsonschema:"follow the chain to the current version"`
	Versions   bool   `json:"versions,omitempty" jsonschema:"include the whole version chain"`
}

// DocumentOutput is the output schema for the get_document tool.
type DocumentOutput struct {
	Document *domain.Document  `json:"document"`
	Versions []domain.Document `json:"versions,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// DocumentsOutput is the output schema for the list_documents tool.
type DocumentsOutput struct {
	Documents []domain.Document `json:"documents"`
	Count     int               `json:"count"`
}

// ListAuditInput is the input schema for the list_audit tool.
type ListAuditInput struct {
	Start      string `json:"start,omitempty" jsonschema:"earliest timestamp, RFC 3339 or YYYY-MM-DD"`
	End        string `json:"end,omitempty" jsonschema:"latest timestamp, RFC 3339 or YYYY-MM-DD"`
	Actor      string `json:"actor,omitempty" jsonschema:"only events by this actor"`
	Action     string `json:"action,omitempty" jsonschema:"UPLOAD, UPDATE, PROCESS_COMPLETE, PROCESS_FAILED, CHAT_QUERY or CHAT_ERROR"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"only events for this document version"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of events (at most 100)"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	Actor string `json:"actor,omitempty" jsonschema:"whose queries to list (defaults to the server actor)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of queries (at most 100)"`
}

// EventsOutput is the output schema for the audit tools.
type EventsOutput struct {
	Events []domain.AuditEvent `json:"events"`
	Count  int                 `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question about cyber law with cited sources",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload",
		Description: "Upload a legal document for indexing",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update",
		Description: "Amend a document's metadata, creating a new version",
	}, s.handleUpdate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Show one document version and optionally its version chain",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the current version of every document",
	}, s.handleListDocuments)

	if s.ports.Audit != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_audit",
			Description: "List audit events, newest first",
		}, s.handleListAudit)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "history",
			Description: "List an actor's past questions, newest first",
		}, s.handleHistory)
	}
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, domain.Answer, error) {
	answer, err := s.ports.Retrieval.Answer(ctx, input.Query, s.actor)
	if err != nil {
		return nil, domain.Answer{}, fmt.Errorf("query failed: %w", err)
	}
	return nil, *answer, nil
}

func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, domain.UploadReceipt, error) {
	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(input.Content))
	if err != nil {
		return nil, domain.UploadReceipt{}, fmt.Errorf("%w: content is not valid base64", domain.ErrValidation)
	}

	receipt, err := s.ports.Document.Upload(ctx, domain.UploadRequest{
		Filename:      input.Filename,
		Content:       content,
		Title:         input.Title,
		Summary:       input.Summary,
		Source:        input.Source,
		DocumentType:  domain.DocumentType(input.DocumentType),
		SectionNumber: input.SectionNumber,
		Actor:         s.actor,
	})
	if err != nil {
		return nil, domain.UploadReceipt{}, fmt.Errorf("upload failed: %w", err)
	}
	return nil, *receipt, nil
}

func (s *Server) handleUpdate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateInput,
) (*mcp.CallToolResult, domain.UpdateReceipt, error) {
	patch := domain.DocumentPatch{Title: input.Title, Summary: input.Summary, Source: input.Source}
	receipt, err := s.ports.Document.Update(ctx, input.DocumentID, input.ExpectedVersion, patch, s.actor)
	if err != nil {
		return nil, domain.UpdateReceipt{}, fmt.Errorf("update failed: %w", err)
	}
	return nil, *receipt, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	get := s.ports.Document.Get
	if input.Latest {
		get = s.ports.Document.Latest
	}
	doc, err := get(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("getting document: %w", err)
	}

	output := DocumentOutput{Document: doc}
	if input.Versions {
		output.Versions, err = s.ports.Document.Versions(ctx, input.DocumentID)
		if err != nil {
			return nil, DocumentOutput{}, fmt.Errorf("listing versions: %w", err)
		}
	}
	return nil, output, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, DocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, DocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return nil, DocumentsOutput{Documents: docs, Count: len(docs)}, nil
}

func (s *Server) handleListAudit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListAuditInput,
) (*mcp.CallToolResult, EventsOutput, error) {
	filter := domain.AuditFilter{
		Actor:      input.Actor,
		Action:     domain.AuditAction(strings.ToUpper(input.Action)),
		DocumentID: input.DocumentID,
		Limit:      input.Limit,
	}
	var err error
	if filter.Start, err = parseTime(input.Start); err != nil {
		return nil, EventsOutput{}, err
	}
	if filter.End, err = parseTime(input.End); err != nil {
		return nil, EventsOutput{}, err
	}

	events, err := s.ports.Audit.List(ctx, filter)
	if err != nil {
		return nil, EventsOutput{}, fmt.Errorf("listing audit events: %w", err)
	}
	return nil, eventsOutput(events), nil
}

func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, EventsOutput, error) {
	actor := input.Actor
	if actor == "" {
		actor = s.actor.ID
	}
	events, err := s.ports.Audit.History(ctx, actor, input.Limit)
	if err != nil {
		return nil, EventsOutput{}, fmt.Errorf("listing history: %w", err)
	}
	return nil, eventsOutput(events), nil
}

func eventsOutput(events []domain.AuditEvent) EventsOutput {
	if events == nil {
		events = []domain.AuditEvent{}
	}
	return EventsOutput{Events: events, Count: len(events)}
}

// parseTime accepts RFC 3339 timestamps and bare dates. Empty input means
// no bound.
func parseTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid time %q", domain.ErrValidation, value)
}
