package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:         "documents",
	Aliases:     []string{"document", "docs"},
	Short:       "Inspect documents and their versions",
	Long:        `List current documents, show single versions, walk version chains or view indexed chunks.`,
	Annotations: servicesAnnotation(),
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the current version of every document",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show one document version",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsLatestCmd = &cobra.Command{
	Use:   "latest [doc-id]",
	Short: "Show the current version of a document's chain",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsLatest,
}

var documentsVersionsCmd = &cobra.Command{
	Use:   "versions [doc-id]",
	Short: "List every version in a document's chain, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsVersions,
}

var documentsChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "List the chunks indexed for a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsChunks,
}

func init() {
	documentsCmd.PersistentFlags().BoolVar(&documentsJSON, "json", false, "output as JSON")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsLatestCmd)
	documentsCmd.AddCommand(documentsVersionsCmd)
	documentsCmd.AddCommand(documentsChunksCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:   %s\n", docs[i].Title)
		cmd.Printf("    Version: %d (%s)\n", docs[i].Version, docs[i].Status)
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	return printDocument(cmd, doc)
}

func runDocumentsLatest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Latest(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get latest version: %w", err)
	}
	return printDocument(cmd, doc)
}

func runDocumentsVersions(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	versions, err := documentService.Versions(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, versions)
	}

	for i := range versions {
		marker := " "
		if versions[i].IsCurrent() {
			marker = "*"
		}
		cmd.Printf("%s v%d  %s  %s  %s  %s\n", marker, versions[i].Version, versions[i].ID,
			versions[i].Status, versions[i].LastModifiedAt.Format("2006-01-02 15:04:05"), versions[i].LastModifiedBy)
	}
	return nil
}

func runDocumentsChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chunks, err := documentService.Chunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, chunks)
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks indexed.")
		return nil
	}
	for i := range chunks {
		section, _ := chunks[i].Metadata[domain.MetaSectionTitle].(string)
		cmd.Printf("[%d] %s\n", chunks[i].Index, section)
		cmd.Printf("    %s\n", truncate(chunks[i].Content, 200))
	}
	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

func printDocument(cmd *cobra.Command, doc *domain.Document) error {
	if documentsJSON {
		return printJSON(cmd, doc)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:     %s\n", doc.Title)
	cmd.Printf("  Version:   %d\n", doc.Version)
	cmd.Printf("  Status:    %s\n", doc.Status)
	cmd.Printf("  Current:   %t\n", doc.IsCurrent())
	cmd.Printf("  Type:      %s\n", doc.DocumentType)
	cmd.Printf("  Source:    %s\n", doc.Source)
	cmd.Printf("  File:      %s\n", doc.Filename)
	if doc.Summary != "" {
		cmd.Printf("  Summary:   %s\n", doc.Summary)
	}
	if doc.SectionNumber != "" {
		cmd.Printf("  Section:   %s\n", doc.SectionNumber)
	}
	if doc.PreviousVersionID != nil {
		cmd.Printf("  Previous:  %s\n", *doc.PreviousVersionID)
	}
	cmd.Printf("  Chunks:    %d\n", doc.ChunkCount)
	if doc.ProcessingError != "" {
		cmd.Printf("  Error:     %s\n", doc.ProcessingError)
	}
	cmd.Printf("  Uploaded:  %s by %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"), doc.UploadedBy)
	cmd.Printf("  Modified:  %s by %s\n", doc.LastModifiedAt.Format("2006-01-02 15:04:05"), doc.LastModifiedBy)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// truncate shortens s to at most n runes, adding an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
