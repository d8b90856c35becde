package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Upload flags.
var (
	uploadTitle   string
	uploadSummary string
	uploadSource  string
	uploadType    string
	uploadSection string
	uploadNoWait  bool
)

// Update flags.
var (
	updateExpected int
	updatePatch    string
	updateTitle    string
	updateSummary  string
	updateSource   string
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a legal document",
	Long: `Stores a PDF, DOCX or TXT file as the first version of a new document and
indexes its sections. By default the command waits until ingestion finishes
and reports the outcome; use --no-wait to return as soon as the upload is
accepted.`,
	Args:        cobra.ExactArgs(1),
	Annotations: servicesAnnotation(),
	RunE:        runUpload,
}

var updateCmd = &cobra.Command{
	Use:   "update [doc-id]",
	Short: "Amend a document, creating a new version",
	Long: `Creates a new version of a document with patched metadata. The update is
rejected with a version conflict if the document changed since
--expected-version was read.

Fields come from --title, --summary and --source, or from a JSON object
given with --patch. Only title, summary and source may be patched.`,
	Example: `  lexrag update 3f2a... --expected-version 1 --title "IT Act (amended 2008)"
  lexrag update 3f2a... --expected-version 2 --patch '{"summary": ""}'`,
	Args:        cobra.ExactArgs(1),
	Annotations: servicesAnnotation(),
	RunE:        runUpdate,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadTitle, "title", "t", "", "document title (default: file name)")
	uploadCmd.Flags().StringVar(&uploadSummary, "summary", "", "short abstract")
	uploadCmd.Flags().StringVarP(&uploadSource, "source", "s", "", "where the document came from")
	uploadCmd.Flags().StringVar(&uploadType, "type", string(domain.DocumentTypeCyberLaw),
		"document type: cyber_law, amendment, guideline, circular or notification")
	uploadCmd.Flags().StringVar(&uploadSection, "section", "", "statute section the document belongs to")
	uploadCmd.Flags().BoolVar(&uploadNoWait, "no-wait", false, "return without waiting for ingestion")

	updateCmd.Flags().IntVarP(&updateExpected, "expected-version", "e", 0, "version number last read (required)")
	updateCmd.Flags().StringVar(&updatePatch, "patch", "", "JSON object of fields to change")
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&updateSummary, "summary", "", "new summary")
	updateCmd.Flags().StringVar(&updateSource, "source", "", "new source")
	_ = updateCmd.MarkFlagRequired("expected-version")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(updateCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ctx := cmd.Context()
	receipt, err := documentService.Upload(ctx, domain.UploadRequest{
		Filename:      filepath.Base(path),
		Content:       content,
		Title:         uploadTitle,
		Summary:       uploadSummary,
		Source:        uploadSource,
		DocumentType:  domain.DocumentType(uploadType),
		SectionNumber: uploadSection,
		Actor:         currentActor(),
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded %s\n", filepath.Base(path))
	cmd.Printf("  Document: %s\n", receipt.DocumentID)

	if uploadNoWait || ingestionWaiter == nil {
		cmd.Printf("  Status:   %s\n", receipt.Status)
		return nil
	}

	if err := ingestionWaiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for ingestion: %w", err)
	}
	doc, err := documentService.Get(ctx, receipt.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	printIngestionOutcome(cmd, doc)
	return nil
}

func printIngestionOutcome(cmd *cobra.Command, doc *domain.Document) {
	cmd.Printf("  Status:   %s\n", doc.Status)
	switch doc.Status {
	case domain.StatusProcessed:
		cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	case domain.StatusFailed:
		cmd.Printf("  Error:    %s\n", doc.ProcessingError)
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	patch, err := buildPatch()
	if err != nil {
		return err
	}

	docID := args[0]
	receipt, err := documentService.Update(cmd.Context(), docID, updateExpected, patch, currentActor())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("update failed: %w (run 'lexrag documents latest %s' and retry)", err, docID)
		}
		return fmt.Errorf("update failed: %w", err)
	}

	cmd.Printf("Updated %s\n", docID)
	cmd.Printf("  New version: %d\n", receipt.Version)
	cmd.Printf("  Document:    %s\n", receipt.NewDocumentID)
	return nil
}

// buildPatch reads the patch from --patch or from the field flags. The two
// forms cannot be mixed.
func buildPatch() (domain.DocumentPatch, error) {
	var patch domain.DocumentPatch
	fieldFlags := updateTitle != "" || updateSummary != "" || updateSource != ""

	if updatePatch != "" {
		if fieldFlags {
			return patch, fmt.Errorf("%w: use either --patch or field flags", domain.ErrValidation)
		}
		return decodePatch(updatePatch)
	}

	if updateTitle != "" {
		patch.Title = &updateTitle
	}
	if updateSummary != "" {
		patch.Summary = &updateSummary
	}
	if updateSource != "" {
		patch.Source = &updateSource
	}
	return patch, nil
}

// decodePatch parses a JSON patch, rejecting fields that cannot be changed.
func decodePatch(raw string) (domain.DocumentPatch, error) {
	var patch domain.DocumentPatch

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return patch, fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
		}
		return patch, fmt.Errorf("%w: invalid patch: %v", domain.ErrValidation, err)
	}
	return patch, nil
}
