package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/connectors/filesystem"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Watch flags.
var (
	watchSource string
	watchType   string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload files dropped into a directory",
	Long: `Watches a directory and uploads every PDF, DOCX or TXT file written to it
as a new document. Hidden files and subdirectories are ignored. Runs until
interrupted.`,
	Args:        cobra.ExactArgs(1),
	Annotations: servicesAnnotation(),
	RunE:        runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSource, "source", "s", filesystem.DefaultSource, "source recorded on uploads")
	watchCmd.Flags().StringVar(&watchType, "type", string(domain.DocumentTypeCyberLaw), "document type recorded on uploads")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	opts := []filesystem.Option{
		filesystem.WithActor(currentActor()),
		filesystem.WithSource(watchSource),
		filesystem.WithDocumentType(domain.DocumentType(watchType)),
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			opts = append(opts, filesystem.WithExtensions(settings.Upload.AllowedExtensions))
		}
	}

	watcher := filesystem.New(args[0], documentService, opts...)
	defer watcher.Close()

	results, err := watcher.Watch(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", watcher.Root())
	for res := range results {
		if res.Err != nil {
			cmd.Printf("  rejected %s: %v\n", res.Path, res.Err)
			continue
		}
		cmd.Printf("  uploaded %s as %s\n", res.Path, res.DocumentID)
	}
	return nil
}
