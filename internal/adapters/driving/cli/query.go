package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about cyber law",
	Long: `Classifies the question, searches the indexed sections and answers with
cited sources and a confidence score. Multiple arguments are joined into
one question.`,
	Aliases:     []string{"ask"},
	Args:        cobra.MinimumNArgs(1),
	Annotations: servicesAnnotation(),
	RunE:        runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	question := strings.Join(args, " ")
	answer, err := retrievalService.Answer(cmd.Context(), question, currentActor())
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, answer)
	}
	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Answer)
	if len(answer.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range answer.Sources {
		label := src.Title
		if src.Section != "" {
			label += ", " + src.Section
		}
		cmd.Printf("  [%d] %s (%.1f%%)\n", i+1, label, src.Confidence)
	}
	cmd.Printf("\nIntent: %s  Confidence: %.1f%%\n", answer.Intent, answer.Confidence)
}
