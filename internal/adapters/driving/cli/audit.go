package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Audit flags.
var (
	auditActor    string
	auditAction   string
	auditDocument string
	auditSince    string
	auditUntil    string
	auditLimit    int
	auditJSON     bool
)

// History flags.
var (
	historyLimit int
	historyJSON  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List audit events, newest first",
	Long: `Lists recorded uploads, updates, ingestion outcomes and queries. Filters
combine; at most 100 events are returned.

Dates accept RFC 3339 timestamps or YYYY-MM-DD.`,
	Example: `  lexrag audit --action upload --since 2024-01-01
  lexrag audit --document 3f2a... --json`,
	Args:        cobra.NoArgs,
	Annotations: servicesAnnotation(),
	RunE:        runAudit,
}

var historyCmd = &cobra.Command{
	Use:         "history",
	Short:       "List your past questions, newest first",
	Long:        `Lists the questions recorded for the current actor (see --actor).`,
	Args:        cobra.NoArgs,
	Annotations: servicesAnnotation(),
	RunE:        runHistory,
}

func init() {
	auditCmd.Flags().StringVar(&auditActor, "by", "", "only events by this actor")
	auditCmd.Flags().StringVar(&auditAction, "action", "",
		"only this action: upload, update, process_complete, process_failed, chat_query, chat_error")
	auditCmd.Flags().StringVar(&auditDocument, "document", "", "only events for this document version")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "earliest timestamp")
	auditCmd.Flags().StringVar(&auditUntil, "until", "", "latest timestamp")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", domain.MaxAuditLimit, "maximum number of events")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output as JSON")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of questions")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	if auditService == nil {
		return errors.New("audit service not configured")
	}

	filter := domain.AuditFilter{
		Actor:      auditActor,
		Action:     domain.AuditAction(strings.ToUpper(auditAction)),
		DocumentID: auditDocument,
		Limit:      auditLimit,
	}
	var err error
	if filter.Start, err = parseTime(auditSince); err != nil {
		return err
	}
	if filter.End, err = parseTime(auditUntil); err != nil {
		return err
	}

	events, err := auditService.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list audit events: %w", err)
	}
	if auditJSON {
		return printJSON(cmd, events)
	}
	printEvents(cmd, events)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if auditService == nil {
		return errors.New("audit service not configured")
	}

	events, err := auditService.History(cmd.Context(), actorID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if historyJSON {
		return printJSON(cmd, events)
	}

	if len(events) == 0 {
		cmd.Println("No questions recorded.")
		return nil
	}
	for i := range events {
		query, _ := events[i].Details["query"].(string)
		intent, _ := events[i].Details["intent"].(string)
		cmd.Printf("%s  [%s]  %s\n", events[i].Timestamp.Format("2006-01-02 15:04:05"), intent, query)
	}
	return nil
}

func printEvents(cmd *cobra.Command, events []domain.AuditEvent) {
	if len(events) == 0 {
		cmd.Println("No audit events found.")
		return
	}

	for i := range events {
		e := &events[i]
		cmd.Printf("#%d  %s  %-16s  %s", e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Actor)
		if e.DocumentID != "" {
			cmd.Printf("  doc=%s", e.DocumentID)
		}
		cmd.Println()
	}
	cmd.Printf("\nTotal: %d events\n", len(events))
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
	return nil, fmt.Errorf("%w: invalid date %q (use YYYY-MM-DD or RFC 3339)", domain.ErrValidation, value)
}
