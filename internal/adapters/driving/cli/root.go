// Package cli provides the lexrag command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationServices marks commands that need the full service graph.
// Commands without it (version, config) only need settings.
const annotationServices = "lexrag/services"

// IngestionWaiter blocks until background ingestion is idle.
type IngestionWaiter interface {
	Wait(ctx context.Context) error
}

// Services holds the driving ports a command may use.
type Services struct {
	Documents driving.DocumentService
	Retrieval driving.RetrievalService
	Audit     driving.AuditService
	Ingestion IngestionWaiter

	// Close releases stores and stops background workers. May be nil.
	Close func() error
}

// SettingsLoader opens the settings service for a config directory.
type SettingsLoader func(configDir string) (driving.SettingsService, error)

// Bootstrap builds the service graph from effective settings.
type Bootstrap func(ctx context.Context, settings *domain.AppSettings) (*Services, error)

// Services used by command handlers. Set by the bootstrap or by tests.
var (
	documentService  driving.DocumentService
	retrievalService driving.RetrievalService
	auditService     driving.AuditService
	settingsService  driving.SettingsService
	ingestionWaiter  IngestionWaiter
)

var (
	settingsLoader SettingsLoader
	bootstrap      Bootstrap
	closeServices  func() error
)

// Global flags.
var (
	verbose   bool
	configDir string
	actorID   string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Versioned legal document store with cited answers",
	Long: `lexrag ingests cyber-law documents into a versioned store, indexes their
sections for semantic search and answers questions with cited sources.
Every upload, update, ingestion outcome and query is recorded in an
append-only audit log.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.lexrag)")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", defaultActorID(), "actor recorded in the audit log")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
}

// SetSettingsLoader installs the function that opens the settings service.
func SetSettingsLoader(loader SettingsLoader) {
	settingsLoader = loader
}

// SetBootstrap installs the function that builds the service graph.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

func shutdown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warnw("closing services", "error", err)
	}
	closeServices = nil
}

// prepare applies logging flags, opens settings and builds services for
// commands that need them.
func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if logFormat != "" {
		logger.SetFormat(logger.Format(logFormat))
	}

	if settingsService == nil && settingsLoader != nil {
		svc, err := settingsLoader(configDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		settingsService = svc
	}

	if !needsServices(cmd) || documentService != nil || bootstrap == nil {
		return nil
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cmd.Flags().Changed("verbose") && settings.Log.Verbose {
		logger.SetVerbose(true)
	}
	if logFormat == "" {
		logger.SetFormat(logger.Format(settings.Log.Format))
	}

	services, err := bootstrap(cmd.Context(), settings)
	if err != nil {
		return err
	}
	documentService = services.Documents
	retrievalService = services.Retrieval
	auditService = services.Audit
	ingestionWaiter = services.Ingestion
	closeServices = services.Close
	return nil
}

func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationServices] == "true" {
			return true
		}
	}
	return false
}

func servicesAnnotation() map[string]string {
	return map[string]string{annotationServices: "true"}
}

// currentActor is the identity recorded for this invocation.
func currentActor() domain.Actor {
	return domain.Actor{ID: actorID, UserAgent: "lexrag-cli/" + version}
}

func defaultActorID() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}
