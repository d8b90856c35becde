package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// keyEmbeddingAPIKey is the only secret setting.
const keyEmbeddingAPIKey = "embedding.api_key"

// stdin is the wizard's input. Replaced in tests.
var stdin io.Reader = os.Stdin

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change settings stored in ~/.lexrag/config.toml.

Environment variables named LEXRAG_<SECTION>_<KEY> (for example
LEXRAG_EMBEDDING_PROVIDER) override file values for a single run and are
never written back.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting key with its value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:     "set [key] [value]",
	Short:   "Change one setting",
	Example: "  lexrag config set retrieval.top_k 8\n  lexrag config set upload.allowed_extensions .pdf,.txt",
	Args:    cobra.ExactArgs(2),
	RunE:    runConfigSet,
}

var configAPIKeyCmd = &cobra.Command{
	Use:   "set-api-key",
	Short: "Store the embedding provider API key",
	Long:  `Prompts for the API key without echoing it to the terminal.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigSetAPIKey,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to choose the embedding provider and storage backends.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configAPIKeyCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'lexrag config wizard' or 'lexrag config set' to fix configuration issues.")
		return nil
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider)
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Documents: %s\n", settings.Store.Backend)
	cmd.Printf("  Vectors: %s\n", settings.Vector.Backend)
	cmd.Printf("  Files: %s\n", settings.Files.Backend)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min score: %g\n", settings.Retrieval.MinScore)
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Chunking.Size, settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("Configuration is valid.")
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, key := range settingsService.Keys() {
		val, _ := settingsService.Value(key)
		cmd.Printf("%s = %s\n", key, formatValue(key, val))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	val, ok := settingsService.Value(key)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, key)
	}
	cmd.Println(formatValue(key, val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, formatValue(key, value))
	return nil
}

func runConfigSetAPIKey(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Print("Embedding API key: ")
	key := readPassword(bufio.NewReader(stdin))
	cmd.Println()
	if key == "" {
		return fmt.Errorf("%w: API key cannot be empty", domain.ErrValidation)
	}
	if err := settingsService.Set(keyEmbeddingAPIKey, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	cmd.Printf("Saved API key %s\n", maskAPIKey(key))
	return nil
}

// wizardStep offers a numbered choice for one setting.
type wizardStep struct {
	title   string
	key     string
	choices []string
}

var wizardSteps = []wizardStep{
	{title: "Embedding provider", key: "embedding.provider", choices: []string{
		string(domain.EmbeddingProviderHashing),
		string(domain.EmbeddingProviderOllama),
		string(domain.EmbeddingProviderOpenAI),
	}},
	{title: "Document store", key: "store.backend", choices: []string{
		domain.BackendSQLite, domain.BackendPostgres, domain.BackendMemory,
	}},
	{title: "Vector index", key: "vector.backend", choices: []string{
		domain.BackendSQLite, domain.BackendQdrant, domain.BackendMemory,
	}},
	{title: "File storage", key: "files.backend", choices: []string{
		domain.BackendLocal, domain.BackendS3,
	}},
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("lexrag Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	reader := bufio.NewReader(stdin)
	chosen := make(map[string]string, len(wizardSteps))

	for n, step := range wizardSteps {
		cmd.Printf("Step %d: %s\n", n+1, step.title)
		for i, choice := range step.choices {
			cmd.Printf("  %d. %s\n", i+1, choice)
		}
		cmd.Print("\nEnter choice [1]: ")
		idx := parseChoice(readLine(reader), len(step.choices), 1)
		value := step.choices[idx-1]

		if err := settingsService.Set(step.key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", step.key, err)
		}
		chosen[step.key] = value
		cmd.Printf("Set %s to: %s\n\n", step.key, value)
	}

	// Follow-up values the chosen backends need.
	followUps := map[string][]string{
		"embedding.provider=" + string(domain.EmbeddingProviderOllama): {"embedding.base_url", "embedding.model"},
		"embedding.provider=" + string(domain.EmbeddingProviderOpenAI): {"embedding.model", keyEmbeddingAPIKey},
		"store.backend=" + domain.BackendPostgres:                      {"store.postgres_dsn"},
		"vector.backend=" + domain.BackendQdrant:                       {"vector.qdrant_addr"},
		"files.backend=" + domain.BackendS3:                            {"files.s3_bucket", "files.s3_region", "files.s3_endpoint"},
	}
	for _, step := range wizardSteps {
		for _, key := range followUps[step.key+"="+chosen[step.key]] {
			if err := promptSetting(cmd, reader, key); err != nil {
				return err
			}
		}
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if _, err := settingsService.Get(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

// promptSetting asks for one free-form value. Empty input keeps the
// current value.
func promptSetting(cmd *cobra.Command, reader *bufio.Reader, key string) error {
	var input string
	if key == keyEmbeddingAPIKey {
		cmd.Printf("%s: ", key)
		input = readPassword(reader)
		cmd.Println()
	} else {
		current, _ := settingsService.Value(key)
		cmd.Printf("%s [%v]: ", key, current)
		input = readLine(reader)
	}
	if input == "" {
		return nil
	}
	if err := settingsService.Set(key, input); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// formatValue renders a setting for display, masking secrets.
func formatValue(key string, val any) string {
	if key == keyEmbeddingAPIKey {
		s, _ := val.(string)
		if s == "" {
			return "(not set)"
		}
		return maskAPIKey(s)
	}
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i := range v {
			parts[i] = fmt.Sprint(v[i])
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	// Try to read password without echo
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
