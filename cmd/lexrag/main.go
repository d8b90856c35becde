// Command lexrag is the entry point for the legal document store.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/logger"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetSettingsLoader(loadSettings)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// loadSettings opens config.toml under configDir. Data lives in a data
// directory beside it.
func loadSettings(configDir string) (driving.SettingsService, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".lexrag")
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store, filepath.Join(configDir, "data")), nil
}
