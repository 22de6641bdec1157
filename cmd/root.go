// Package cmd defines and implements the CLI commands for the leadcrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/app"
	"github.com/JakeFAU/law-leads-crawler/internal/config"
	"github.com/JakeFAU/law-leads-crawler/internal/extract"
	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/logging"
)

const defaultEnvFile = ".env"

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a memory-backed app during tests.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetLeads() lead.LeadStore
	GetFirms() app.FirmStore
	GetEmails() app.EmailStore
	Migrate(ctx context.Context) ([]string, error)
	NewFetcher() (lead.Fetcher, error)
	NewExtractor(f lead.Fetcher) (*extract.Extractor, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.NewApp(ctx, cfg, logger)
}

type rootOptions struct {
	configFile string
	envFile    string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "leadcrawler",
		Short: "Crawls law-firm websites for contact email addresses.",
		Long: `leadcrawler stages candidate law-firm leads, visits each website with a
browser, extracts contact email addresses and stores them per firm without
duplicates. Every lead moves through pending, in_progress and completed or
failed, so several crawler processes can share one database.`,
		SilenceUsage: true,

		// Builds the application before the subcommand's RunE and stores it in the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(opts.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")

	cmd.AddCommand(
		newMigrateCmd(),
		newIngestCmd(),
		newRunCmd(),
		newRetryCmd(),
		newResetStaleCmd(),
		newStatusCmd(),
	)
	return cmd
}

// loadEnvFile loads path into the environment. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
