package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-sitemap-crawler/internal/config"
	"github.com/JakeFAU/product-sitemap-crawler/internal/logging"
)

// runtimeKeyType is the key for storing the loaded runtime in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// cliLogger is the configured logger once PersistentPreRunE has run.
var cliLogger *zap.Logger

// runtime is what every subcommand needs before it can build the app.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "product-crawler",
		Short: "Crawls a shop's sitemap and stores its product pages.",
		Long: `product-crawler reads a site's sitemap.xml, keeps the URLs that look like
product pages, and fetches them politely one at a time. Title, prices and
description sections are extracted and upserted into the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs after flags are parsed and before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cliLogger = logger
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, &runtime{cfg: cfg, logger: logger}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("configuration not loaded")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		logger := cliLogger
		if logger == nil {
			// Config or logger setup failed; report with production defaults.
			fallback, fbErr := logging.New(false, "info")
			if fbErr != nil {
				fmt.Fprintln(os.Stderr, "command execution failed:", err)
				os.Exit(1)
			}
			logger = fallback
		}
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
