// Package cmd defines the CLI commands for the product crawler executable.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-sitemap-crawler/internal/app"
)

const closeTimeout = 10 * time.Second

// newCrawlCmd creates the 'crawl' subcommand. Its flags override the config
// file and the environment.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one sitemap crawl",
		Long: `Fetches <site>/robots.txt and <site>/sitemap.xml, then crawls product pages
in sitemap order until --max-products have been stored.`,
		RunE: runCrawlCommand,
	}
	cmd.Flags().String("site", "", "site root, e.g. https://shop.example.com")
	cmd.Flags().Int("max-products", 0, "stop after this many products are stored")
	cmd.Flags().Float64("rps", 0, "maximum product requests per second")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck // best-effort flush

	appInstance, err := app.Build(cmd.Context(), rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		appInstance.Close(closeCtx)
	}()

	summary, err := appInstance.Run(cmd.Context())
	if err != nil {
		return err
	}

	rt.logger.Info("crawl command finished", zap.String("run_id", summary.RunID))
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
