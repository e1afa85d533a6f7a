package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/pipeline"
	"github.com/Ads97/Veritas/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Serve starts the HTTP API:

  POST /api/data   verify one subject (name, address, listing_url, other_details, extra keys)
  GET  /health     liveness
  GET  /metrics    Prometheus metrics

Example:
  veritas serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	bindProviderFlags(serveCmd)

	pre := serveCmd.PreRunE
	serveCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if f := cmd.Flags().Lookup("addr"); f.Changed {
			if err := viper.BindPFlag("server.addr", f); err != nil {
				return err
			}
		}
		return pre(cmd, args)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	verifier, cleanup, err := pipeline.FromConfig(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer cleanup()

	log.Info("Starting veritas API server",
		zap.String("version", Version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model),
		zap.String("scraper", cfg.Scrape.Provider),
		zap.Bool("audit", cfg.Audit.Enabled),
	)

	return server.New(verifier, log).ListenAndServe(ctx, cfg.Server)
}
