package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/objectfs/rangecache/internal/adapter"
	"github.com/objectfs/rangecache/internal/config"
)

func newServeMetricsCmd(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve-metrics STORAGE_URI",
		Short: "Serve Prometheus metrics for a cache on a store until interrupted",
		Long: `Start a cache engine on a store and expose its metrics over HTTP at
monitoring.metrics.path (default /metrics) and /health.

Examples:
  rangecache serve-metrics s3://bucket --port 9100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg.Monitoring.Metrics.Enabled = true
			if cmd.Flags().Changed("port") {
				cfg.Global.MetricsPort = port
			}
			return serveMetrics(cmd, args[0], cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 9100, "metrics listen port (overrides global.metrics_port)")
	return cmd
}

func serveMetrics(cmd *cobra.Command, storageURI string, cfg *config.Configuration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := adapter.New(ctx, storageURI, cfg)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "serving metrics on :%d%s, press Ctrl+C to stop\n",
		cfg.Global.MetricsPort, cfg.Monitoring.Metrics.Path)
	<-ctx.Done()

	return a.Stop(cmd.Context())
}
