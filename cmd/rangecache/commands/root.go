// Package commands implements the rangecache CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objectfs/rangecache/internal/adapter"
	"github.com/objectfs/rangecache/internal/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	configFile string
	verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rangecache",
		Short: "Byte-range caching client for object storage",
		Long: `rangecache reads and writes objects through a shared read cache and
per-handle write-back caches bounded by a total and a write limit.

Objects are addressed as s3://bucket/key or mem://store/key.

Use "rangecache [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML); RANGECACHE_* variables override it")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of WARN")

	root.AddCommand(
		newCatCmd(opts),
		newWriteCmd(opts),
		newTruncateCmd(opts),
		newStatCmd(opts),
		newServeMetricsCmd(opts),
		newVersionCmd(),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rangecache %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func (o *globalOptions) loadConfig() (*config.Configuration, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if !o.verbose {
		cfg.Global.LogLevel = "WARN"
	}
	return cfg, nil
}

// withObject starts an adapter for the store holding objectURI, runs fn
// with the object key and stops the adapter.
func (o *globalOptions) withObject(ctx context.Context, objectURI string, fn func(*adapter.Adapter, string) error) (err error) {
	storageURI, key, err := adapter.SplitObjectURI(objectURI)
	if err != nil {
		return err
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	a, err := adapter.New(ctx, storageURI, cfg)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(ctx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	return fn(a, key)
}
