package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectfs/rangecache/internal/adapter"
	"github.com/objectfs/rangecache/pkg/utils"
)

func newTruncateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate URI SIZE",
		Short: "Cut or zero-extend an object",
		Long: `Set the size of an object. SIZE accepts units ("0", "512", "4KiB", "1MB").

Examples:
  rangecache truncate s3://bucket/data.bin 1MiB`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := utils.ParseBytes(args[1])
			if err != nil {
				return fmt.Errorf("invalid size %q: %w", args[1], err)
			}

			return opts.withObject(cmd.Context(), args[0], func(a *adapter.Adapter, key string) error {
				f, err := a.Open(cmd.Context(), key, os.O_WRONLY)
				if err != nil {
					return err
				}
				if err := f.Truncate(size); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}
