package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectfs/rangecache/internal/adapter"
)

func newCatCmd(opts *globalOptions) *cobra.Command {
	var (
		offset int64
		length int64
	)

	cmd := &cobra.Command{
		Use:   "cat URI",
		Short: "Print an object or a byte range of it",
		Long: `Print the bytes of an object to stdout.

Examples:
  # Whole object
  rangecache cat s3://bucket/logs/app.log

  # 4 KiB starting at offset 1 MiB
  rangecache cat s3://bucket/data.bin --offset 1048576 --length 4096`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withObject(cmd.Context(), args[0], func(a *adapter.Adapter, key string) error {
				f, err := a.Open(cmd.Context(), key, os.O_RDONLY)
				if err != nil {
					return err
				}
				defer f.Close()

				if _, err := f.Seek(offset, io.SeekStart); err != nil {
					return err
				}

				var r io.Reader = f
				if length >= 0 {
					r = io.LimitReader(f, length)
				}
				_, err = io.Copy(cmd.OutOrStdout(), r)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "first byte to print")
	cmd.Flags().Int64Var(&length, "length", -1, "number of bytes to print (-1 for all)")
	return cmd
}
