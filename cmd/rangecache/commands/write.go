package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectfs/rangecache/internal/adapter"
	"github.com/objectfs/rangecache/pkg/utils"
)

func newWriteCmd(opts *globalOptions) *cobra.Command {
	var (
		offset   int64
		appendTo bool
		truncate bool
	)

	cmd := &cobra.Command{
		Use:   "write URI",
		Short: "Write stdin into an object",
		Long: `Write the bytes read from stdin into an object at an offset. Bytes
outside the written range are kept; a gap past the current end is zero-filled.

Examples:
  # Patch bytes 100.. of an object
  printf 'patch' | rangecache write s3://bucket/data.bin --offset 100

  # Append a line
  echo entry | rangecache write mem://scratch/log --append

  # Replace the object
  rangecache write s3://bucket/config.json --truncate < config.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if appendTo && (offset != 0 || truncate) {
				return fmt.Errorf("--append cannot be combined with --offset or --truncate")
			}

			flags := os.O_WRONLY
			if appendTo {
				flags |= os.O_APPEND
			}
			if truncate {
				flags |= os.O_TRUNC
			}

			return opts.withObject(cmd.Context(), args[0], func(a *adapter.Adapter, key string) error {
				f, err := a.Open(cmd.Context(), key, flags)
				if err != nil {
					return err
				}

				if !appendTo {
					if _, err := f.Seek(offset, io.SeekStart); err != nil {
						_ = f.Close()
						return err
					}
				}

				n, err := io.Copy(f, cmd.InOrStdin())
				if err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s to %s\n", utils.FormatBytes(n), args[0])
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "position of the first written byte")
	cmd.Flags().BoolVar(&appendTo, "append", false, "write at the end of the object")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "empty the object before writing")
	return cmd
}
