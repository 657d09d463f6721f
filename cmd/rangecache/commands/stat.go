package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/objectfs/rangecache/internal/adapter"
)

func newStatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat URI",
		Short: "Show object metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withObject(cmd.Context(), args[0], func(a *adapter.Adapter, key string) error {
				info, err := a.Stat(cmd.Context(), key)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Key:\t%s\n", info.Key)
				fmt.Fprintf(w, "Size:\t%s (%s bytes)\n", humanize.IBytes(uint64(info.Size())), humanize.Comma(info.Size()))
				if !info.ModTime().IsZero() {
					fmt.Fprintf(w, "Modified:\t%s (%s)\n", info.ModTime().Format("2006-01-02 15:04:05 MST"),
						humanize.Time(info.ModTime()))
				}
				if info.ETag != "" {
					fmt.Fprintf(w, "ETag:\t%s\n", info.ETag)
				}
				if info.ContentType != "" {
					fmt.Fprintf(w, "Content-Type:\t%s\n", info.ContentType)
				}
				return w.Flush()
			})
		},
	}
}
