package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/daemon"
)

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the starter activity catalog and benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(opts, func(d *daemon.Daemon) error {
				acts, err := d.Catalog.SeedActivities(cmd.Context())
				if err != nil {
					return err
				}
				benches, err := d.Status.SeedBenchmarks(cmd.Context())
				if err != nil {
					return err
				}
				res := map[string]int{"activities": acts, "benchmarks": benches}
				return emit(cmd, opts, res, func(w io.Writer) error {
					if acts == 0 {
						fmt.Fprintln(w, "Catalog already has activities, left unchanged.")
					} else {
						fmt.Fprintf(w, "Added %d activities.\n", acts)
					}
					_, err := fmt.Fprintf(w, "Stored %d benchmarks.\n", benches)
					return err
				})
			})
		},
	}
}
