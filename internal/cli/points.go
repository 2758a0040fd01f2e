package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/daemon"
)

func newPointsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Point balance, history and conversion",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "balance <child-id>",
		Short: "Show the point balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				bal, err := d.Ledger.Balance(cmd.Context(), childID)
				if err != nil {
					return err
				}
				return emit(cmd, opts, bal, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Balance: %d points (convertible: %d)\n", bal.Balance, bal.ConvertableAmount)
					return err
				})
			})
		},
	})

	var limit, offset int
	history := &cobra.Command{
		Use:   "history <child-id>",
		Short: "List ledger entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				entries, err := d.Ledger.History(cmd.Context(), childID, limit, offset)
				if err != nil {
					return err
				}
				return emit(cmd, opts, entries, func(w io.Writer) error {
					if len(entries) == 0 {
						fmt.Fprintln(w, "No ledger entries.")
						return nil
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "WHEN\tTYPE\tAMOUNT\tDESCRIPTION")
					for _, e := range entries {
						fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\n",
							e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Type, e.Amount, e.Description)
					}
					return tw.Flush()
				})
			})
		},
	}
	history.Flags().IntVar(&limit, "limit", 0, "Entries to show (default 50, max 100)")
	history.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	cmd.AddCommand(history)

	cmd.AddCommand(&cobra.Command{
		Use:   "convert <child-id> <amount>",
		Short: "Convert points in multiples of 500",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				res, err := d.Ledger.Convert(cmd.Context(), childID, amount)
				if err != nil {
					return err
				}
				return emit(cmd, opts, res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s\nRemaining: %d points\n", res.Message, res.RemainingBalance)
					return err
				})
			})
		},
	})
	return cmd
}
