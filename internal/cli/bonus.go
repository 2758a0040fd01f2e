package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/daemon"
)

func newBonusCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bonus",
		Short: "Daily omikuji login bonus",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status <child-id>",
		Short: "Show whether today's bonus was claimed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				st, err := d.LoginBonus.Status(cmd.Context(), childID)
				if err != nil {
					return err
				}
				return emit(cmd, opts, st, func(w io.Writer) error {
					claimed := "not yet"
					if st.ClaimedToday {
						claimed = "yes"
					}
					_, err := fmt.Fprintf(w, "Claimed today: %s\nConsecutive days: %d\n", claimed, st.ConsecutiveLoginDays)
					return err
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "claim <child-id>",
		Short: "Draw today's omikuji",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				res, err := d.LoginBonus.Claim(cmd.Context(), childID)
				if err != nil {
					return err
				}
				return emit(cmd, opts, res, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, res.Message)
					return err
				})
			})
		},
	})
	return cmd
}
