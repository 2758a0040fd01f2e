package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/app/activity"
	"github.com/ganbari-quest/ganbari/internal/daemon"
)

func newChildCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Manage children",
	}

	var theme string
	add := &cobra.Command{
		Use:   "add <nickname> <age>",
		Short: "Register a child",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid age %q", args[1])
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				c, err := d.Catalog.CreateChild(cmd.Context(), activity.ChildInput{Nickname: args[0], Age: age, Theme: theme})
				if err != nil {
					return err
				}
				return emit(cmd, opts, c, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %s (id %d, age %d)\n", c.Nickname, c.ID, c.Age)
					return err
				})
			})
		},
	}
	add.Flags().StringVar(&theme, "theme", "", "UI theme color (default pink)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List children",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(opts, func(d *daemon.Daemon) error {
				children, err := d.Catalog.ListChildren(cmd.Context())
				if err != nil {
					return err
				}
				return emit(cmd, opts, children, func(w io.Writer) error {
					if len(children) == 0 {
						fmt.Fprintln(w, "No children yet. Run 'ganbari child add <nickname> <age>'.")
						return nil
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "ID\tNICKNAME\tAGE\tTHEME")
					for _, c := range children {
						fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", c.ID, c.Nickname, c.Age, c.Theme)
					}
					return tw.Flush()
				})
			})
		},
	})
	return cmd
}
