package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/daemon"
	"github.com/ganbari-quest/ganbari/internal/domain"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <child-id>",
		Short: "Show a child's level and category status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				st, err := d.Status.Get(cmd.Context(), childID)
				if err != nil {
					return err
				}
				return emit(cmd, opts, st, func(w io.Writer) error {
					fmt.Fprintf(w, "Lv.%d %s (%.1f to next level, %s)\n\n",
						st.Level, st.LevelTitle, st.ExpToNextLevel, st.CharacterType)
					tw := newTable(w)
					fmt.Fprintln(tw, "CATEGORY\tVALUE\tDEVIATION\tSTARS\tTREND")
					for _, cat := range domain.Categories() {
						s := st.Statuses[cat]
						fmt.Fprintf(tw, "%s\t%.1f\t%d\t%s\t%s\n",
							cat.Label(), s.Value, s.DeviationScore, strings.Repeat("★", s.Stars), s.Trend)
					}
					return tw.Flush()
				})
			})
		},
	}
}
