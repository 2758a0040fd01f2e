package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/app/evaluation"
	"github.com/ganbari-quest/ganbari/internal/daemon"
	"github.com/ganbari-quest/ganbari/internal/domain"
)

func newEvaluateCmd(opts *options) *cobra.Command {
	var (
		childID int64
		weekOf  string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the weekly evaluation for the last full week",
		Long: `Evaluate every child for the last full Monday-Sunday week before today,
or before --week-of. Weeks already evaluated are skipped. Suitable for cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(opts, func(d *daemon.Daemon) error {
				at := time.Now()
				if weekOf != "" {
					t, err := domain.ParseDay(weekOf)
					if err != nil {
						return err
					}
					at = t
				}

				if childID > 0 {
					start, end := evaluation.WeekRange(at)
					ev, err := d.Evaluator.RunForChild(cmd.Context(), childID, start, end)
					if err != nil {
						return err
					}
					return emit(cmd, opts, ev, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "Child %d, week %s: +%d bonus points\n", childID, start, ev.BonusPoints)
						return err
					})
				}

				report, err := d.Evaluator.RunForWeekOf(cmd.Context(), at)
				if err != nil {
					return err
				}
				return emit(cmd, opts, report, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Week %s..%s: %d evaluated, %d already done (run %s)\n",
						report.WeekStart, report.WeekEnd, len(report.Results), len(report.Skipped), report.RunID)
					return err
				})
			})
		},
	}
	cmd.Flags().Int64Var(&childID, "child", 0, "Evaluate only this child")
	cmd.Flags().StringVar(&weekOf, "week-of", "", "Evaluate the full week before this day (YYYY-MM-DD)")
	return cmd
}

func newDecayCmd(opts *options) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Apply daily decay to idle categories",
		Long: `Apply one day of decay to every category a child has been idle in.
Decay is not idempotent: run it once per day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(opts, func(d *daemon.Daemon) error {
				var (
					report evaluation.DecayReport
					err    error
				)
				if day != "" {
					report, err = d.Decay.RunForDay(cmd.Context(), day)
				} else {
					report, err = d.Decay.RunToday(cmd.Context())
				}
				if err != nil {
					return err
				}
				return emit(cmd, opts, report, func(w io.Writer) error {
					n := 0
					for _, r := range report.Results {
						n += len(r.Decays)
					}
					_, err := fmt.Fprintf(w, "Decay for %s: %d children, %d categories decayed (run %s)\n",
						report.Day, len(report.Results), n, report.RunID)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "Day to decay for (YYYY-MM-DD, default today)")
	return cmd
}
