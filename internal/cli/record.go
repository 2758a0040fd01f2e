package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/app/activity"
	"github.com/ganbari-quest/ganbari/internal/daemon"
)

func newRecordCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "record <child-id> <activity-id>",
		Short: "Record an activity for today",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			actID, err := parseID(args[1], "activity id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				res, err := d.Recorder.Record(cmd.Context(), childID, actID)
				if err != nil {
					return err
				}
				return emit(cmd, opts, res, func(w io.Writer) error {
					fmt.Fprintf(w, "Recorded %s (log %d): %d points", res.ActivityName, res.ID, res.TotalPoints)
					if res.StreakBonus > 0 {
						fmt.Fprintf(w, " incl. +%d for a %d-day streak", res.StreakBonus, res.StreakDays)
					}
					fmt.Fprintf(w, "\nCancelable until %s\n", res.CancelableUntil.Local().Format("15:04:05"))
					return nil
				})
			})
		},
	}
}

func newCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <log-id>",
		Short: "Cancel a just-recorded activity log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logID, err := parseID(args[0], "log id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				res, err := d.Recorder.Cancel(cmd.Context(), logID)
				if err != nil {
					return err
				}
				return emit(cmd, opts, res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Cancelled log %d, %d points refunded\n", logID, res.RefundedPoints)
					return err
				})
			})
		},
	}
}

func newLogsCmd(opts *options) *cobra.Command {
	var period, from, to string
	cmd := &cobra.Command{
		Use:   "logs <child-id>",
		Short: "List recorded activities with a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			childID, err := parseID(args[0], "child id")
			if err != nil {
				return err
			}
			p, err := activity.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				res, err := d.Recorder.Logs(cmd.Context(), childID, activity.LogQuery{Period: p, From: from, To: to})
				if err != nil {
					return err
				}
				return emit(cmd, opts, res, func(w io.Writer) error {
					if len(res.Logs) == 0 {
						fmt.Fprintln(w, "No activities in this period.")
						return nil
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "ID\tDATE\tACTIVITY\tCATEGORY\tPOINTS\tSTREAK")
					for _, l := range res.Logs {
						fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%d\t%d\n",
							l.ID, l.RecordedDate, l.ActivityIcon, l.ActivityName,
							l.Category.Label(), l.Points+l.StreakBonus, l.StreakDays)
					}
					if err := tw.Flush(); err != nil {
						return err
					}
					fmt.Fprintf(w, "\n%d activities, %d points\n", res.Summary.TotalCount, res.Summary.TotalPoints)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "week", "week, month or year")
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD), overrides --period")
	cmd.Flags().StringVar(&to, "to", "", "Last day (YYYY-MM-DD)")
	return cmd
}
