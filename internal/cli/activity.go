package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/app/activity"
	"github.com/ganbari-quest/ganbari/internal/daemon"
	"github.com/ganbari-quest/ganbari/internal/domain"
)

func newActivityCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Manage the activity catalog",
	}
	cmd.AddCommand(newActivityAddCmd(opts), newActivityListCmd(opts), newActivityHideCmd(opts))
	return cmd
}

func newActivityAddCmd(opts *options) *cobra.Command {
	var (
		name, category, icon string
		points               int
		ageMin, ageMax       int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			in := activity.ActivityInput{Name: &name, Category: &cat, Icon: &icon, BasePoints: &points}
			if cmd.Flags().Changed("age-min") {
				in.AgeMin = &ageMin
			}
			if cmd.Flags().Changed("age-max") {
				in.AgeMax = &ageMax
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				a, err := d.Catalog.CreateActivity(cmd.Context(), in)
				if err != nil {
					return err
				}
				return emit(cmd, opts, a, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %s %s (id %d, %d points)\n", a.Icon, a.Name, a.ID, a.BasePoints)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Activity name")
	cmd.Flags().StringVar(&category, "category", "", "Category id or label")
	cmd.Flags().StringVar(&icon, "icon", "⭐", "Icon")
	cmd.Flags().IntVar(&points, "points", 5, "Base points (1-100)")
	cmd.Flags().IntVar(&ageMin, "age-min", 0, "Youngest age shown")
	cmd.Flags().IntVar(&ageMax, "age-max", 0, "Oldest age shown")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newActivityListCmd(opts *options) *cobra.Command {
	var (
		childID  int64
		category string
		all      bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List activities",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := domain.ActivityFilter{IncludeHidden: all}
			if category != "" {
				cat, err := domain.ParseCategory(category)
				if err != nil {
					return err
				}
				f.Category = cat
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				if childID > 0 {
					c, err := d.Catalog.GetChild(cmd.Context(), childID)
					if err != nil {
						return err
					}
					f.ChildAge = &c.Age
				}
				acts, err := d.Catalog.ListActivities(cmd.Context(), f)
				if err != nil {
					return err
				}
				return emit(cmd, opts, acts, func(w io.Writer) error {
					if len(acts) == 0 {
						fmt.Fprintln(w, "No activities. Run 'ganbari seed' for a starter catalog.")
						return nil
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "ID\tACTIVITY\tCATEGORY\tPOINTS\tVISIBLE")
					for _, a := range acts {
						fmt.Fprintf(tw, "%d\t%s %s\t%s\t%d\t%t\n", a.ID, a.Icon, a.Name, a.Category.Label(), a.BasePoints, a.Visible)
					}
					return tw.Flush()
				})
			})
		},
	}
	cmd.Flags().Int64Var(&childID, "child", 0, "Only activities suitable for this child's age")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().BoolVar(&all, "all", false, "Include hidden activities")
	return cmd
}

func newActivityHideCmd(opts *options) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "hide <activity-id>",
		Short: "Hide an activity (or show it again with --show)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "activity id")
			if err != nil {
				return err
			}
			return withDaemon(opts, func(d *daemon.Daemon) error {
				a, err := d.Catalog.SetVisibility(cmd.Context(), id, show)
				if err != nil {
					return err
				}
				return emit(cmd, opts, a, func(w io.Writer) error {
					state := "hidden"
					if a.Visible {
						state = "visible"
					}
					_, err := fmt.Fprintf(w, "%s is now %s\n", a.Name, state)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Make the activity visible instead")
	return cmd
}
