package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
	"github.com/0xmhha/royalty-monitor/pkg/display"
)

// errUserRequired is returned by artist views called without a user.
var errUserRequired = errors.New("--user must be a positive artist id")

// newRootCmd creates the top-level command and registers every subcommand
// against a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "royalty-monitor",
		Short:         "Performance reports for licensed music",
		Long:          "Royalty Monitor counts how often licensees selected each work in their log sheets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().BoolVar(&a.offline, "offline", false, "read export files instead of the API")
	root.PersistentFlags().StringVar(&a.format, "format", "", "output format (table, json, simple)")

	root.AddCommand(
		newPerformanceCmd(a),
		newArtistCmd(a),
		newTrackCmd(a),
		newTracksCmd(a),
		newDashboardCmd(a),
		newWatchCmd(a),
		newNotifyCmd(a),
		newCacheCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)

	return root
}

func newPerformanceCmd(a *app) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Show the admin performance overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if top <= 0 {
				top = a.cfg.Performance.TopWorks
			}

			snap, result, err := a.fetch(cmd.Context(), 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			f := a.formatter(out)

			if err := f.FormatSummary(out, display.NewSummary("Performance Overview", result, snap.FetchedAt, snap.Degraded)); err != nil {
				return err
			}
			if result.Empty() {
				return nil
			}

			if err := f.FormatTopWorks(out, "Top Songs", result.TopWorks(top)); err != nil {
				return err
			}
			if err := f.FormatCounts(out, "Top Artists", "Artist", result.TopArtists(top)); err != nil {
				return err
			}
			if err := f.FormatCounts(out, "Top Companies", "Company", result.TopCompanies(top)); err != nil {
				return err
			}
			return f.FormatTimeline(out, result.Timeline(a.cfg.Performance.TimelineWindow))
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "rows per ranking (default: performance.top_works)")

	return cmd
}

func newArtistCmd(a *app) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "artist",
		Short: "Show the performance of one artist's catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errUserRequired
			}
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			snap, result, err := a.fetch(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			f := a.formatter(out)
			title := fmt.Sprintf("Artist %d Performance", userID)

			if err := f.FormatSummary(out, display.NewSummary(title, result, snap.FetchedAt, snap.Degraded)); err != nil {
				return err
			}
			if result.Empty() {
				return nil
			}

			if err := f.FormatTopWorks(out, "Top Songs", result.TopWorks(a.cfg.Performance.ChartWorks)); err != nil {
				return err
			}
			if err := f.FormatCounts(out, "Companies", "Company", result.TopCompanies(a.cfg.Performance.TopWorks)); err != nil {
				return err
			}
			if err := f.FormatTimeline(out, result.Timeline(a.cfg.Performance.TimelineWindow)); err != nil {
				return err
			}
			return f.FormatTopWorks(out, "Song Details", aggregator.CatalogPerformance(snap.Works, result))
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "artist user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newTrackCmd(a *app) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "track <work-id>",
		Short: "Show which companies selected a work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || workID <= 0 {
				return fmt.Errorf("invalid work id %q", args[0])
			}
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			_, result, err := a.fetch(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			breakdown := result.Breakdown(workID)
			if len(breakdown) == 0 && a.cfg.Display.Format != string(display.FormatJSON) {
				_, err := fmt.Fprintf(out, "No selections recorded for work %d.\n", workID)
				return err
			}

			title := fmt.Sprintf("%s: Selections by Company", result.ByWork[workID].Title)
			return a.formatter(out).FormatCounts(out, title, "Company", breakdown)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "restrict to an artist's works")

	return cmd
}

func newTracksCmd(a *app) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "tracks [query]",
		Short: "List selected works, optionally filtered by title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			snap, result, err := a.fetch(cmd.Context(), userID)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			rows := display.NewTrackRows(result.Tracks(query), snap.Works, result)

			out := cmd.OutOrStdout()
			return a.formatter(out).FormatTracks(out, rows)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "restrict to an artist's works")

	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show an artist's catalogue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errUserRequired
			}
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			snap, _, err := a.fetch(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return a.formatter(out).FormatDashboard(out, aggregator.Summarize(snap.Works, snap.Records))
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "artist user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "royalty-monitor %s\n", version)
			return err
		},
	}
}
