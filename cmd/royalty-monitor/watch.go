package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/royalty-monitor/pkg/display"
	"github.com/0xmhha/royalty-monitor/pkg/events"
	"github.com/0xmhha/royalty-monitor/pkg/monitor"
	"github.com/0xmhha/royalty-monitor/pkg/watcher"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

func newWatchCmd(a *app) *cobra.Command {
	var (
		userID   int64
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show performance data live",
		Long: "Watch reloads the performance view periodically and whenever a " +
			"change signal arrives in the signal directory (see notify).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if interval <= 0 {
				interval = a.cfg.Performance.RefreshInterval
			}

			return a.watch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), userID, interval)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "watch an artist's view instead of the admin view")
	cmd.Flags().DurationVar(&interval, "refresh", 0, "refresh interval (default: performance.refresh_interval)")

	return cmd
}

// watch runs the live monitor until ctx is cancelled.
func (a *app) watch(ctx context.Context, out, errOut io.Writer, userID int64, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := isTerminal(out)
	if interactive {
		// Only show errors while the screen is redrawn
		quiet := a.cfg.Logging
		quiet.Level = "error"
		a.log = newLogger(quiet, errOut)
	}

	cache := a.openCache()
	defer a.closeCache(cache)

	loader, err := a.newLoader(userID, cache)
	if err != nil {
		return err
	}

	bus := events.NewBus(a.log)
	defer bus.Close()

	// The watcher skips missing directories
	if err := os.MkdirAll(a.cfg.Signals.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create signal directory: %w", err)
	}

	w, err := watcher.New(watcher.Config{
		DebounceInterval: a.cfg.Signals.Debounce,
		Extensions:       []string{events.SignalExt},
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			a.log.Error("failed to close watcher", "error", err)
		}
	}()

	if err := w.Start(ctx, []string{a.cfg.Signals.Dir}); err != nil {
		return fmt.Errorf("failed to watch signal directory: %w", err)
	}

	bridge := events.NewBridge(bus, events.BridgeConfig{
		Dir:       a.cfg.Signals.Dir,
		Retention: a.cfg.Signals.Retention,
	}, a.log)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := bridge.Run(egCtx, w.Events()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		for {
			select {
			case <-egCtx.Done():
				return nil
			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				a.log.Warn("signal watcher error", "error", err)
			}
		}
	})
	defer func() {
		cancel()
		if err := eg.Wait(); err != nil {
			a.log.Error("signal bridge failed", "error", err)
		}
	}()

	mon, err := monitor.New(monitor.Config{
		ScopeUserID:     userID,
		RefreshInterval: interval,
		TopN:            a.cfg.Performance.TopWorks,
		TimelineWindow:  a.cfg.Performance.TimelineWindow,
		Location:        a.location(),
	}, loader, bus, a.log)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer func() {
		if err := mon.Close(); err != nil {
			a.log.Error("failed to close monitor", "error", err)
		}
	}()

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	f := a.formatter(out)
	title := "Live Performance Monitor"
	if userID != 0 {
		title = fmt.Sprintf("Live Performance Monitor - Artist %d", userID)
	}

	for {
		select {
		case <-ctx.Done():
			if a.cfg.Display.Format != string(display.FormatJSON) {
				fmt.Fprintln(out, "\nStopping monitor...")
			}
			return nil

		case update, ok := <-mon.Updates():
			if !ok {
				return nil
			}
			if err := a.renderUpdate(out, f, title, update, interactive, interval); err != nil {
				return err
			}
		}
	}
}

// renderUpdate draws one monitor update.
func (a *app) renderUpdate(out io.Writer, f display.Formatter, title string, update monitor.Update, interactive bool, interval time.Duration) error {
	if a.cfg.Display.Format != string(display.FormatJSON) {
		if interactive {
			fmt.Fprint(out, clearScreen)
			fmt.Fprintf(out, "%s - Press Ctrl+C to stop | Refresh: %s\n", title, interval)
			fmt.Fprintln(out, strings.Repeat("─", 80))
		}

		fmt.Fprintf(out, "Updated %s (%s) | Selections %+d | Log sheets %+d | Works %+d\n",
			update.Timestamp.Format("15:04:05"),
			update.Reason,
			update.Delta.Selections,
			update.Delta.Records,
			update.Delta.Works)
	}

	if err := f.FormatSummary(out, display.NewSummary(title, update.Result, update.FetchedAt, update.Degraded)); err != nil {
		return err
	}
	if update.Result.Empty() {
		return nil
	}

	if err := f.FormatTopWorks(out, "Top Songs", update.TopWorks); err != nil {
		return err
	}
	return f.FormatTimeline(out, update.Timeline)
}
