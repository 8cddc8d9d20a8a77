package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/0xmhha/royalty-monitor/pkg/snapshot"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached snapshots",
	}

	cmd.AddCommand(
		newCacheListCmd(a),
		newCacheClearCmd(a),
	)

	return cmd
}

func newCacheListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cacheStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.closeCache(store)

			entries, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "No cached snapshots.")
				return err
			}
			return writeCacheEntries(out, entries)
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [key...]",
		Short: "Delete cached snapshots (all when no key is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cacheStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.closeCache(store)

			keys := args
			if len(keys) == 0 {
				entries, err := store.List()
				if err != nil {
					return err
				}
				for _, e := range entries {
					keys = append(keys, e.Key)
				}
			}

			for _, key := range keys {
				if err := store.Delete(key); err != nil {
					return fmt.Errorf("failed to clear %s: %w", key, err)
				}
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d snapshot(s).\n", len(keys))
			return err
		},
	}
}

// cacheStore opens the snapshot store for the cache commands, which cannot
// work without it.
func (a *app) cacheStore(stderr io.Writer) (snapshot.Store, error) {
	if err := a.init(stderr); err != nil {
		return nil, err
	}

	store, err := snapshot.New(snapshot.Config{
		DBPath:  a.cfg.Storage.DBPath,
		Timeout: a.cfg.Storage.Timeout,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}
	return store, nil
}

// writeCacheEntries renders the cache index as a table.
func writeCacheEntries(out io.Writer, entries []snapshot.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "KEY\tLOG SHEETS\tWORKS\tFETCHED\tSAVED"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "---\t----------\t-----\t-------\t-----"); err != nil {
		return fmt.Errorf("failed to write header separator: %w", err)
	}

	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Key,
			humanize.Comma(int64(e.Records)),
			humanize.Comma(int64(e.Works)),
			humanize.Time(e.FetchedAt),
			humanize.Time(e.SavedAt),
		); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	return w.Flush()
}
