package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/royalty-monitor/pkg/events"
)

func newNotifyCmd(a *app) *cobra.Command {
	var (
		typeName string
		userID   int64
		status   string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Signal running monitors that data changed",
		Long: "Notify writes a change event into the signal directory. Every " +
			"running watch picks it up and reloads.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := events.ParseType(typeName)
			if err != nil {
				return err
			}
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			path, err := events.WriteSignal(a.cfg.Signals.Dir, events.Event{
				Type:      eventType,
				UserID:    userID,
				Status:    status,
				Timestamp: time.Now(),
			})
			if err != nil {
				return fmt.Errorf("failed to write signal: %w", err)
			}

			a.log.Debug("signal written", "path", path, "type", eventType)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signal written: %s\n", path)
			return err
		},
	}

	cmd.Flags().StringVar(&typeName, "type", string(events.TypeMusic), "event type (music, profile)")
	cmd.Flags().Int64Var(&userID, "user", 0, "affected user id")
	cmd.Flags().StringVar(&status, "status", "", "new approval status")

	return cmd
}
