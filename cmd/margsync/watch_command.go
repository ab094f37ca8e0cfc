package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"margsync/internal/bus"
	"margsync/internal/notify"
	"margsync/internal/session"
)

// newWatchCommand attaches to the daemon's message bus, answers credential
// requests from the persisted session, and streams sync outcomes until
// interrupted.
func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream sync outcomes and serve credentials to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			storage := session.NewStorage(cfg.SessionPath())
			tokenFn := func() string {
				token, err := storage.Load()
				if err != nil {
					return ""
				}
				return token
			}

			client, err := bus.Attach(cfg.BusSocketPath(), tokenFn)
			if err != nil {
				return fmt.Errorf("attach to daemon bus: %w", err)
			}
			defer client.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			stdout := cmd.OutOrStdout()
			fmt.Fprintln(stdout, "Watching sync outcomes (ctrl-c to stop)")

			for {
				select {
				case <-signalCtx.Done():
					return nil
				case <-client.Done():
					fmt.Fprintln(stdout, "Daemon closed the bus connection")
					return nil
				case evt, ok := <-client.Events():
					if !ok {
						fmt.Fprintln(stdout, "Daemon closed the bus connection")
						return nil
					}
					fmt.Fprintln(stdout, formatEvent(evt))
				}
			}
		},
	}
}

func formatEvent(evt notify.Event) string {
	subject := string(evt.Subject)
	switch evt.Kind {
	case notify.KindSynced:
		return fmt.Sprintf("synced: %s %s reached the server", subject, evt.SubjectID)
	case notify.KindFailed:
		reason := evt.Reason
		if reason == "" {
			reason = "rejected by server"
		}
		return fmt.Sprintf("failed: %s %s dropped (%s)", subject, evt.SubjectID, reason)
	default:
		return fmt.Sprintf("%s: %s %s", evt.Kind, subject, evt.SubjectID)
	}
}
