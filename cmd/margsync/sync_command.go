package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"margsync/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask the daemon for an immediate flush pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncNow()
				if err != nil {
					return fmt.Errorf("trigger sync: %w", err)
				}
				stdout := cmd.OutOrStdout()
				if !resp.Ran {
					fmt.Fprintln(stdout, "Sync skipped (offline or already in progress)")
				} else {
					fmt.Fprintf(stdout, "Sync complete: %d delivered, %d rejected\n",
						resp.Delivered, resp.Rejected)
				}
				health, err := client.QueueHealth()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Pending: %d report(s), %d resolution(s)\n",
					health.Reports, health.PendingResolutions)
				return nil
			})
		},
	}
}
