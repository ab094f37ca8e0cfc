package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"margsync/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client, err := ctx.dialClient()
			if err != nil {
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", statusError, "no (daemon unreachable)", colorize))
				return nil
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			printStatus(cmd, status, colorize)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, status *ipc.StatusResponse, colorize bool) {
	stdout := cmd.OutOrStdout()

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusOK
	if !status.Running {
		runningKind = statusWarn
	}
	fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))

	onlineKind := statusOK
	onlineDetail := "backend reachable"
	if !status.Online {
		onlineKind = statusWarn
		onlineDetail = "backend unreachable, queues held"
	}
	fmt.Fprintln(stdout, renderStatusLine("Connectivity", onlineKind, onlineDetail, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Clients", statusInfo, strconv.Itoa(status.AttachedClients), colorize))
	if status.PID > 0 {
		fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
	}
	if !status.LastSync.IsZero() {
		fmt.Fprintln(stdout, renderStatusLine("Last sync", statusInfo, status.LastSync.Local().Format("2006-01-02 15:04:05"), colorize))
	}
	if status.LastSyncError != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last sync error", statusError, status.LastSyncError, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Queues", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Reports", statusInfo, strconv.Itoa(status.PendingReports), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Resolutions", statusInfo, strconv.Itoa(status.PendingResolutions), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.QueueDBPath, colorize))
}
