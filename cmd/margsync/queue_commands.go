package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"margsync/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline queues",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued reports and resolutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				listing, err := client.QueueList()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()

				if len(listing.Reports) == 0 && len(listing.Resolutions) == 0 {
					fmt.Fprintln(stdout, "Both queues are empty")
					return nil
				}

				if len(listing.Reports) > 0 {
					fmt.Fprintln(stdout, "Queued reports:")
					rows := make([][]string, 0, len(listing.Reports))
					for _, report := range listing.Reports {
						rows = append(rows, []string{
							strconv.FormatInt(report.ID, 10),
							humanizeLabel(report.CategoryID),
							formatLocation(report.Lat, report.Lng),
							formatPhotoSize(report.PhotoBytes),
							report.CreatedAt.Local().Format("2006-01-02 15:04"),
							yesNo(report.Claimed),
						})
					}
					table := renderTable(
						[]string{"ID", "Category", "Location", "Photo", "Queued", "In Flight"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
					)
					fmt.Fprintln(stdout, table)
				}

				if len(listing.Resolutions) > 0 {
					fmt.Fprintln(stdout, "Queued resolutions:")
					rows := make([][]string, 0, len(listing.Resolutions))
					for _, resolution := range listing.Resolutions {
						category := resolution.CategoryName
						if category == "" {
							category = "-"
						}
						rows = append(rows, []string{
							strconv.FormatInt(resolution.ID, 10),
							resolution.IssueID,
							category,
							humanizeLabel(resolution.Priority),
							formatPhotoSize(resolution.PhotoBytes),
							resolution.CreatedAt.Local().Format("2006-01-02 15:04"),
						})
					}
					table := renderTable(
						[]string{"ID", "Issue", "Category", "Priority", "Photo", "Queued"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					)
					fmt.Fprintln(stdout, table)
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue and database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.QueueHealth()
				if err != nil {
					return err
				}
				dbHealth, dbErr := client.DatabaseHealth()

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Queue Health", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Reports", statusInfo, strconv.Itoa(health.Reports), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Resolutions", statusInfo, strconv.Itoa(health.PendingResolutions), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Total", statusInfo, strconv.Itoa(health.Total), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if dbErr != nil {
					fmt.Fprintln(stdout, renderStatusLine("Database", statusError, dbErr.Error(), colorize))
					return nil
				}
				fmt.Fprintln(stdout, renderStatusLine("Path", statusInfo, dbHealth.DBPath, colorize))
				integrityKind := statusOK
				if !dbHealth.IntegrityCheck {
					integrityKind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine("Integrity", integrityKind, yesNo(dbHealth.IntegrityCheck), colorize))
				if len(dbHealth.MissingTables) > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Missing tables", statusError, strings.Join(dbHealth.MissingTables, ", "), colorize))
				}
				if dbHealth.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, dbHealth.Error, colorize))
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <report|resolution> <id>",
		Short: "Drop one queued record without submitting it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := strings.ToLower(strings.TrimSpace(args[0]))
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRemove(kind, id)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Removed {
					fmt.Fprintf(stdout, "Removed %s %d\n", kind, id)
				} else {
					fmt.Fprintf(stdout, "No %s with id %d\n", kind, id)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear both queues without --force")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm destructive removal of all queued records")
	return cmd
}
