package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"margsync/internal/ipc"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		photoPath    string
		categoryName string
		priority     string
	)

	cmd := &cobra.Command{
		Use:   "resolve <issue-id>",
		Short: "Queue photographic proof that a task is complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueID := strings.TrimSpace(args[0])
			if issueID == "" {
				return fmt.Errorf("issue id is required")
			}
			photo, err := readPhoto(photoPath)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ResolutionAdd(ipc.ResolutionAddRequest{
					IssueID:      issueID,
					Photo:        photo,
					CategoryName: categoryName,
					Priority:     priority,
				})
				if err != nil {
					return fmt.Errorf("queue resolution: %w", err)
				}
				stdout := cmd.OutOrStdout()
				if resp.AlreadyPending {
					fmt.Fprintf(stdout, "Warning: issue %s already has a resolution queued; this one will be submitted as well\n", issueID)
				}
				fmt.Fprintf(stdout, "Resolution queued with id %d for issue %s\n", resp.ID, issueID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&photoPath, "photo", "", "Path to the proof photo")
	cmd.Flags().StringVar(&categoryName, "category-name", "", "Task category name for display")
	cmd.Flags().StringVar(&priority, "priority", "", "Task priority for display")
	_ = cmd.MarkFlagRequired("photo")
	return cmd
}
