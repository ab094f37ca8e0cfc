package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"margsync/internal/ipc"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Queue citizen issue reports",
	}
	reportCmd.AddCommand(newReportAddCommand(ctx))
	return reportCmd
}

func newReportAddCommand(ctx *commandContext) *cobra.Command {
	var (
		categoryID  string
		lat         float64
		lng         float64
		email       string
		photoPath   string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a citizen report for delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(categoryID) == "" {
				return fmt.Errorf("--category is required")
			}
			photo, err := readPhoto(photoPath)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReportAdd(ipc.ReportAddRequest{
					CategoryID:    categoryID,
					Lat:           lat,
					Lng:           lng,
					ReporterEmail: email,
					Photo:         photo,
					Description:   description,
				})
				if err != nil {
					return fmt.Errorf("queue report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report queued with id %d; it will be submitted when the backend is reachable\n", resp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&categoryID, "category", "", "Issue category identifier")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the issue")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude of the issue")
	cmd.Flags().StringVar(&email, "email", "", "Reporter email address")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Path to the photo file")
	cmd.Flags().StringVar(&description, "description", "", "Free-form issue description")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("photo")
	return cmd
}

func readPhoto(path string) ([]byte, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("--photo is required")
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read photo %q: %w", trimmed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("photo %q is empty", trimmed)
	}
	return data, nil
}
