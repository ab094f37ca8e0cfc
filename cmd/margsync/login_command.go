package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"margsync/internal/session"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the worker bearer token for authenticated submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			value := strings.TrimSpace(token)
			if value == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Bearer token: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return fmt.Errorf("token must not be empty")
			}

			storage := session.NewStorage(cfg.SessionPath())
			if err := storage.Save(value); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token (prompted when omitted)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored worker session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			storage := session.NewStorage(cfg.SessionPath())
			if err := storage.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
			return nil
		},
	}
}
