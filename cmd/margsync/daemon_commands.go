package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the margsync background daemon",
	}

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))

	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				client.Close()
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			launchArgs := []string{}
			if ctx.configFlag != nil {
				if path := strings.TrimSpace(*ctx.configFlag); path != "" {
					launchArgs = append(launchArgs, "--config", path)
				}
			}
			proc := exec.Command(exe, launchArgs...)
			proc.Stdout = nil
			proc.Stderr = nil
			if err := proc.Start(); err != nil {
				return fmt.Errorf("launch daemon: %w", err)
			}
			if err := proc.Process.Release(); err != nil {
				return fmt.Errorf("detach daemon: %w", err)
			}

			fmt.Fprintln(stdout, "Daemon launching...")
			socket := ctx.socketPath()
			deadline := time.Now().Add(10 * time.Second)
			for time.Now().Before(deadline) {
				if client, err := ctx.dialClient(); err == nil {
					client.Close()
					fmt.Fprintln(stdout, "Daemon started")
					return nil
				}
				time.Sleep(200 * time.Millisecond)
			}
			return fmt.Errorf("daemon did not come up on %s within 10s", socket)
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the margsync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()

			if _, err := client.Stop(); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

// daemonExecutable resolves the margsyncd binary, preferring one installed
// alongside the CLI.
func daemonExecutable() (string, error) {
	self, err := os.Executable()
	if err == nil {
		sibling := filepath.Join(filepath.Dir(self), "margsyncd")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("margsyncd")
	if err != nil {
		return "", fmt.Errorf("locate margsyncd binary: %w", err)
	}
	return path, nil
}
