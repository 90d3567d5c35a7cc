package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools the MCP server advertises",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTools(cmd)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	if len(tools) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tools available.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d tool(s) available:\n\n", len(tools))
	for _, tool := range tools {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", tool.Name)
		if tool.Description != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", tool.Description)
		}
	}
	return nil
}
