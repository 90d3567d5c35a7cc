package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var callArgs string

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-arguments]",
	Short: "Invoke a tool on the MCP server",
	Long: `Invokes a named tool and prints its text output. Arguments are passed as a
JSON object, either as the second positional argument or via --args:

  mcpauth call echo '{"message": "hello"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawArgs := callArgs
		if len(args) == 2 {
			rawArgs = args[1]
		}
		return runCall(cmd, args[0], rawArgs)
	},
}

func init() {
	callCmd.Flags().StringVar(&callArgs, "args", "", "tool arguments as a JSON object")
	rootCmd.AddCommand(callCmd)
}

// parseToolArgs decodes a JSON object into tool arguments. Empty input means
// no arguments.
func parseToolArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var arguments map[string]any
	if err := json.Unmarshal([]byte(raw), &arguments); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return arguments, nil
}

func runCall(cmd *cobra.Command, name, rawArgs string) error {
	arguments, err := parseToolArgs(rawArgs)
	if err != nil {
		return err
	}

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

	result, err := client.CallTool(ctx, name, arguments)
	if err != nil {
		return err
	}

	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			fmt.Fprintln(cmd.OutOrStdout(), text.Text)
		}
	}
	if result.IsError {
		return fmt.Errorf("tool %s reported an error", name)
	}
	return nil
}
