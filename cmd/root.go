// Package cmd implements the mcpauth command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mcpauth",
	Short: "Authenticated MCP client for AgentCore runtimes",
	Long: `mcpauth authenticates against an Amazon Cognito user pool and talks to
MCP servers that require Bearer tokens, refreshing tokens automatically
before they expire.

Configuration comes from ~/.mcpauth/config.yaml and MCPAUTH_* environment
variables. Credentials can be set inline or loaded from Secrets Manager.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
