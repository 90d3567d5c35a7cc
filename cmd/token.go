package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenForce bool
	tokenInfo  bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain a Bearer access token",
	Long: `Authenticates against the configured Cognito user pool and prints a valid
access token to stdout, suitable for piping into other tools. A cached
token is reused while it is fresh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToken(cmd)
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenForce, "force", false, "force a refresh even if the token is fresh")
	tokenCmd.Flags().BoolVar(&tokenInfo, "info", false, "print token expiry details instead of the token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	manager := a.session.Manager()

	token, err := manager.GetValidToken(ctx)
	if err != nil {
		return fmt.Errorf("obtaining token: %w", err)
	}
	if tokenForce {
		if token, err = manager.ForceRefresh(ctx); err != nil {
			return fmt.Errorf("refreshing token: %w", err)
		}
	}

	if tokenInfo {
		info := manager.GetTokenInfo()
		if info == nil {
			return fmt.Errorf("no token information available")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Type:          %s\n", info.TokenType)
		fmt.Fprintf(cmd.OutOrStdout(), "Expires at:    %s\n", info.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(cmd.OutOrStdout(), "Expires in:    %s\n", info.ExpiresIn.Round(time.Second))
		fmt.Fprintf(cmd.OutOrStdout(), "Needs refresh: %t\n", info.NeedsRefresh)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
