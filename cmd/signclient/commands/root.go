package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"signclient/internal/app"
)

var (
	configPath string
	home       string
	relayURL   string
	logLevel   string
	timeout    time.Duration

	client *app.App
)

// Execute runs the CLI until ctx is cancelled or the command finishes.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:          "signclient",
		Short:        "Negotiate encrypted sessions with a peer over a relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home, cfg.Storage.Path = home, home
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			log, err := app.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			if client, err = app.New(cmd.Context(), cfg, log); err != nil {
				return err
			}
			return client.Init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if client == nil {
				return nil
			}
			return client.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/config.yaml)")
	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.signclient)")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay URL (e.g. ws://127.0.0.1:8080/ws)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the peer")

	root.AddCommand(connectCmd(), pairCmd(), listenCmd(), sessionsCmd(), pingCmd(), requestCmd(), disconnectCmd())
	return root.ExecuteContext(ctx)
}

func waitContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
