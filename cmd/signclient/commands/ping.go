package commands

import (
	"time"

	"github.com/spf13/cobra"

	"signclient/internal/engine"
)

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping <topic>",
		Short: "Ping the peer of a session or pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := waitContext(cmd)
			defer cancel()
			start := time.Now()
			if err := client.Ping(ctx, engine.PingParams{Topic: args[0]}); err != nil {
				return err
			}
			printf(cmd, "pong in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
