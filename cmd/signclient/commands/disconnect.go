package commands

import (
	"github.com/spf13/cobra"

	"signclient/internal/domain"
	"signclient/internal/engine"
)

func disconnectCmd() *cobra.Command {
	var (
		code    int
		message string
	)
	cmd := &cobra.Command{
		Use:   "disconnect <topic>",
		Short: "End a session or pairing and notify the peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := engine.DisconnectParams{Topic: args[0]}
			if message != "" {
				p.Reason = &domain.ErrorReason{Code: code, Message: message}
			}
			if err := client.Disconnect(cmd.Context(), p); err != nil {
				return err
			}
			printf(cmd, "Disconnected %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&code, "code", 6000, "reason code sent with --message")
	cmd.Flags().StringVar(&message, "message", "", "reason message (default: DELETED)")
	return cmd
}
