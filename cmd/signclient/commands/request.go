package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"signclient/internal/domain"
	"signclient/internal/engine"
)

func requestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request <topic> <chainId> <method> [params-json]",
		Short: "Send a session request and print the result",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params json.RawMessage
			if len(args) == 4 {
				if !json.Valid([]byte(args[3])) {
					return fmt.Errorf("params must be valid JSON")
				}
				params = json.RawMessage(args[3])
			}
			ctx, cancel := waitContext(cmd)
			defer cancel()
			result, err := client.Request(ctx, engine.RequestParams{
				Topic:   args[0],
				ChainID: args[1],
				Request: domain.RequestArguments{Method: args[2], Params: params},
			})
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", result)
			return nil
		},
	}
}
