package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"signclient/internal/crypto"
	"signclient/internal/domain"
	"signclient/internal/engine"
)

func pairCmd() *cobra.Command {
	var reject bool
	cmd := &cobra.Command{
		Use:   "pair <uri>",
		Short: "Join a pairing and approve (or reject) the proposal it carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposals := make(chan engine.Event, 1)
			off := client.On(engine.EventSessionProposal, func(ev engine.Event) {
				select {
				case proposals <- ev:
				default:
				}
			})
			defer off()

			pairing, err := client.Pair(cmd.Context(), engine.PairParams{URI: args[0]})
			if err != nil {
				return err
			}
			printf(cmd, "Paired: %s\n", pairing.Topic)

			ctx, cancel := waitContext(cmd)
			defer cancel()
			var ev engine.Event
			select {
			case ev = <-proposals:
			case <-ctx.Done():
				return fmt.Errorf("no proposal received: %w", ctx.Err())
			}
			proposal := ev.Params.(domain.Proposal)
			printf(cmd, "Proposal %d from %s (%s)\n", proposal.ID, proposal.Proposer.Metadata.Name, crypto.Fingerprint(proposal.Proposer.PublicKey))
			for key, ns := range proposal.RequiredNamespaces {
				printf(cmd, "  %s: chains=%s methods=%s events=%s\n", key,
					strings.Join(ns.Chains, ","), strings.Join(ns.Methods, ","), strings.Join(ns.Events, ","))
			}

			if reject {
				if err := client.Reject(cmd.Context(), engine.RejectParams{ID: proposal.ID, Reason: domain.ReasonUserRejected}); err != nil {
					return err
				}
				printf(cmd, "Rejected\n")
				return nil
			}
			approved, err := client.Approve(cmd.Context(), engine.ApproveParams{
				ID:         proposal.ID,
				Namespaces: proposal.RequiredNamespaces,
			})
			if err != nil {
				return err
			}
			session, err := approved.Acknowledged.Wait(ctx)
			if err != nil {
				return err
			}
			printf(cmd, "Session: %s\n", session.Topic)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the proposal instead of approving it")
	return cmd
}
