package commands

import (
	"fmt"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"signclient/internal/crypto"
	"signclient/internal/domain"
	"signclient/internal/engine"
)

func connectCmd() *cobra.Command {
	var (
		chains, methods, events []string
		pairingTopic            string
		noQR                    bool
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Propose a session and wait for the peer to approve it",
		RunE: func(cmd *cobra.Command, args []string) error {
			required, err := namespacesFor(chains, methods, events)
			if err != nil {
				return err
			}
			res, err := client.Connect(cmd.Context(), engine.ConnectParams{
				RequiredNamespaces: required,
				PairingTopic:       pairingTopic,
			})
			if err != nil {
				return err
			}
			if res.URI != "" {
				printf(cmd, "%s\n", res.URI)
				if !noQR {
					qr, err := qrcode.New(res.URI, qrcode.Medium)
					if err != nil {
						return err
					}
					printf(cmd, "%s", qr.ToString(false))
				}
			}

			ctx, cancel := waitContext(cmd)
			defer cancel()
			session, err := res.Approval.Wait(ctx)
			if err != nil {
				return err
			}
			printf(cmd, "Session: %s\nPeer: %s (%s)\n", session.Topic, session.Peer.Metadata.Name, crypto.Fingerprint(session.Peer.PublicKey))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&chains, "chains", []string{"eip155:1"}, "required chain ids")
	cmd.Flags().StringSliceVar(&methods, "methods", []string{"eth_sign"}, "required methods")
	cmd.Flags().StringSliceVar(&events, "events", nil, "required events")
	cmd.Flags().StringVar(&pairingTopic, "pairing", "", "reuse an active pairing")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "do not render the URI as a QR code")
	return cmd
}

// namespacesFor groups chains by namespace; every namespace is granted all
// methods and events.
func namespacesFor(chains, methods, events []string) (domain.Namespaces, error) {
	out := domain.Namespaces{}
	for _, chain := range chains {
		if !domain.IsValidChainID(chain) {
			return nil, fmt.Errorf("invalid chain id %q", chain)
		}
		key := domain.ChainNamespace(chain)
		ns := out[key]
		ns.Chains = append(ns.Chains, chain)
		ns.Methods, ns.Events = methods, events
		out[key] = ns
	}
	return out, nil
}
