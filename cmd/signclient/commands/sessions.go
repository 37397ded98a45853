package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"signclient/internal/crypto"
)

func sessionsCmd() *cobra.Command {
	var pairings bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions (or pairings)",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if pairings {
				fmt.Fprintln(w, "TOPIC\tACTIVE\tPEER\tEXPIRES")
				for _, p := range client.Pairings() {
					peer := "-"
					if p.PeerMetadata != nil {
						peer = p.PeerMetadata.Name
					}
					fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", p.Topic, p.Active, peer, expires(p.Expiry))
				}
				return w.Flush()
			}
			fmt.Fprintln(w, "TOPIC\tPEER\tFINGERPRINT\tACK\tEXPIRES")
			for _, s := range client.Sessions() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.Topic, s.Peer.Metadata.Name,
					crypto.Fingerprint(s.Peer.PublicKey), s.Acknowledged, expires(s.Expiry))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&pairings, "pairings", false, "list pairings instead")
	return cmd
}

func expires(unix int64) string {
	return time.Unix(unix, 0).Format(time.RFC3339)
}
