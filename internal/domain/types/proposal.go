package types

// Proposal is a pending session proposal keyed by the JSON-RPC id of the
// wc_sessionPropose request that carried it.
type Proposal struct {
	ID                 int64                  `json:"id"`
	Expiry             int64                  `json:"expiry"`
	PairingTopic       string                 `json:"pairingTopic,omitempty"`
	Relays             []RelayProtocolOptions `json:"relays"`
	Proposer           Participant            `json:"proposer"`
	RequiredNamespaces Namespaces             `json:"requiredNamespaces"`
}
