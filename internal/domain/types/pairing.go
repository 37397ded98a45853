package types

// Pairing is the long-lived encrypted channel established from a pairing URI.
// Expiry is in unix seconds.
type Pairing struct {
	Topic        string               `json:"topic"`
	Expiry       int64                `json:"expiry"`
	Relay        RelayProtocolOptions `json:"relay"`
	Active       bool                 `json:"active"`
	PeerMetadata *Metadata            `json:"peerMetadata,omitempty"`
}
