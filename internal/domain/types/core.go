package types

import "fmt"

// Metadata describes an application taking part in a pairing or session.
type Metadata struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	URL         string   `json:"url" yaml:"url"`
	Icons       []string `json:"icons" yaml:"icons"`
}

// RelayProtocolOptions names the relay protocol a topic is reachable over.
type RelayProtocolOptions struct {
	Protocol string `json:"protocol"`
	Data     string `json:"data,omitempty"`
}

// Participant is one side of a proposal or session.
type Participant struct {
	PublicKey string   `json:"publicKey"`
	Metadata  Metadata `json:"metadata"`
}

// ErrorReason is the {code, message} pair carried by JSON-RPC errors and
// delete notices.
type ErrorReason struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error so a reason received from a peer can be returned as-is.
func (r ErrorReason) Error() string { return fmt.Sprintf("%s (code %d)", r.Message, r.Code) }
