package types

// Session is a settled agreement between a controller and a non-controller.
// The topic is derived from both parties' X25519 keys.
type Session struct {
	Topic              string               `json:"topic"`
	Expiry             int64                `json:"expiry"`
	Relay              RelayProtocolOptions `json:"relay"`
	Acknowledged       bool                 `json:"acknowledged"`
	Controller         string               `json:"controller"`
	Namespaces         Namespaces           `json:"namespaces"`
	RequiredNamespaces Namespaces           `json:"requiredNamespaces"`
	Self               Participant          `json:"self"`
	Peer               Participant          `json:"peer"`
}
