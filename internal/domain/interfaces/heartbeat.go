package interfaces

// Heartbeat calls registered handlers on every pulse.
type Heartbeat interface {
	OnPulse(handler func())
}
