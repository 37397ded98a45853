package domain

import "time"

// Lifetimes of the negotiated entities.
const (
	ProposalTTL       = 5 * time.Minute
	PendingPairingTTL = 5 * time.Minute
	ActivePairingTTL  = 30 * 24 * time.Hour
	SessionTTL        = 7 * 24 * time.Hour
	DefaultExpiryTTL  = 24 * time.Hour
)

// DefaultRelayProtocol is used when a caller names no relay.
const DefaultRelayProtocol = "irn"

// CalcExpiry returns now+ttl in unix seconds.
func CalcExpiry(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).Unix()
}

// IsExpired reports whether expiry (unix seconds) is at or before now.
func IsExpired(now time.Time, expiry int64) bool {
	return !now.Before(time.Unix(expiry, 0))
}

// StoragePrefix and StorageVersion form every persisted key.
const (
	StoragePrefix  = "wc@2:client:"
	StorageVersion = "0.3"
)

// StorageKey returns the persisted key for the component called name.
func StorageKey(name string) string {
	return StoragePrefix + StorageVersion + "//" + name
}
