package domain

import (
	"slices"
	"strings"
)

// IsValidChainID reports whether id has the "<namespace>:<reference>" form.
func IsValidChainID(id string) bool {
	ns, ref, ok := strings.Cut(id, ":")
	return ok && ns != "" && ref != "" && !strings.Contains(ref, ":")
}

// ChainNamespace returns the namespace part of a chain id.
func ChainNamespace(id string) string {
	ns, _, _ := strings.Cut(id, ":")
	return ns
}

// IsValidNamespaces reports whether every entry lists at least one chain,
// every chain belongs to its key, and no method or event name is empty.
func IsValidNamespaces(namespaces Namespaces) bool {
	if len(namespaces) == 0 {
		return false
	}
	for key, ns := range namespaces {
		if key == "" || len(ns.Chains) == 0 {
			return false
		}
		for _, chain := range ns.Chains {
			if !IsValidChainID(chain) || ChainNamespace(chain) != key {
				return false
			}
		}
		if slices.Contains(ns.Methods, "") || slices.Contains(ns.Events, "") {
			return false
		}
	}
	return true
}

// SatisfiesNamespaces reports whether namespaces grant everything required asks for.
func SatisfiesNamespaces(required, namespaces Namespaces) bool {
	for key, want := range required {
		got, ok := namespaces[key]
		if !ok {
			return false
		}
		if !containsAll(got.Chains, want.Chains) ||
			!containsAll(got.Methods, want.Methods) ||
			!containsAll(got.Events, want.Events) {
			return false
		}
	}
	return true
}

// HasChain reports whether chainID is granted by namespaces.
func HasChain(namespaces Namespaces, chainID string) bool {
	if !IsValidChainID(chainID) {
		return false
	}
	ns, ok := namespaces[ChainNamespace(chainID)]
	return ok && slices.Contains(ns.Chains, chainID)
}

// HasMethod reports whether method may be requested on chainID.
func HasMethod(namespaces Namespaces, chainID, method string) bool {
	return HasChain(namespaces, chainID) &&
		slices.Contains(namespaces[ChainNamespace(chainID)].Methods, method)
}

// HasEvent reports whether event may be emitted on chainID.
func HasEvent(namespaces Namespaces, chainID, event string) bool {
	return HasChain(namespaces, chainID) &&
		slices.Contains(namespaces[ChainNamespace(chainID)].Events, event)
}

// IsValidRelays reports whether each relay names a protocol. No relays is valid.
func IsValidRelays(relays []RelayProtocolOptions) bool {
	for _, r := range relays {
		if r.Protocol == "" {
			return false
		}
	}
	return true
}

// IsValidErrorReason reports whether reason carries a code and message.
func IsValidErrorReason(reason ErrorReason) bool {
	return reason.Code != 0 && reason.Message != ""
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}
