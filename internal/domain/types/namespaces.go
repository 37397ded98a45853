package types

// Namespace lists the chains, methods and events granted for one chain family.
type Namespace struct {
	Chains  []string `json:"chains"`
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// Namespaces maps a chain family (e.g. "eip155") to its grants.
type Namespaces map[string]Namespace
