// Package uri formats and parses pairing URIs of the form
//
//	wc:<topic>@<version>?symKey=<hex>&relay-protocol=<p>[&relay-data=<d>]
package uri

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"signclient/internal/domain"
)

// Params are the five fields a pairing URI carries.
type Params struct {
	Protocol string
	Version  int
	Topic    string
	SymKey   string
	Relay    domain.RelayProtocolOptions
}

// Format renders p as a pairing URI.
func Format(p Params) string {
	q := url.Values{}
	q.Set("symKey", p.SymKey)
	q.Set("relay-protocol", p.Relay.Protocol)
	if p.Relay.Data != "" {
		q.Set("relay-data", p.Relay.Data)
	}
	return fmt.Sprintf("%s:%s@%d?%s", p.Protocol, p.Topic, p.Version, q.Encode())
}

// Parse decodes a pairing URI. Every field except relay-data is required.
func Parse(raw string) (Params, error) {
	protocol, rest, ok := strings.Cut(raw, ":")
	if !ok || protocol == "" {
		return Params{}, domain.MissingOrInvalid("pair uri protocol")
	}
	path, query, ok := strings.Cut(rest, "?")
	if !ok {
		return Params{}, domain.MissingOrInvalid("pair uri query")
	}
	topic, version, ok := strings.Cut(path, "@")
	if !ok || !isHex32(topic) {
		return Params{}, domain.MissingOrInvalid("pair uri topic")
	}
	v, err := strconv.Atoi(version)
	if err != nil || v <= 0 {
		return Params{}, domain.MissingOrInvalid("pair uri version")
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return Params{}, domain.MissingOrInvalid("pair uri query")
	}
	p := Params{
		Protocol: protocol,
		Version:  v,
		Topic:    topic,
		SymKey:   q.Get("symKey"),
		Relay: domain.RelayProtocolOptions{
			Protocol: q.Get("relay-protocol"),
			Data:     q.Get("relay-data"),
		},
	}
	if !isHex32(p.SymKey) {
		return Params{}, domain.MissingOrInvalid("pair uri symKey")
	}
	if p.Relay.Protocol == "" {
		return Params{}, domain.MissingOrInvalid("pair uri relay-protocol")
	}
	return p, nil
}

func isHex32(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) == 32
}
