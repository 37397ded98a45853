package expirer

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies what an expiry belongs to.
type Key interface {
	Target() string
}

// Topic keys pairings and sessions.
type Topic string

// Target returns "topic:<t>".
func (t Topic) Target() string { return "topic:" + string(t) }

// ID keys proposals by their request id.
type ID int64

// Target returns "id:<n>".
func (id ID) Target() string { return "id:" + strconv.FormatInt(int64(id), 10) }

// ParseTarget reverses Key.Target.
func ParseTarget(target string) (Key, error) {
	kind, value, ok := strings.Cut(target, ":")
	if !ok || value == "" {
		return nil, fmt.Errorf("invalid expirer target %q", target)
	}
	switch kind {
	case "topic":
		return Topic(value), nil
	case "id":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expirer target %q: %w", target, err)
		}
		return ID(n), nil
	default:
		return nil, fmt.Errorf("unknown expirer target type %q", kind)
	}
}
