package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes errors raised by the sign client.
type ErrorKind string

const (
	// KindMissingOrInvalid marks a malformed or absent parameter.
	KindMissingOrInvalid ErrorKind = "MISSING_OR_INVALID"
	// KindNotInitialized marks use of a component before Init.
	KindNotInitialized ErrorKind = "NOT_INITIALIZED"
	// KindNoMatchingTopic marks an unknown pairing or session topic.
	KindNoMatchingTopic ErrorKind = "NO_MATCHING_TOPIC"
	// KindNoMatchingID marks an unknown proposal or request id.
	KindNoMatchingID ErrorKind = "NO_MATCHING_ID"
	// KindMismatchedTopic marks an id recorded under a different topic.
	KindMismatchedTopic ErrorKind = "MISMATCHED_TOPIC"
	// KindExpired marks an entity whose expiry has passed.
	KindExpired ErrorKind = "EXPIRED"
	// KindRestoreWillOverride marks a restore attempted over live state.
	KindRestoreWillOverride ErrorKind = "RESTORE_WILL_OVERRIDE"
	// KindDeleted marks a peer- or self-initiated termination.
	KindDeleted ErrorKind = "DELETED"
)

var kindCodes = map[ErrorKind]int{
	KindMissingOrInvalid:    1000,
	KindNotInitialized:      1001,
	KindNoMatchingTopic:     1301,
	KindNoMatchingID:        1302,
	KindMismatchedTopic:     1303,
	KindExpired:             1400,
	KindRestoreWillOverride: 1500,
	KindDeleted:             6000,
}

// Error is the typed error every component returns. Compare with errors.Is
// against the sentinel values below; only Kind takes part in the match.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Code returns the numeric code sent to peers.
func (e *Error) Code() int { return kindCodes[e.Kind] }

// Reason converts the error into the wire form.
func (e *Error) Reason() ErrorReason {
	return ErrorReason{Code: e.Code(), Message: e.Error()}
}

// Sentinels for errors.Is.
var (
	ErrMissingOrInvalid    = &Error{Kind: KindMissingOrInvalid}
	ErrNotInitialized      = &Error{Kind: KindNotInitialized}
	ErrNoMatchingTopic     = &Error{Kind: KindNoMatchingTopic}
	ErrNoMatchingID        = &Error{Kind: KindNoMatchingID}
	ErrMismatchedTopic     = &Error{Kind: KindMismatchedTopic}
	ErrExpired             = &Error{Kind: KindExpired}
	ErrRestoreWillOverride = &Error{Kind: KindRestoreWillOverride}
	ErrDeleted             = &Error{Kind: KindDeleted}
)

// MissingOrInvalid reports a bad or absent parameter named what.
func MissingOrInvalid(what string) *Error {
	return &Error{Kind: KindMissingOrInvalid, Message: what}
}

// NotInitialized reports use of component before Init.
func NotInitialized(component string) *Error {
	return &Error{Kind: KindNotInitialized, Message: component}
}

// NoMatchingTopic reports an unknown topic within context.
func NoMatchingTopic(context, topic string) *Error {
	return &Error{Kind: KindNoMatchingTopic, Message: fmt.Sprintf("%s topic doesn't exist: %s", context, topic)}
}

// NoMatchingID reports an unknown id within context.
func NoMatchingID(context string, id int64) *Error {
	return &Error{Kind: KindNoMatchingID, Message: fmt.Sprintf("%s id doesn't exist: %d", context, id)}
}

// MismatchedTopic reports an id recorded under another topic.
func MismatchedTopic(context string, id int64) *Error {
	return &Error{Kind: KindMismatchedTopic, Message: fmt.Sprintf("%s topic mismatch for id: %d", context, id)}
}

// Expired reports that the entity named what has lapsed.
func Expired(what string) *Error {
	return &Error{Kind: KindExpired, Message: what}
}

// RestoreWillOverride reports a restore over non-empty state.
func RestoreWillOverride(component string) *Error {
	return &Error{Kind: KindRestoreWillOverride, Message: component}
}

// Deleted describes a termination; its Reason is the default disconnect payload.
func Deleted(what string) *Error {
	return &Error{Kind: KindDeleted, Message: what}
}

// ReasonUserRejected is the conventional reason for a declined proposal.
var ReasonUserRejected = ErrorReason{Code: 5000, Message: "User rejected."}

// ReasonOf maps any error to the wire form sent in JSON-RPC error replies.
func ReasonOf(err error) ErrorReason {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason()
	}
	var reason ErrorReason
	if errors.As(err, &reason) {
		return reason
	}
	return ErrorReason{Code: kindCodes[KindMissingOrInvalid], Message: err.Error()}
}
