package protocol

import "fmt"

// Kind identifies which member of the error taxonomy an Error belongs to.
type Kind uint8

const (
	KindUnknown           Kind = iota
	KindIllegalArgument        // bad endpoint string, empty endpoints, nil cache name
	KindIllegalState           // Send/Connect called in the wrong router state
	KindConnectionFailed       // TCP/TLS dial failed
	KindHandshakeFailed        // protocol/version negotiation rejected
	KindAuthFailed             // credentials rejected
	KindLostConnection         // session died mid-request or before response
	KindOperationError         // server returned a non-zero status
	KindSerialization          // codec refused a value/type combination
)

func (k Kind) String() string {
	switch k {
	case KindIllegalArgument:
		return "IllegalArgument"
	case KindIllegalState:
		return "IllegalState"
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindHandshakeFailed:
		return "HandshakeFailed"
	case KindAuthFailed:
		return "AuthFailed"
	case KindLostConnection:
		return "LostConnection"
	case KindOperationError:
		return "OperationError"
	case KindSerialization:
		return "SerializationError"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by every operation in this module.
// It wraps a Kind, a human-readable message, and (for KindOperationError
// only) the server-reported status code.
type Error struct {
	Kind       Kind
	Msg        string
	ServerCode int32 // only set for KindOperationError
}

func (e *Error) Error() string {
	if e.Kind == KindOperationError {
		return fmt.Sprintf("%s (server code %d): %s", e.Kind, e.ServerCode, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// NewError creates a new Error with the given kind and message.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewOperationError creates a KindOperationError carrying the server's
// status code and message, surfaced unmodified to the caller per spec §7.
func NewOperationError(serverCode int32, msg string) *Error {
	return &Error{Kind: KindOperationError, Msg: msg, ServerCode: serverCode}
}

// Is reports whether err is a *Error of the given kind. Used by the router
// to decide whether to retry (only KindLostConnection triggers failover).
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
