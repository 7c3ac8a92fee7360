package engine

import (
	"fmt"

	"github.com/h2x/engine/frame"
)

// Kind classifies an Error per spec.md §7's taxonomy.
type Kind int

const (
	// KindConnection invalidates the whole connection: GOAWAY, terminate
	// every stream, close the socket.
	KindConnection Kind = iota
	// KindStream is isolated to one stream: RST_STREAM, terminate that
	// stream, keep the connection.
	KindStream
	// KindInternal is a handler-raised exception or executor fault,
	// treated like KindStream with ErrCodeInternal.
	KindInternal
	// KindSocket is a transport-level failure; terminate without further I/O.
	KindSocket
	// KindStop is a peer-requested shutdown (GOAWAY received); terminate
	// without error after draining.
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection_error"
	case KindStream:
		return "stream_error"
	case KindInternal:
		return "internal_error"
	case KindSocket:
		return "socket_error"
	case KindStop:
		return "stop"
	default:
		return "unknown_error"
	}
}

// Error is the engine's single error type, carrying enough information for
// the connection loop to decide whether to emit GOAWAY or RST_STREAM, and
// to pass a sensible reason to Handler.Terminate.
type Error struct {
	Kind     Kind
	Code     frame.ErrCode
	StreamID uint32 // meaningful only for KindStream/KindInternal
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s(%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ConnectionError builds a KindConnection Error.
func ConnectionError(code frame.ErrCode, message string) *Error {
	return &Error{Kind: KindConnection, Code: code, Message: message}
}

// ConnectionErrorFrom wraps an arbitrary cause as a KindConnection Error.
func ConnectionErrorFrom(code frame.ErrCode, message string, cause error) *Error {
	return &Error{Kind: KindConnection, Code: code, Message: message, Cause: cause}
}

// StreamErr builds a KindStream Error for streamID.
func StreamErr(streamID uint32, code frame.ErrCode, message string) *Error {
	return &Error{Kind: KindStream, Code: code, StreamID: streamID, Message: message}
}

// InternalErr builds a KindInternal Error for streamID — the InternalError
// command and executor faults land here, always carrying ErrCodeInternal
// on the wire. A panic raised by Handler.Init, Data or Info is not
// recovered by the engine and does not become an InternalErr.
func InternalErr(streamID uint32, reason string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: frame.ErrCodeInternal, StreamID: streamID, Message: reason, Cause: cause}
}

// SocketErr builds a KindSocket Error; no frame should be sent for it.
func SocketErr(cause error) *Error {
	return &Error{Kind: KindSocket, Message: "transport failure", Cause: cause}
}

// StopErr builds a KindStop Error from a received GOAWAY.
func StopErr(message string) *Error {
	return &Error{Kind: KindStop, Message: message}
}
