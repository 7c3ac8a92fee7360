package engine

import (
	"os"
	"strings"
)

// Header holds outbound header field values for a single command. Unlike
// net/http.Header it never canonicalizes casing — RFC 7540 requires
// lowercase field names on the wire — and it preserves every value for a
// repeated name so commands can honor the set-cookie fan-out rule
// (spec.md §4.5, §8: "Outbound set-cookie must emit one HPACK field per
// value (never joined)").
type Header map[string][]string

// Add appends value under the lower-cased name.
func (h Header) Add(name, value string) {
	name = strings.ToLower(name)
	h[name] = append(h[name], value)
}

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	v := h[strings.ToLower(name)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Status is a response status code. The executor accepts an int (rendered
// as its decimal ASCII form) or a pre-validated 3-digit string; any other
// shape is an implementation-defined error at command-execution time, per
// spec.md §4.3.
type Status = interface{}

// HandlerState is opaque state owned by a single stream and threaded
// through successive Handler calls for that stream (spec.md §3: "replaced
// on each handler invocation").
type HandlerState interface{}

// DataInfo describes one DATA delivery to Handler.Data.
type DataInfo struct {
	// Fin reports whether this delivery carries the client's END_STREAM.
	Fin bool
	// Length is the cumulative number of body bytes received, including
	// this delivery. It is set only when Fin is true and is zero on every
	// earlier delivery (spec.md §4.2).
	Length uint64
}

// Handler is the pluggable stream-handler contract from spec.md §6. The
// engine is the sole caller; a Handler must not block the connection's
// goroutine — long work belongs in a Spawn command.
type Handler interface {
	// Init is called once a client HEADERS block is fully reassembled.
	// It returns the commands to execute and the state to keep for this
	// stream. A stream created by a Push command is not passed to Init.
	Init(streamID uint32, req *Request, opts *Config) ([]Command, HandlerState)
	// Data is called for each DATA frame belonging to streamID.
	Data(streamID uint32, info DataInfo, body []byte, state HandlerState) ([]Command, HandlerState)
	// Info is called when an asynchronous message addressed to this
	// stream arrives (typically from a worker registered via Spawn).
	Info(streamID uint32, msg interface{}, state HandlerState) ([]Command, HandlerState)
	// Terminate is called exactly once per stream removed from the
	// table (spec.md §3 invariant 6), after the stream is gone. Panics
	// raised here are recovered and logged, never propagated.
	Terminate(streamID uint32, reason error, state HandlerState)
}

// Command is the closed, tagged sum the executor interprets (spec.md §9:
// "commands are a closed, tagged sum; unknown variants are a programming
// error, not runtime dispatch"). All concrete command types live in this
// file.
type Command interface {
	command()
}

// ErrorResponse sends a response only if local is still Idle; otherwise
// it is silently ignored (spec.md §4.3).
type ErrorResponse struct {
	Status  Status
	Headers Header
	Body    []byte
}

// Response sends a complete response: HEADERS (+ DATA if Body is
// non-empty), ending the stream's local side.
type Response struct {
	Status  Status
	Headers Header
	Body    []byte
}

// Headers starts a streaming response: HEADERS without END_STREAM.
type Headers struct {
	Status  Status
	Headers Header
}

// Data sends a DATA frame (split across multiple wire frames if needed).
// Valid only once local is NoFin (i.e. after a Headers command).
type Data struct {
	Fin   bool
	Bytes []byte
}

// SendFile streams a file's contents as DATA frames, per spec.md §4.4.
// Either Path or File must be set; if File is set, it is restored to its
// prior offset once streaming completes.
type SendFile struct {
	Fin    bool
	Offset int64
	N      int64 // number of bytes to send; <0 means "until EOF"
	Path   string
	File   *os.File
}

// Push synthesises a PUSH_PROMISE on the current stream for a fresh,
// server-initiated stream, and initialises that stream with remote
// already closed (spec.md §4.3).
type Push struct {
	Method  string
	Scheme  string
	Host    string
	Port    string
	Path    string
	Query   string
	Headers Header
}

// Flow is reserved for outbound flow-control credit management. Accepted
// and ignored in v1, per spec.md §4.3/§6.
type Flow struct {
	N int64
}

// Spawn registers a worker task in the connection's child table, keyed by
// PID, associated with the issuing stream. Run is executed on its own
// goroutine; Notify lets it deliver asynchronous messages back to the
// stream's Handler.Info.
type Spawn struct {
	PID   string
	Run   func(notify func(msg interface{}))
	Kill  func() // invoked if the connection or stream terminates first
}

// InternalError discards remaining commands and resets the stream with
// ErrCodeInternal.
type InternalError struct {
	Reason string
	Cause  error
}

// SwitchProtocol is accepted but unsupported over HTTP/2 (spec.md §4.3):
// the executor discards it and continues processing commands.
type SwitchProtocol struct {
	Protocol string
}

// Stop discards remaining commands and terminates the stream normally,
// via the graceful-termination path (spec.md §4.6).
type Stop struct{}

func (ErrorResponse) command()  {}
func (Response) command()       {}
func (Headers) command()        {}
func (Data) command()           {}
func (SendFile) command()       {}
func (Push) command()           {}
func (Flow) command()           {}
func (Spawn) command()          {}
func (InternalError) command()  {}
func (SwitchProtocol) command() {}
func (Stop) command()           {}
