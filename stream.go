package engine

import "time"

// localState tracks how much of the response this engine has sent,
// per spec.md §3: "Idle | NoFin | Fin — whether we have completed
// sending response body."
type localState int

const (
	localIdle localState = iota
	localNoFin
	localFin
)

func (s localState) String() string {
	switch s {
	case localIdle:
		return "idle"
	case localNoFin:
		return "no_fin"
	case localFin:
		return "fin"
	default:
		return "unknown"
	}
}

// remoteState tracks whether the client has closed its send side.
type remoteState int

const (
	remoteNoFin remoteState = iota
	remoteFin
)

// Stream is the per-stream state the engine keeps between handler calls.
type Stream struct {
	id uint32

	handlerState HandlerState

	local  localState
	remote remoteState

	bodyLength uint64

	// startedAt is set when the stream's HEADERS frame arrives; it
	// drives the optional per-stream max-request timer (SPEC_FULL.md §9).
	startedAt time.Time

	// promised marks a server-initiated stream created by a Push
	// command: its remote side starts already closed.
	promised bool
}

func newClientStream(id uint32) *Stream {
	return &Stream{id: id, startedAt: time.Now()}
}

func newPromisedStream(id uint32) *Stream {
	return &Stream{id: id, remote: remoteFin, promised: true, startedAt: time.Now()}
}

// ID returns the stream identifier.
func (s *Stream) ID() uint32 { return s.id }

// canReceiveData reports whether DATA frames are still valid for this
// stream, per spec.md §3 invariant 2.
func (s *Stream) canReceiveData() bool { return s.remote == remoteNoFin }
