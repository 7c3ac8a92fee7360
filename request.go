package engine

import (
	"net"
	"strconv"
	"strings"

	"github.com/h2x/engine/frame"
	"github.com/h2x/engine/header"
)

// BodyLengthUnknown marks a Request whose body length could not be
// determined from the headers (spec.md §4.5 step 4: "absent ⇒ unknown").
const BodyLengthUnknown int64 = -1

// Request is the connection-agnostic view of a client HEADERS block
// handed to Handler.Init, per spec.md §3/§4.5.
type Request struct {
	// ConnRef identifies the owning connection, stable for its lifetime.
	ConnRef string
	// PeerAddr is the transport's remote address.
	PeerAddr net.Addr
	// StreamID is this request's stream identifier.
	StreamID uint32
	// Proto is always "HTTP/2.0" for this engine.
	Proto string

	Method string
	Scheme string
	Host   string
	Port   string
	Path   string
	Query  string

	// Headers holds regular (non-pseudo) header values, already
	// duplicate-joined per header.Decoder's rules.
	Headers map[string]string

	HasBody bool
	// BodyLength is the Content-Length-derived body size, or
	// BodyLengthUnknown if absent/unparseable was handled upstream as an
	// RST_STREAM already — by the time a Request reaches Init, BodyLength
	// is always either a definite count or BodyLengthUnknown.
	BodyLength int64
}

// newRequest builds a Request from a decoded header block. It returns a
// *Error (KindStream) if a present-but-unparseable content-length should
// reset the stream per spec.md §4.5 step 4.
func newRequest(connRef string, peer net.Addr, streamID uint32, fin bool, dec header.Decoded) (*Request, *Error) {
	req := &Request{
		ConnRef:  connRef,
		PeerAddr: peer,
		StreamID: streamID,
		Proto:    "HTTP/2.0",
		Method:   dec.Pseudo["method"],
		Scheme:   dec.Pseudo["scheme"],
		Headers:  dec.Fields,
	}

	authority := dec.Pseudo["authority"]
	req.Host, req.Port = splitAuthority(authority)

	path := dec.Pseudo["path"]
	req.Path, req.Query = splitPath(path)

	length, hasBody, err := bodyLength(streamID, fin, dec.Fields["content-length"])
	if err != nil {
		return nil, err
	}
	req.HasBody = hasBody
	req.BodyLength = length

	return req, nil
}

func splitAuthority(authority string) (host, port string) {
	if authority == "" {
		return "", ""
	}
	h, p, err := net.SplitHostPort(authority)
	if err != nil {
		return authority, ""
	}
	return h, p
}

func splitPath(path string) (p, query string) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

func bodyLength(streamID uint32, fin bool, contentLength string) (int64, bool, *Error) {
	if fin {
		return 0, false, nil
	}
	if contentLength == "" {
		return BodyLengthUnknown, true, nil
	}
	n, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil || n < 0 {
		return 0, false, StreamErr(streamID, frame.ErrCodeProtocol, "malformed content-length")
	}
	return n, n > 0, nil
}
