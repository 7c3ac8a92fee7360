package engine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/h2x/engine/frame"
	"github.com/h2x/engine/header"
)

// execute runs cmds against s in order, per spec.md §4.3's command table.
// A command whose preconditions on s.local aren't met is silently skipped
// (matching ErrorResponse/Response/Headers/Data's documented no-op cases).
// Any command whose execution fails at the stream scope (SendFile's file
// I/O, an explicit InternalError) resets the stream and stops processing
// the remaining commands, returning nil: the stream is already gone, so
// there is nothing left for the caller to do with it. A connection- or
// socket-scoped failure (an invalid status, an HPACK encode failure, a
// transport write failure) is returned instead, so the caller can tear
// down the whole connection.
func (c *Conn) execute(s *Stream, cmds []Command) *Error {
	for _, cmd := range cmds {
		var cerr *Error

		switch v := cmd.(type) {
		case ErrorResponse:
			if s.local != localIdle {
				continue
			}
			cerr = c.sendResponse(s, v.Status, v.Headers, v.Body)
		case Response:
			if s.local != localIdle {
				continue
			}
			cerr = c.sendResponse(s, v.Status, v.Headers, v.Body)
		case Headers:
			if s.local != localIdle {
				continue
			}
			cerr = c.sendHeadersOnly(s, v.Status, v.Headers)
		case Data:
			if s.local != localNoFin {
				continue
			}
			cerr = c.sendData(s, v.Fin, v.Bytes)
		case SendFile:
			if s.local != localNoFin {
				continue
			}
			cerr = c.sendFile(s, v)
		case Push:
			cerr = c.sendPush(s, v)
		case Flow:
			// Reserved for outbound flow-control credit; accepted, ignored.
		case Spawn:
			c.spawn(s.id, v)
		case InternalError:
			cerr = InternalErr(s.id, v.Reason, v.Cause)
		case SwitchProtocol:
			// Unsupported over HTTP/2; discard and keep going.
		case Stop:
			c.gracefulStop(s)
			return nil
		default:
			return InternalErr(s.id, fmt.Sprintf("unknown command type %T", cmd), nil)
		}

		if cerr == nil {
			continue
		}
		if cerr.Kind == KindStream || cerr.Kind == KindInternal {
			c.resetStream(s, cerr, true)
			return nil
		}
		return cerr
	}
	return nil
}

// buildHeaderFields renders status and h into an HPACK field list with
// :status first, everything else in stable name order, and one field per
// value so set-cookie's outbound fan-out rule (spec.md §8) falls out
// naturally: map values are never joined on the way out.
func (c *Conn) buildHeaderFields(status Status, h Header) ([]header.Field, *Error) {
	statusStr, err := renderStatus(status)
	if err != nil {
		return nil, ConnectionErrorFrom(frame.ErrCodeInternal, "invalid response status", err)
	}

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]header.Field, 0, 1+len(h))
	fields = append(fields, header.Field{Name: header.PseudoStatus, Value: statusStr})
	for _, name := range names {
		for _, v := range h[name] {
			fields = append(fields, header.Field{Name: name, Value: v})
		}
	}
	return fields, nil
}

func renderStatus(status Status) (string, error) {
	switch v := status.(type) {
	case int:
		if v < 100 || v > 999 {
			return "", fmt.Errorf("status %d out of range", v)
		}
		return strconv.Itoa(v), nil
	case string:
		if len(v) != 3 {
			return "", fmt.Errorf("invalid status %q", v)
		}
		for _, r := range v {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid status %q", v)
			}
		}
		return v, nil
	default:
		return "", fmt.Errorf("unsupported status type %T", status)
	}
}

func (c *Conn) sendResponse(s *Stream, status Status, h Header, body []byte) *Error {
	fields, serr := c.buildHeaderFields(status, h)
	if serr != nil {
		return serr
	}

	block, err := c.hdrEnc.EncodeBlock(fields)
	if err != nil {
		return ConnectionErrorFrom(frame.ErrCodeInternal, "HPACK encode failed", err)
	}

	endStream := len(body) == 0
	if err := c.codec.WriteHeaders(frame.HeadersFrameParam{
		StreamID:      s.id,
		BlockFragment: block,
		EndHeaders:    true,
		EndStream:     endStream,
	}); err != nil {
		return SocketErr(err)
	}

	if endStream {
		s.local = localFin
		return nil
	}
	s.local = localNoFin

	if err := c.codec.SplitData(s.id, true, body, c.remote.MaxFrameSize()); err != nil {
		return SocketErr(err)
	}
	s.local = localFin
	return nil
}

func (c *Conn) sendHeadersOnly(s *Stream, status Status, h Header) *Error {
	fields, serr := c.buildHeaderFields(status, h)
	if serr != nil {
		return serr
	}

	block, err := c.hdrEnc.EncodeBlock(fields)
	if err != nil {
		return ConnectionErrorFrom(frame.ErrCodeInternal, "HPACK encode failed", err)
	}

	if err := c.codec.WriteHeaders(frame.HeadersFrameParam{
		StreamID:      s.id,
		BlockFragment: block,
		EndHeaders:    true,
		EndStream:     false,
	}); err != nil {
		return SocketErr(err)
	}
	s.local = localNoFin
	return nil
}

func (c *Conn) sendData(s *Stream, fin bool, body []byte) *Error {
	if err := c.codec.SplitData(s.id, fin, body, c.remote.MaxFrameSize()); err != nil {
		return SocketErr(err)
	}
	if fin {
		s.local = localFin
	}
	return nil
}
