package engine

import (
	"bytes"
	"io"

	"github.com/h2x/engine/frame"
)

// continuationState holds the in-progress header block while the engine is
// in Continuation parse mode (spec.md §4.1): a HEADERS frame arrived
// without END_HEADERS, and every subsequent frame on the wire must be a
// CONTINUATION for the same stream until one finally sets END_HEADERS.
type continuationState struct {
	active   bool
	streamID uint32
	fin      bool
	fragment []byte
}

func (c *Conn) inContinuation() bool { return c.cont.active }

// readPreface validates the fixed 24-byte client preface (RFC 7540 §3.5)
// before any frame parsing begins. A mismatch is a connection_error: the
// client is not speaking HTTP/2.
func readPreface(r io.Reader) error {
	buf := make([]byte, len(frame.Preface))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, frame.Preface) {
		return &frame.ConnectionError{Code: frame.ErrCodeProtocol, Message: "bad connection preface"}
	}
	return nil
}

// dispatch handles one frame read off the wire. It returns a non-nil
// *Error when the frame is invalid in a way spec.md §4.2 classifies as
// connection- or stream-fatal; the caller (Conn's main loop) decides how
// to act on the Kind.
func (c *Conn) dispatch(fr frame.Frame) *Error {
	if c.cont.active {
		return c.dispatchContinuation(fr)
	}

	switch f := fr.(type) {
	case *frame.DataFrame:
		return c.dispatchData(f)
	case *frame.HeadersFrame:
		return c.dispatchHeaders(f)
	case *frame.PriorityFrame:
		return c.dispatchPriority(f)
	case *frame.RSTStreamFrame:
		return c.dispatchRstStream(f)
	case *frame.SettingsFrame:
		return c.dispatchSettings(f)
	case *frame.PushPromiseFrame:
		return ConnectionError(frame.ErrCodeProtocol, "client sent PUSH_PROMISE")
	case *frame.PingFrame:
		return c.dispatchPing(f)
	case *frame.GoAwayFrame:
		return StopErr("peer sent GOAWAY")
	case *frame.WindowUpdateFrame:
		// Outbound flow control is not enforced in v1 (spec.md §6); the
		// frame is accepted and has no effect.
		return nil
	case *frame.ContinuationFrame:
		return ConnectionError(frame.ErrCodeProtocol, "CONTINUATION outside a header block")
	case *frame.UnknownFrame:
		// RFC 7540 §4.1: implementations MUST ignore unknown frame types.
		return nil
	default:
		return nil
	}
}

func (c *Conn) dispatchContinuation(fr frame.Frame) *Error {
	cf, ok := fr.(*frame.ContinuationFrame)
	if !ok || cf.Header().StreamID != c.cont.streamID {
		return ConnectionError(frame.ErrCodeProtocol, "expected CONTINUATION for the stream in progress")
	}

	c.cont.fragment = append(c.cont.fragment, cf.HeaderBlockFragment()...)
	if !cf.HeadersEnded() {
		return nil
	}

	id, fin, block := c.cont.streamID, c.cont.fin, c.cont.fragment
	c.cont = continuationState{}
	return c.finishHeaders(id, fin, block)
}

func (c *Conn) dispatchData(df *frame.DataFrame) *Error {
	id := df.Header().StreamID
	s, ok := c.streams.get(id)
	if !ok || !s.canReceiveData() {
		return StreamErr(id, frame.ErrCodeStreamClosed, "DATA on an unknown or half-closed stream")
	}

	data := df.Data()
	s.bodyLength += uint64(len(data))
	fin := df.StreamEnded()

	info := DataInfo{Fin: fin}
	if fin {
		info.Length = s.bodyLength
		s.remote = remoteFin
	}

	cmds, state := c.handler.Data(id, info, data, s.handlerState)
	s.handlerState = state
	return c.execute(s, cmds)
}

func (c *Conn) dispatchHeaders(hf *frame.HeadersFrame) *Error {
	id := hf.Header().StreamID
	if _, exists := c.streams.get(id); !exists && !c.streams.acceptableClientID(id) {
		return ConnectionError(frame.ErrCodeProtocol, "stream id not monotonically increasing")
	}
	if hf.HasPriority() && hf.Priority.StreamDep == id {
		return ConnectionError(frame.ErrCodeProtocol, "stream that depends on itself")
	}

	fragment := append([]byte(nil), hf.HeaderBlockFragment()...)
	fin := hf.StreamEnded()

	if !hf.HeadersEnded() {
		c.cont = continuationState{active: true, streamID: id, fin: fin, fragment: fragment}
		return nil
	}

	return c.finishHeaders(id, fin, fragment)
}

func (c *Conn) finishHeaders(id uint32, fin bool, block []byte) *Error {
	dec, err := c.hdrDec.DecodeBlock(block)
	if err != nil {
		return ConnectionErrorFrom(frame.ErrCodeCompression, "HPACK decode failed", err)
	}

	req, serr := newRequest(c.connRef, c.peer, id, fin, dec)
	if serr != nil {
		return serr
	}

	s := newClientStream(id)
	if fin {
		s.remote = remoteFin
	}
	c.streams.put(s)

	cmds, state := c.handler.Init(id, req, c.cfg)
	s.handlerState = state
	return c.execute(s, cmds)
}

func (c *Conn) dispatchPriority(pf *frame.PriorityFrame) *Error {
	if pf.StreamDep == pf.Header().StreamID {
		return ConnectionError(frame.ErrCodeProtocol, "stream that depends on itself")
	}
	// Prioritization scheduling is out of scope (spec.md §6); the frame is
	// otherwise accepted and has no effect.
	return nil
}

func (c *Conn) dispatchRstStream(rf *frame.RSTStreamFrame) *Error {
	id := rf.Header().StreamID
	s, ok := c.streams.get(id)
	if !ok {
		// Only an id that was never opened is a protocol error; a stream
		// that has already closed is simply gone from the table.
		t := c.streams
		if (id%2 == 1 && id > t.lastClientID) || (id%2 == 0 && id >= t.nextServerID) {
			return ConnectionError(frame.ErrCodeProtocol, "RST_STREAM on an idle stream")
		}
		return nil
	}
	c.terminateStream(s, StreamErr(id, rf.ErrCode, "peer reset the stream"))
	return nil
}

func (c *Conn) dispatchSettings(sf *frame.SettingsFrame) *Error {
	if sf.IsAck() {
		values, ok := c.pending.ackHead()
		if !ok {
			return ConnectionError(frame.ErrCodeProtocol, "unexpected SETTINGS ack")
		}
		c.local = values
		c.hdrDec.SetMaxDynamicTableSize(c.local.HeaderTableSize())
		c.codec.SetMaxReadFrameSize(c.local.MaxFrameSize())
		return nil
	}

	next := make(Settings, len(c.remote))
	for k, v := range c.remote {
		next[k] = v
	}
	walkErr := sf.ForeachSetting(func(s frame.Setting) error {
		next[s.ID] = s.Val
		return nil
	})
	if walkErr != nil {
		return ConnectionErrorFrom(frame.ErrCodeProtocol, "malformed SETTINGS frame", walkErr)
	}
	c.remote = next
	c.hdrEnc.SetMaxDynamicTableSize(c.remote.HeaderTableSize())

	if err := c.codec.WriteSettingsAck(); err != nil {
		return SocketErr(err)
	}
	return nil
}

func (c *Conn) dispatchPing(pf *frame.PingFrame) *Error {
	if frame.IsPingAck(pf) {
		return nil
	}
	if err := c.codec.WritePing(true, pf.Data); err != nil {
		return SocketErr(err)
	}
	return nil
}
