package engine

import "github.com/h2x/engine/frame"

// resetStream sends RST_STREAM (when sendRST is set; a reset the peer
// itself sent goes straight to terminateStream instead) and removes s from
// the table, notifying its Handler exactly once, per spec.md §3 invariant 6.
func (c *Conn) resetStream(s *Stream, reason *Error, sendRST bool) {
	if sendRST {
		if err := c.codec.WriteRSTStream(s.id, reason.Code); err != nil {
			c.logf("RST_STREAM write failed for stream %d: %v", s.id, err)
		}
	}
	c.terminateStream(s, reason)
}

func (c *Conn) terminateStream(s *Stream, reason error) {
	c.streams.delete(s.id)
	c.killChildrenOf(s.id)
	c.notifyTerminate(s, reason)
}

func (c *Conn) notifyTerminate(s *Stream, reason error) {
	defer func() {
		if r := recover(); r != nil {
			c.logf("handler panicked in Terminate for stream %d: %v", s.id, r)
		}
	}()
	c.handler.Terminate(s.id, reason, s.handlerState)
}

// gracefulStop implements the Stop command's termination path (spec.md
// §4.6): if nothing has been sent yet, close the stream with an empty
// 204; if a response is mid-flight, close its body with an empty
// END_STREAM DATA frame. Either way the stream then terminates normally,
// with no RST_STREAM.
func (c *Conn) gracefulStop(s *Stream) {
	switch s.local {
	case localIdle:
		if fields, err := c.buildHeaderFields(204, Header{}); err == nil {
			if block, eerr := c.hdrEnc.EncodeBlock(fields); eerr == nil {
				if err := c.codec.WriteHeaders(frame.HeadersFrameParam{
					StreamID:      s.id,
					BlockFragment: block,
					EndHeaders:    true,
					EndStream:     true,
				}); err != nil {
					c.logf("stop: HEADERS write failed for stream %d: %v", s.id, err)
				}
			}
		}
	case localNoFin:
		if err := c.codec.WriteData(s.id, true, nil); err != nil {
			c.logf("stop: DATA write failed for stream %d: %v", s.id, err)
		}
	}
	s.local = localFin
	c.terminateStream(s, StopErr("handler requested stop"))
}

func (c *Conn) spawn(streamID uint32, v Spawn) {
	c.children[v.PID] = childEntry{streamID: streamID, kill: v.Kill}
	if v.Run == nil {
		return
	}

	go func() {
		notify := func(msg interface{}) {
			select {
			case c.msgs <- inboundMsg{streamID: streamID, payload: msg}:
			case <-c.done:
			}
		}
		v.Run(notify)
		select {
		case c.childExit <- v.PID:
		case <-c.done:
		}
	}()
}

type childEntry struct {
	streamID uint32
	kill     func()
}

func (c *Conn) killChildrenOf(streamID uint32) {
	for pid, e := range c.children {
		if e.streamID != streamID {
			continue
		}
		if e.kill != nil {
			e.kill()
		}
		delete(c.children, pid)
	}
}

func (c *Conn) killAllChildren() {
	for pid, e := range c.children {
		if e.kill != nil {
			e.kill()
		}
		delete(c.children, pid)
	}
}
