package engine

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/h2x/engine/frame"
	"github.com/h2x/engine/header"
)

var connCounter uint64

func nextConnRef(peer net.Addr) string {
	n := atomic.AddUint64(&connCounter, 1)
	return peer.String() + "#" + strconv.FormatUint(n, 10)
}

// inboundMsg is a message addressed to a stream's Handler.Info, typically
// delivered by a worker goroutine registered via Spawn.
type inboundMsg struct {
	streamID uint32
	payload  interface{}
}

type frameResult struct {
	fr  frame.Frame
	err error
}

// Conn runs one HTTP/2 connection to completion. It owns every piece of
// mutable state the spec ties to a connection: the stream table, the
// pending-settings queue, the child (worker) table, and the HPACK codecs
// for both directions. All of that state is touched only from the
// goroutine running Serve's main loop — the read goroutine only ever
// produces frameResult values onto a channel, never mutates Conn fields.
type Conn struct {
	cfg       *Config
	handler   Handler
	transport Transport
	codec     *frame.Codec
	hdrDec    *header.Decoder
	hdrEnc    *header.Encoder

	connRef string
	peer    net.Addr

	local   Settings
	remote  Settings
	pending pendingSettings
	nextSeq uint64

	streams  *streamTable
	children map[string]childEntry

	cont continuationState

	frames          chan frameResult
	msgs            chan inboundMsg
	childExit       chan string
	settingsTimeout chan uint64
	done            chan struct{}
	closed          bool

	idleTimer   *time.Timer
	pingTimer   *time.Timer
	maxReqTimer *time.Timer

	lastErr *Error
}

// NewConn wires a Transport and Handler into a Conn ready for Serve.
func NewConn(transport Transport, handler Handler, cfg *Config) *Conn {
	cfg = cfg.withDefaults()

	c := &Conn{
		cfg:             cfg,
		handler:         handler,
		transport:       transport,
		connRef:         nextConnRef(transport.PeerAddr()),
		peer:            transport.PeerAddr(),
		// local starts as what we are about to announce: RFC 7541 bounds
		// the peer's dynamic table to our advertised
		// SETTINGS_HEADER_TABLE_SIZE as soon as it's sent, not once acked.
		local:           cfg.Settings.withDefaults(),
		remote:          Settings{}.withDefaults(),
		streams:         newStreamTable(),
		children:        make(map[string]childEntry),
		frames:          make(chan frameResult, 4),
		msgs:            make(chan inboundMsg, 16),
		childExit:       make(chan string, 4),
		settingsTimeout: make(chan uint64, 4),
		done:            make(chan struct{}),
	}

	c.codec = frame.New(transport, transport, c.local.MaxFrameSize())
	c.hdrDec = header.NewDecoder(c.local.HeaderTableSize())
	c.hdrEnc = header.NewEncoder(frame.DefaultHeaderTableSize)

	c.idleTimer = time.NewTimer(cfg.IdleTimeout)
	c.pingTimer = time.NewTimer(time.Hour)
	if cfg.PingInterval <= 0 {
		c.pingTimer.Stop()
	} else {
		c.pingTimer.Reset(jitter(cfg.PingInterval))
	}
	c.maxReqTimer = time.NewTimer(time.Hour)
	if cfg.MaxRequestTimeout <= 0 {
		c.maxReqTimer.Stop()
	} else {
		c.maxReqTimer.Reset(cfg.MaxRequestTimeout)
	}

	return c
}

func (c *Conn) logf(format string, args ...interface{}) {
	if c.cfg.Debug {
		c.cfg.Logger.Printf(format, args...)
	}
}

// Serve runs the connection to completion: preface, initial SETTINGS
// exchange, then the main event loop. It always returns once the
// connection has been fully torn down (transport closed, every stream
// terminated, every child killed).
func (c *Conn) Serve() {
	defer c.shutdown()

	if err := c.handshake(); err != nil {
		c.fail(err)
		return
	}

	go c.readLoop()
	c.loop()
}

// handshake implements spec.md §4.1's AwaitPrefaceSequence and
// AwaitPrefaceSettings parse modes: validate the fixed preface, send our
// own initial SETTINGS, then require the client's first frame to be a
// non-ack SETTINGS before entering the steady-state loop.
func (c *Conn) handshake() *Error {
	c.transport.SetDeadline(time.Now().Add(c.cfg.PrefaceTimeout))
	if err := readPreface(c.transport); err != nil {
		return translateFrameErr(err)
	}

	if err := c.codec.WriteSettings(c.local.AsFrameSettings()...); err != nil {
		return SocketErr(err)
	}
	c.transport.Flush()

	seq := c.nextSeq
	c.nextSeq++
	c.pending.push(seq, c.local, c.armSettingsTimer(seq))

	fr, err := c.codec.ReadFrame()
	if err != nil {
		return translateFrameErr(err)
	}
	sf, ok := fr.(*frame.SettingsFrame)
	if !ok || sf.IsAck() {
		return ConnectionError(frame.ErrCodeProtocol, "first client frame after the preface must be SETTINGS")
	}

	c.transport.SetDeadline(time.Time{})
	if derr := c.dispatchSettings(sf); derr != nil {
		return derr
	}
	c.transport.Flush()
	return nil
}

func (c *Conn) readLoop() {
	for {
		fr, err := c.codec.ReadFrame()
		select {
		case c.frames <- frameResult{fr: fr, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// loop is the single-threaded cooperative core (spec.md §9): every branch
// below runs to completion before the next select, so stream state, the
// pending-settings queue, and the HPACK codecs never need synchronization.
func (c *Conn) loop() {
	for {
		select {
		case res := <-c.frames:
			if res.err != nil {
				c.fail(translateFrameErr(res.err))
				return
			}
			c.resetIdleTimer()
			if err := c.dispatch(res.fr); err != nil {
				if err.Kind == KindStream || err.Kind == KindInternal {
					c.resetByID(err)
				} else {
					c.fail(err)
					return
				}
			}

		case msg := <-c.msgs:
			c.deliverInfo(msg)

		case pid := <-c.childExit:
			delete(c.children, pid)

		case seq := <-c.settingsTimeout:
			if head, ok := c.pending.headSeq(); ok && head == seq {
				c.fail(ConnectionError(frame.ErrCodeSettingsTimeout, "SETTINGS ack timeout"))
				return
			}

		case <-c.idleTimer.C:
			c.fail(ConnectionError(frame.ErrCodeInternal, "idle timeout"))
			return

		case <-c.pingTimer.C:
			var payload [8]byte
			binaryPutUint64(payload[:], uint64(time.Now().UnixNano()))
			if err := c.codec.WritePing(false, payload); err != nil {
				c.fail(SocketErr(err))
				return
			}
			c.transport.Flush()
			c.resetPingTimer()

		case <-c.maxReqTimer.C:
			c.sweepStaleStreams()
			c.maxReqTimer.Reset(c.cfg.MaxRequestTimeout)

		case <-c.done:
			return
		}

		c.transport.Flush()
	}
}

func (c *Conn) deliverInfo(msg inboundMsg) {
	s, ok := c.streams.get(msg.streamID)
	if !ok {
		// The stream terminated before this message was delivered; a
		// well-behaved Spawn's Kill should prevent this, but a race is
		// not a protocol violation.
		return
	}
	cmds, state := c.handler.Info(msg.streamID, msg.payload, s.handlerState)
	s.handlerState = state
	if err := c.execute(s, cmds); err != nil {
		c.fail(err)
	}
}

func (c *Conn) sweepStaleStreams() {
	deadline := time.Now().Add(-c.cfg.MaxRequestTimeout)
	for _, s := range c.snapshotStreams() {
		if s.local != localFin && s.startedAt.Before(deadline) {
			c.resetStream(s, StreamErr(s.id, frame.ErrCodeCancel, "request exceeded max request timeout"), true)
		}
	}
}

// resetByID resets the stream named in err, which may or may not still
// have a Stream in the table (a frame for an already-closed or never-
// opened stream still gets an RST_STREAM reply, just with nothing left
// to notify).
func (c *Conn) resetByID(err *Error) {
	if s, ok := c.streams.get(err.StreamID); ok {
		c.resetStream(s, err, true)
		return
	}
	if werr := c.codec.WriteRSTStream(err.StreamID, err.Code); werr != nil {
		c.logf("RST_STREAM write failed for stream %d: %v", err.StreamID, werr)
	}
}

func (c *Conn) snapshotStreams() []*Stream {
	out := make([]*Stream, 0, c.streams.len())
	for _, s := range c.streams.m {
		out = append(out, s)
	}
	return out
}

// fail classifies err, emits whatever frame the classification calls for
// (GOAWAY for connection/internal failures, nothing for a socket failure
// or a peer-initiated stop), and marks the connection closed. Safe to
// call more than once; only the first call has any effect.
func (c *Conn) fail(err *Error) {
	if c.closed {
		return
	}
	c.closed = true
	c.lastErr = err

	switch err.Kind {
	case KindConnection, KindInternal:
		debug := []byte(err.Message)
		if werr := c.codec.WriteGoAway(c.streams.lastGoodStreamID(), err.Code, debug); werr != nil {
			c.logf("GOAWAY write failed: %v", werr)
		}
		c.transport.Flush()
	case KindSocket, KindStop:
		// Nothing to send: the transport is broken, or the peer already
		// sent its own GOAWAY.
	}

	close(c.done)
}

func (c *Conn) shutdown() {
	reason := error(c.lastErr)
	if reason == nil {
		reason = SocketErr(nil)
	}
	for _, s := range c.snapshotStreams() {
		c.terminateStream(s, reason)
	}
	c.killAllChildren()
	c.pending.stopAll()
	c.idleTimer.Stop()
	c.pingTimer.Stop()
	c.maxReqTimer.Stop()
	c.transport.Close()
}

func translateFrameErr(err error) *Error {
	switch e := err.(type) {
	case *frame.StreamError:
		return StreamErr(e.StreamID, e.Code, e.Message)
	case *frame.ConnectionError:
		return ConnectionError(e.Code, e.Message)
	default:
		return SocketErr(err)
	}
}

func binaryPutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}
