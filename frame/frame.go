// Package frame adapts golang.org/x/net/http2's Framer into the connection
// engine's frame codec contract. The engine treats this package as a pure,
// external collaborator (spec: "frame codec (ext.)"): it turns bytes read
// from a transport into RFC 7540 frames and back, and never touches stream
// state, HPACK state, or handler semantics.
package frame

import (
	"errors"
	"io"
	"strconv"

	"golang.org/x/net/http2"
)

// Preface is the fixed 24-byte client handshake prefix (RFC 7540 §3.5).
var Preface = []byte(http2.ClientPreface)

// ErrCode mirrors the RFC 7540 error code space. It is a direct alias of
// golang.org/x/net/http2.ErrCode so the engine's error taxonomy and the
// codec's never drift apart.
type ErrCode = http2.ErrCode

// Error codes, re-exported from golang.org/x/net/http2.
const (
	ErrCodeNo                 = http2.ErrCodeNo
	ErrCodeProtocol           = http2.ErrCodeProtocol
	ErrCodeInternal           = http2.ErrCodeInternal
	ErrCodeFlowControl        = http2.ErrCodeFlowControl
	ErrCodeSettingsTimeout    = http2.ErrCodeSettingsTimeout
	ErrCodeStreamClosed       = http2.ErrCodeStreamClosed
	ErrCodeFrameSize          = http2.ErrCodeFrameSize
	ErrCodeRefusedStream      = http2.ErrCodeRefusedStream
	ErrCodeCancel             = http2.ErrCodeCancel
	ErrCodeCompression        = http2.ErrCodeCompression
	ErrCodeConnect            = http2.ErrCodeConnect
	ErrCodeEnhanceYourCalm    = http2.ErrCodeEnhanceYourCalm
	ErrCodeInadequateSecurity = http2.ErrCodeInadequateSecurity
	ErrCodeHTTP11Required     = http2.ErrCodeHTTP11Required
)

// Default settings values (RFC 7540 §6.5.2).
const (
	DefaultHeaderTableSize      uint32 = 4096
	DefaultMaxFrameSize         uint32 = 1 << 14
	DefaultMaxConcurrentStreams uint32 = 100
	DefaultInitialWindowSize    uint32 = 1<<16 - 1
)

// Frame type aliases so callers type-switch on the frames a Codec produces
// without importing golang.org/x/net/http2 directly.
type (
	Frame             = http2.Frame
	FrameHeader       = http2.FrameHeader
	SettingsFrame     = http2.SettingsFrame
	HeadersFrame      = http2.HeadersFrame
	ContinuationFrame = http2.ContinuationFrame
	DataFrame         = http2.DataFrame
	PingFrame         = http2.PingFrame
	GoAwayFrame       = http2.GoAwayFrame
	RSTStreamFrame    = http2.RSTStreamFrame
	PriorityFrame     = http2.PriorityFrame
	PushPromiseFrame  = http2.PushPromiseFrame
	WindowUpdateFrame = http2.WindowUpdateFrame
	UnknownFrame      = http2.UnknownFrame
	Setting           = http2.Setting
	SettingID         = http2.SettingID
	HeadersFrameParam = http2.HeadersFrameParam
	PushPromiseParam  = http2.PushPromiseParam
	PriorityParam     = http2.PriorityParam
)

// Setting identifiers, re-exported from golang.org/x/net/http2.
const (
	SettingHeaderTableSize      = http2.SettingHeaderTableSize
	SettingEnablePush           = http2.SettingEnablePush
	SettingMaxConcurrentStreams = http2.SettingMaxConcurrentStreams
	SettingInitialWindowSize    = http2.SettingInitialWindowSize
	SettingMaxFrameSize         = http2.SettingMaxFrameSize
	SettingMaxHeaderListSize    = http2.SettingMaxHeaderListSize
)

// FrameType values, re-exported for dispatch code that logs or compares
// against http2.FrameHeader.Type without importing x/net directly.
const (
	FrameTypeData         = http2.FrameData
	FrameTypeHeaders      = http2.FrameHeaders
	FrameTypePriority     = http2.FramePriority
	FrameTypeRSTStream    = http2.FrameRSTStream
	FrameTypeSettings     = http2.FrameSettings
	FrameTypePushPromise  = http2.FramePushPromise
	FrameTypePing         = http2.FramePing
	FrameTypeGoAway       = http2.FrameGoAway
	FrameTypeWindowUpdate = http2.FrameWindowUpdate
	FrameTypeContinuation = http2.FrameContinuation
)

// Frame flags, re-exported from golang.org/x/net/http2 for callers that
// need to inspect a frame's raw flag bits rather than use the typed
// accessor methods (e.g. PingFrame has no IsAck method).
const (
	FlagSettingsAck            = http2.FlagSettingsAck
	FlagPingAck                = http2.FlagPingAck
	FlagHeadersEndStream       = http2.FlagHeadersEndStream
	FlagHeadersEndHeaders      = http2.FlagHeadersEndHeaders
	FlagHeadersPadded          = http2.FlagHeadersPadded
	FlagHeadersPriority        = http2.FlagHeadersPriority
	FlagDataEndStream          = http2.FlagDataEndStream
	FlagDataPadded             = http2.FlagDataPadded
	FlagContinuationEndHeaders = http2.FlagContinuationEndHeaders
	FlagPushPromiseEndHeaders  = http2.FlagPushPromiseEndHeaders
	FlagPushPromisePadded      = http2.FlagPushPromisePadded
)

// IsPingAck reports whether a PING frame carries the ACK flag.
func IsPingAck(pf *PingFrame) bool {
	return pf.Flags.Has(FlagPingAck)
}

// StreamError is returned by Codec.ReadFrame when a framing violation is
// isolated to a single stream — the spec's stream_error classification.
type StreamError struct {
	StreamID uint32
	Code     ErrCode
	Message  string
}

func (e *StreamError) Error() string {
	return "frame: stream " + strconv.FormatUint(uint64(e.StreamID), 10) + " error: " + e.Message
}

// ConnectionError is returned by Codec.ReadFrame when a framing violation
// invalidates the whole connection — the spec's connection_error
// classification.
type ConnectionError struct {
	Code    ErrCode
	Message string
}

func (e *ConnectionError) Error() string {
	return "frame: connection error: " + e.Message
}

// Codec wraps an *http2.Framer. The Go blocking-I/O model replaces the
// buffer/Need(n) bookkeeping that a non-blocking parser would need:
// ReadFrame simply blocks on the underlying reader until a full frame
// header and payload are available, or the transport fails.
type Codec struct {
	fr *http2.Framer
}

// New builds a Codec reading frames from r (at most maxFrameSize bytes of
// payload each, per the locally-advertised SETTINGS_MAX_FRAME_SIZE) and
// writing frames to w.
func New(r io.Reader, w io.Writer, maxFrameSize uint32) *Codec {
	fr := http2.NewFramer(w, r)
	fr.SetMaxReadFrameSize(maxFrameSize)
	return &Codec{fr: fr}
}

// SetMaxReadFrameSize adjusts the largest frame payload this Codec accepts
// from the peer. Used when local SETTINGS advertise a new value.
func (c *Codec) SetMaxReadFrameSize(n uint32) {
	c.fr.SetMaxReadFrameSize(n)
}

// ReadFrame reads and returns the next frame, translating golang.org/x/net/http2's
// own error taxonomy into the engine's StreamError/ConnectionError pair.
// io.EOF and transport-level errors pass through untouched.
func (c *Codec) ReadFrame() (Frame, error) {
	fr, err := c.fr.ReadFrame()
	if err != nil {
		return nil, translateReadErr(err)
	}
	return fr, nil
}

func translateReadErr(err error) error {
	var streamErr http2.StreamError
	if errors.As(err, &streamErr) {
		return &StreamError{StreamID: streamErr.StreamID, Code: streamErr.Code, Message: streamErr.Error()}
	}
	var connErr http2.ConnectionError
	if errors.As(err, &connErr) {
		return &ConnectionError{Code: http2.ErrCode(connErr), Message: connErr.Error()}
	}
	return err
}

// WriteSettings emits a non-ack SETTINGS frame.
func (c *Codec) WriteSettings(settings ...Setting) error {
	return c.fr.WriteSettings(settings...)
}

// WriteSettingsAck emits a SETTINGS frame with the ACK flag set.
func (c *Codec) WriteSettingsAck() error {
	return c.fr.WriteSettingsAck()
}

// WritePing emits a PING frame carrying data, optionally as an ack.
func (c *Codec) WritePing(ack bool, data [8]byte) error {
	return c.fr.WritePing(ack, data)
}

// WriteRSTStream emits a RST_STREAM frame resetting id with code.
func (c *Codec) WriteRSTStream(id uint32, code ErrCode) error {
	return c.fr.WriteRSTStream(id, code)
}

// WriteGoAway emits a GOAWAY frame. lastStreamID is the highest-numbered
// stream the sender has processed or may yet process.
func (c *Codec) WriteGoAway(lastStreamID uint32, code ErrCode, debugData []byte) error {
	return c.fr.WriteGoAway(lastStreamID, code, debugData)
}

// WriteHeaders emits a HEADERS frame.
func (c *Codec) WriteHeaders(p HeadersFrameParam) error {
	return c.fr.WriteHeaders(p)
}

// WriteContinuation emits a CONTINUATION frame.
func (c *Codec) WriteContinuation(streamID uint32, endHeaders bool, fragment []byte) error {
	return c.fr.WriteContinuation(streamID, endHeaders, fragment)
}

// WritePushPromise emits a PUSH_PROMISE frame.
func (c *Codec) WritePushPromise(p PushPromiseParam) error {
	return c.fr.WritePushPromise(p)
}

// WriteData emits a single DATA frame. Prefer SplitData for payloads that
// may exceed the peer's advertised max frame size.
func (c *Codec) WriteData(streamID uint32, endStream bool, data []byte) error {
	return c.fr.WriteData(streamID, endStream, data)
}

// SplitData emits data as a sequence of DATA frames, each carrying at most
// maxFrameSize bytes of payload, setting END_STREAM only on the final
// frame and only if endStream is set. It always emits at least one frame,
// even for an empty payload, so a zero-length FIN body still closes the
// stream.
func (c *Codec) SplitData(streamID uint32, endStream bool, data []byte, maxFrameSize uint32) error {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	if len(data) == 0 {
		return c.fr.WriteData(streamID, endStream, nil)
	}

	for off := 0; off < len(data); off += int(maxFrameSize) {
		end := off + int(maxFrameSize)
		if end > len(data) {
			end = len(data)
		}
		last := end == len(data)
		if err := c.fr.WriteData(streamID, last && endStream, data[off:end]); err != nil {
			return err
		}
	}
	return nil
}
