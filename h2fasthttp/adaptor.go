// Package h2fasthttp adapts a fasthttp.RequestHandler into an
// engine.Handler, the way the teacher's adaptor.go/fasthttp.go bridged
// its internal stream type into a fasthttp.RequestCtx.
package h2fasthttp

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/h2x/engine"
)

// Handler wraps a fasthttp.RequestHandler so it can be passed to
// engine.NewConn. Body bytes are buffered per stream until the client's
// END_STREAM arrives (fasthttp's RequestHandler contract expects a
// complete request), then the fasthttp handler runs once and its
// response is translated into a single engine.Response command.
type Handler struct {
	Inner fasthttp.RequestHandler
}

type streamState struct {
	req  fasthttp.Request
	body bytes.Buffer
	peer net.Addr
}

// peerConn is a net.Conn stand-in carrying only the stream's peer
// address, for fasthttp.RequestCtx.Init2 (which wants a net.Conn purely
// to answer RemoteAddr/LocalAddr — the request body is already fully
// buffered by the time the fasthttp handler runs, so no real I/O ever
// happens through it).
type peerConn struct {
	addr net.Addr
}

func (peerConn) Read([]byte) (int, error)        { return 0, io.EOF }
func (peerConn) Write([]byte) (int, error)       { return 0, errors.New("h2fasthttp: peerConn is not writable") }
func (peerConn) Close() error                    { return nil }
func (c peerConn) LocalAddr() net.Addr           { return c.addr }
func (c peerConn) RemoteAddr() net.Addr          { return c.addr }
func (peerConn) SetDeadline(time.Time) error     { return nil }
func (peerConn) SetReadDeadline(time.Time) error { return nil }
func (peerConn) SetWriteDeadline(time.Time) error { return nil }

// Init implements engine.Handler.
func (h Handler) Init(streamID uint32, req *engine.Request, opts *engine.Config) ([]engine.Command, engine.HandlerState) {
	st := &streamState{peer: req.PeerAddr}
	translateRequestHeaders(req, &st.req)

	if !req.HasBody {
		return h.runAndRespond(st), nil
	}
	return nil, st
}

// Data implements engine.Handler.
func (h Handler) Data(streamID uint32, info engine.DataInfo, body []byte, state engine.HandlerState) ([]engine.Command, engine.HandlerState) {
	st, ok := state.(*streamState)
	if !ok || st == nil {
		return nil, state
	}
	st.body.Write(body)
	if !info.Fin {
		return nil, st
	}
	return h.runAndRespond(st), nil
}

// Info implements engine.Handler. This adaptor never issues Spawn, so it
// never expects an asynchronous message.
func (h Handler) Info(streamID uint32, msg interface{}, state engine.HandlerState) ([]engine.Command, engine.HandlerState) {
	return nil, state
}

// Terminate implements engine.Handler; there is nothing to release.
func (h Handler) Terminate(streamID uint32, reason error, state engine.HandlerState) {}

func (h Handler) runAndRespond(st *streamState) []engine.Command {
	if st.body.Len() > 0 {
		st.req.SetBody(st.body.Bytes())
	}

	rctx := &fasthttp.RequestCtx{}
	rctx.Init2(peerConn{addr: st.peer}, nil, false)
	st.req.CopyTo(&rctx.Request)

	h.Inner(rctx)

	return []engine.Command{translateResponse(&rctx.Response)}
}

func translateRequestHeaders(req *engine.Request, out *fasthttp.Request) {
	out.Header.SetMethod(req.Method)
	out.URI().SetScheme(req.Scheme)
	if req.Port != "" {
		out.URI().SetHost(req.Host + ":" + req.Port)
	} else {
		out.URI().SetHost(req.Host)
	}
	if req.Query != "" {
		out.SetRequestURI(req.Path + "?" + req.Query)
	} else {
		out.SetRequestURI(req.Path)
	}
	for name, value := range req.Headers {
		out.Header.Set(name, value)
	}
}

func translateResponse(res *fasthttp.Response) engine.Command {
	h := engine.Header{}
	res.Header.VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})

	body := res.Body()
	h["content-length"] = []string{strconv.Itoa(len(body))}

	return engine.Response{
		Status:  res.StatusCode(),
		Headers: h,
		Body:    body,
	}
}
