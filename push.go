package engine

import (
	"sort"

	"github.com/h2x/engine/frame"
	"github.com/h2x/engine/header"
)

// sendPush implements the Push command (spec.md §4.3): synthesise
// pseudo-headers for a server-initiated request, send PUSH_PROMISE on the
// current stream carrying a fresh even stream id, and initialise the
// promised stream with remote already closed.
func (c *Conn) sendPush(s *Stream, v Push) *Error {
	authority := pushAuthority(v.Scheme, v.Host, v.Port)
	path := pushPath(v.Path, v.Query)

	fields := []header.Field{
		{Name: header.PseudoMethod, Value: v.Method},
		{Name: header.PseudoScheme, Value: v.Scheme},
		{Name: header.PseudoAuthority, Value: authority},
		{Name: header.PseudoPath, Value: path},
	}

	names := make([]string, 0, len(v.Headers))
	for name := range v.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, val := range v.Headers[name] {
			fields = append(fields, header.Field{Name: name, Value: val})
		}
	}

	block, err := c.hdrEnc.EncodeBlock(fields)
	if err != nil {
		return ConnectionErrorFrom(frame.ErrCodeInternal, "HPACK encode failed for push", err)
	}

	promisedID := c.streams.nextPushID()
	if err := c.codec.WritePushPromise(frame.PushPromiseParam{
		StreamID:      s.id,
		PromiseID:     promisedID,
		BlockFragment: block,
		EndHeaders:    true,
	}); err != nil {
		return SocketErr(err)
	}

	c.streams.put(newPromisedStream(promisedID))
	return nil
}

func pushAuthority(scheme, host, port string) string {
	if port == "" ||
		(scheme == "http" && port == "80") ||
		(scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}

func pushPath(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}
