// Package header adapts golang.org/x/net/http2/hpack into the connection
// engine's header codec contract (spec: "header codec (ext.)"). It owns
// the per-direction dynamic table and applies the engine's duplicate
// header-value join rules; it knows nothing about streams, frames, or
// handlers.
package header

import (
	"bytes"

	"golang.org/x/net/http2/hpack"
)

// Field is a single HPACK header field.
type Field = hpack.HeaderField

// Pseudo-header names (RFC 7540 §8.1.2.3).
const (
	PseudoMethod    = ":method"
	PseudoScheme    = ":scheme"
	PseudoAuthority = ":authority"
	PseudoPath      = ":path"
	PseudoStatus    = ":status"
)

// Names that need non-default duplicate-value handling.
const (
	Cookie    = "cookie"
	SetCookie = "set-cookie"
)

// Decoded is the result of decoding one fully reassembled header block.
type Decoded struct {
	// Pseudo holds pseudo-header values keyed without the leading colon
	// (e.g. "method", not ":method").
	Pseudo map[string]string
	// Fields holds regular header values, already joined per the
	// duplicate-value rule: "cookie" joins with "; ", everything else
	// joins with ", ".
	Fields map[string]string
	// Order preserves the first-seen order of regular header names.
	Order []string
}

// Decoder decodes header blocks for one direction of a connection. Its
// dynamic table evolves across calls, as RFC 7541 requires.
type Decoder struct {
	dec *hpack.Decoder
}

// NewDecoder creates a Decoder whose dynamic table never grows past
// maxDynamicTableSize (the value this endpoint advertised via
// SETTINGS_HEADER_TABLE_SIZE).
func NewDecoder(maxDynamicTableSize uint32) *Decoder {
	return &Decoder{dec: hpack.NewDecoder(maxDynamicTableSize, nil)}
}

// SetMaxDynamicTableSize updates the decoder's table size cap, e.g. after
// sending new local settings.
func (d *Decoder) SetMaxDynamicTableSize(v uint32) {
	d.dec.SetMaxDynamicTableSize(v)
}

// DecodeBlock decodes a complete header block — the concatenation of a
// HEADERS frame's fragment with every CONTINUATION fragment that followed
// it, per spec.md §4.1's reassembly rule — into pseudo-headers and
// duplicate-joined regular headers.
func (d *Decoder) DecodeBlock(block []byte) (Decoded, error) {
	fields, err := d.dec.DecodeFull(block)
	if err != nil {
		return Decoded{}, err
	}

	out := Decoded{
		Pseudo: make(map[string]string, 4),
		Fields: make(map[string]string, len(fields)),
	}

	for _, f := range fields {
		if f.IsPseudo() {
			out.Pseudo[f.Name[1:]] = f.Value
			continue
		}

		if existing, ok := out.Fields[f.Name]; ok {
			sep := ", "
			if f.Name == Cookie {
				sep = "; "
			}
			out.Fields[f.Name] = existing + sep + f.Value
		} else {
			out.Fields[f.Name] = f.Value
			out.Order = append(out.Order, f.Name)
		}
	}

	return out, nil
}

// Encoder encodes outbound header fields for one direction of a
// connection.
type Encoder struct {
	buf bytes.Buffer
	enc *hpack.Encoder
}

// NewEncoder creates an Encoder with the given starting dynamic table
// cap (the peer's advertised SETTINGS_HEADER_TABLE_SIZE).
func NewEncoder(maxDynamicTableSize uint32) *Encoder {
	e := &Encoder{}
	e.enc = hpack.NewEncoder(&e.buf)
	e.enc.SetMaxDynamicTableSize(maxDynamicTableSize)
	return e
}

// SetMaxDynamicTableSize updates the encoder's table size cap, e.g. after
// receiving new remote settings.
func (e *Encoder) SetMaxDynamicTableSize(v uint32) {
	e.enc.SetMaxDynamicTableSize(v)
}

// EncodeBlock encodes fields into a single header block. Status and other
// pseudo-headers must come first in fields, per RFC 7540 §8.1.2.1.
func (e *Encoder) EncodeBlock(fields []Field) ([]byte, error) {
	e.buf.Reset()
	for _, f := range fields {
		if err := e.enc.WriteField(f); err != nil {
			return nil, err
		}
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}
