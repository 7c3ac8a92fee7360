package frame

import (
	"bytes"
	"testing"
)

func TestSplitDataChunksAndSetsEndStreamOnlyOnLastFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	wc := New(buf, buf, DefaultMaxFrameSize)

	payload := bytes.Repeat([]byte("x"), 25)
	if err := wc.SplitData(1, true, payload, 10); err != nil {
		t.Fatalf("SplitData: %s", err)
	}

	rc := New(buf, buf, DefaultMaxFrameSize)
	var gotLen int
	var frames int
	for {
		fr, err := rc.ReadFrame()
		if err != nil {
			break
		}
		df, ok := fr.(*DataFrame)
		if !ok {
			t.Fatalf("unexpected frame type %T", fr)
		}
		frames++
		gotLen += len(df.Data())
		if df.StreamEnded() && frames != 3 {
			t.Fatalf("END_STREAM set on frame %d, expected only the 3rd", frames)
		}
	}
	if frames != 3 {
		t.Fatalf("expected 3 DATA frames for a 25-byte payload in 10-byte chunks, got %d", frames)
	}
	if gotLen != len(payload) {
		t.Fatalf("total payload mismatch: got %d want %d", gotLen, len(payload))
	}
}

func TestSplitDataEmptyPayloadStillEmitsOneFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	wc := New(buf, buf, DefaultMaxFrameSize)

	if err := wc.SplitData(1, true, nil, DefaultMaxFrameSize); err != nil {
		t.Fatalf("SplitData: %s", err)
	}

	rc := New(buf, buf, DefaultMaxFrameSize)
	fr, err := rc.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %s", err)
	}
	df, ok := fr.(*DataFrame)
	if !ok {
		t.Fatalf("unexpected frame type %T", fr)
	}
	if !df.StreamEnded() {
		t.Fatalf("expected END_STREAM on the lone empty DATA frame")
	}
	if len(df.Data()) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(df.Data()))
	}
}

func TestIsPingAck(t *testing.T) {
	buf := &bytes.Buffer{}
	wc := New(buf, buf, DefaultMaxFrameSize)

	if err := wc.WritePing(true, [8]byte{1, 2, 3}); err != nil {
		t.Fatalf("WritePing: %s", err)
	}

	rc := New(buf, buf, DefaultMaxFrameSize)
	fr, err := rc.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %s", err)
	}
	pf, ok := fr.(*PingFrame)
	if !ok {
		t.Fatalf("unexpected frame type %T", fr)
	}
	if !IsPingAck(pf) {
		t.Fatalf("expected the ack flag to be set")
	}
}
