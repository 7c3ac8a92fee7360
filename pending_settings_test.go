package engine

import (
	"testing"
	"time"

	"github.com/h2x/engine/frame"
)

func TestPendingSettingsFIFOAck(t *testing.T) {
	var p pendingSettings

	first := Settings{frame.SettingMaxFrameSize: 20000}
	second := Settings{frame.SettingMaxFrameSize: 30000}

	p.push(1, first, time.NewTimer(time.Hour))
	p.push(2, second, time.NewTimer(time.Hour))

	if p.len() != 2 {
		t.Fatalf("expected 2 pending entries, got %d", p.len())
	}

	got, ok := p.ackHead()
	if !ok {
		t.Fatalf("expected an entry to ack")
	}
	if got[frame.SettingMaxFrameSize] != 20000 {
		t.Fatalf("expected the FIFO head (first pushed) to ack first, got %v", got)
	}
	if p.len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", p.len())
	}

	got, ok = p.ackHead()
	if !ok {
		t.Fatalf("expected a second entry to ack")
	}
	if got[frame.SettingMaxFrameSize] != 30000 {
		t.Fatalf("expected the second pushed entry to ack second, got %v", got)
	}
}

func TestPendingSettingsAckHeadOnEmptyQueueFails(t *testing.T) {
	var p pendingSettings

	if _, ok := p.ackHead(); ok {
		t.Fatalf("acking an empty queue must report ok=false")
	}
}

func TestPendingSettingsHeadSeqTracksOldestUnacked(t *testing.T) {
	var p pendingSettings

	if _, ok := p.headSeq(); ok {
		t.Fatalf("an empty queue must report no head sequence")
	}

	p.push(5, Settings{}, time.NewTimer(time.Hour))
	p.push(6, Settings{}, time.NewTimer(time.Hour))

	seq, ok := p.headSeq()
	if !ok || seq != 5 {
		t.Fatalf("expected head sequence 5, got %d (ok=%v)", seq, ok)
	}

	// Simulates a stale timer firing for seq 5 after it has already been
	// acked: the event handler must compare against headSeq before acting.
	if _, ok := p.ackHead(); !ok {
		t.Fatalf("expected ackHead to succeed")
	}
	seq, ok = p.headSeq()
	if !ok || seq != 6 {
		t.Fatalf("expected head sequence to advance to 6, got %d (ok=%v)", seq, ok)
	}
	if seq == 5 {
		t.Fatalf("a timer event carrying the old seq 5 must now be recognized as stale")
	}
}

func TestPendingSettingsStopAllClearsQueue(t *testing.T) {
	var p pendingSettings
	p.push(1, Settings{}, time.NewTimer(time.Hour))
	p.push(2, Settings{}, time.NewTimer(time.Hour))

	p.stopAll()

	if p.len() != 0 {
		t.Fatalf("expected stopAll to clear the queue, got len %d", p.len())
	}
}
