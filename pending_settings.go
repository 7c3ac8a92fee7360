package engine

import "time"

// pendingSettings is a FIFO queue of locally-sent SETTINGS awaiting the
// peer's ack, per spec.md §3 invariant 4. The head is acknowledged (and
// becomes the connection's local settings) on the first SETTINGS-ack.
type pendingSettings struct {
	q []pendingEntry
}

type pendingEntry struct {
	seq    uint64
	timer  *time.Timer
	values Settings
}

func (p *pendingSettings) push(seq uint64, values Settings, timer *time.Timer) {
	p.q = append(p.q, pendingEntry{seq: seq, timer: timer, values: values})
}

// headSeq returns the sequence number of the oldest unacknowledged entry,
// used to tell a live settings-ack-timeout event from a stale one whose
// entry has already been acknowledged (spec.md §9: "a stale expiry whose
// handle does not match the currently-armed expectation is silently
// dropped").
func (p *pendingSettings) headSeq() (uint64, bool) {
	if len(p.q) == 0 {
		return 0, false
	}
	return p.q[0].seq, true
}

// ackHead dequeues and cancels the head entry's timer, returning its
// settings. ok is false if the queue was empty (an unsolicited SETTINGS
// ack, a connection_error per spec.md §4.2).
func (p *pendingSettings) ackHead() (Settings, bool) {
	if len(p.q) == 0 {
		return nil, false
	}
	head := p.q[0]
	head.timer.Stop()
	p.q = p.q[1:]
	return head.values, true
}

func (p *pendingSettings) len() int { return len(p.q) }

// stopAll cancels every outstanding ack timer, used on connection teardown.
func (p *pendingSettings) stopAll() {
	for _, e := range p.q {
		e.timer.Stop()
	}
	p.q = nil
}
