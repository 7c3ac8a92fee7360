package engine

import (
	"time"

	"github.com/valyala/fastrand"
)

// jitter shrinks d by up to 10%, so many connections started together
// don't all send their keepalive PING in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	spread := d / 10
	if spread <= 0 {
		return d
	}
	return d - time.Duration(fastrand.Uint32n(uint32(spread)))
}

// resetIdleTimer rearms the idle timeout after any inbound frame.
func (c *Conn) resetIdleTimer() {
	if !c.idleTimer.Stop() {
		drainTimer(c.idleTimer)
	}
	c.idleTimer.Reset(c.cfg.IdleTimeout)
}

func (c *Conn) resetPingTimer() {
	if c.cfg.PingInterval <= 0 {
		return
	}
	if !c.pingTimer.Stop() {
		drainTimer(c.pingTimer)
	}
	c.pingTimer.Reset(jitter(c.cfg.PingInterval))
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// armSettingsTimer schedules a settings-ack timeout. The fired event
// carries the sequence number assigned when the entry was pushed; the
// main loop drops it if the pending queue's head has since moved past
// that sequence (the "stale timer handle" case from spec.md §9).
func (c *Conn) armSettingsTimer(seq uint64) *time.Timer {
	return time.AfterFunc(c.cfg.SettingsTimeout, func() {
		select {
		case c.settingsTimeout <- seq:
		case <-c.done:
		}
	})
}
