package mqtt

import (
	"time"

	"go.uber.org/atomic"
)

// ReconnectController owns the three timers SessionMachine's run loop
// selects on (keepalive ping, CONNACK wait, reconnect backoff) plus the
// handful of flags that must be readable from outside the run loop
// without taking its lock: connected/pingResp/disconnecting. Grounded
// on the clientState booleans (clientstate.go), generalized from plain
// bools to go.uber.org/atomic values since they are now read from
// facade methods running on a different goroutine than the run loop
// that writes them.
type ReconnectController struct {
	Connected     atomic.Bool
	PingResp      atomic.Bool
	Disconnecting atomic.Bool

	keepalive       time.Duration
	connectTimeout  time.Duration
	reconnectPeriod time.Duration

	pingTimer      *time.Timer
	connectTimer   *time.Timer
	reconnectTimer *time.Timer
}

func newReconnectController(o Options) *ReconnectController {
	rc := &ReconnectController{
		keepalive:       o.Keepalive,
		connectTimeout:  o.ConnectTimeout,
		reconnectPeriod: o.ReconnectPeriod,
	}
	rc.pingTimer = time.NewTimer(time.Hour)
	rc.pingTimer.Stop()
	rc.connectTimer = time.NewTimer(time.Hour)
	rc.connectTimer.Stop()
	rc.reconnectTimer = time.NewTimer(time.Hour)
	rc.reconnectTimer.Stop()
	return rc
}

func stopTimer(t *time.Timer) {
	t.Stop()
	select {
	case <-t.C:
	default:
	}
}

// ArmPing (re)starts the keepalive timer. Called on connect and, when
// Options.ReschedulePings is set, after every outbound write, mirroring
// _shiftPingInterval.
func (rc *ReconnectController) ArmPing() {
	if rc.keepalive <= 0 {
		return
	}
	stopTimer(rc.pingTimer)
	rc.pingTimer.Reset(rc.keepalive)
}

func (rc *ReconnectController) StopPing() {
	stopTimer(rc.pingTimer)
}

func (rc *ReconnectController) ArmConnect() {
	stopTimer(rc.connectTimer)
	if rc.connectTimeout > 0 {
		rc.connectTimer.Reset(rc.connectTimeout)
	}
}

func (rc *ReconnectController) StopConnect() {
	stopTimer(rc.connectTimer)
}

// ArmReconnect schedules the next reconnect attempt, or does nothing when
// reconnectPeriod<=0: a session configured that way never auto-reconnects.
func (rc *ReconnectController) ArmReconnect() {
	stopTimer(rc.reconnectTimer)
	if rc.reconnectPeriod <= 0 {
		return
	}
	rc.reconnectTimer.Reset(rc.reconnectPeriod)
}

func (rc *ReconnectController) StopReconnect() {
	stopTimer(rc.reconnectTimer)
}

func (rc *ReconnectController) StopAll() {
	rc.StopPing()
	rc.StopConnect()
	rc.StopReconnect()
}
