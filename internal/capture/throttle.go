package capture

import "time"

// Frame rates used by the camera pipeline.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// Throttle switches between an idle and an active frame rate. Activity
// switches to the active rate at once; the idle rate returns after
// idleAfter without activity.
type Throttle struct {
	idleFPS   int
	activeFPS int
	idleAfter time.Duration

	active       bool
	lastActivity time.Time
}

// NewThrottle creates a throttle in idle mode. Zero values use the defaults.
func NewThrottle(idleFPS, activeFPS int, idleAfter time.Duration) *Throttle {
	if idleFPS <= 0 {
		idleFPS = IdleFPS
	}
	if activeFPS <= 0 {
		activeFPS = ActiveFPS
	}
	if idleAfter <= 0 {
		idleAfter = IdleTimeout
	}
	return &Throttle{idleFPS: idleFPS, activeFPS: activeFPS, idleAfter: idleAfter}
}

// Active reports whether the throttle is in active mode.
func (t *Throttle) Active() bool {
	return t.active
}

// FPS returns the frame rate of the current mode.
func (t *Throttle) FPS() int {
	if t.active {
		return t.activeFPS
	}
	return t.idleFPS
}

// Interval returns the frame interval of the current mode.
func (t *Throttle) Interval() time.Duration {
	return time.Second / time.Duration(t.FPS())
}

// Observe records whether the latest frame showed activity and reports
// whether the mode switched.
func (t *Throttle) Observe(activity bool, now time.Time) bool {
	if activity {
		t.lastActivity = now
		if !t.active {
			t.active = true
			return true
		}
		return false
	}

	if t.active && now.Sub(t.lastActivity) > t.idleAfter {
		t.active = false
		return true
	}
	return false
}
