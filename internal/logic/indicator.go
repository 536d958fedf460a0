package logic

import "fmt"

// IndicatorStatus selects the movement channel pattern.
type IndicatorStatus int

const (
	StatusIdle IndicatorStatus = iota
	StatusForward
	StatusBackward
	StatusTurning
	StatusObstacle
	StatusError
)

func (s IndicatorStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusForward:
		return "FORWARD"
	case StatusBackward:
		return "BACKWARD"
	case StatusTurning:
		return "TURNING"
	case StatusObstacle:
		return "OBSTACLE"
	case StatusError:
		return "ERROR"
	}
	return fmt.Sprintf("IndicatorStatus(%d)", int(s))
}

// obstaclePhases is the length of the double-flash cycle.
const obstaclePhases = 6

// lamp tracks one output and writes it only when the level changes.
type lamp struct {
	light      Light
	on         bool
	written    bool
	lastToggle Millis
	// restart makes the next due call start a fresh interval.
	restart bool
}

func (l *lamp) set(on bool) {
	if l.written && l.on == on {
		return
	}
	l.light.Set(on)
	l.on = on
	l.written = true
}

// due reports whether interval has elapsed since the last toggle and, if so,
// restarts the interval at now.
func (l *lamp) due(now Millis, interval Millis) bool {
	if l.restart {
		l.restart = false
		l.lastToggle = now
		return false
	}
	if now.Since(l.lastToggle) < interval {
		return false
	}
	l.lastToggle = now
	return true
}

// Indicator renders link and movement state on two lights.
type Indicator struct {
	link     lamp
	movement lamp
	conn     LinkStatus

	connectionBlink Millis
	movementBlink   Millis
	fastBlink       Millis
	obstacleBlink   Millis

	status IndicatorStatus
	phase  int
}

// NewIndicator creates an indicator and switches both lights off.
// A nil conn is treated as never connected.
func NewIndicator(link, movement Light, conn LinkStatus, cfg IndicatorConfig) *Indicator {
	ind := &Indicator{
		link:            lamp{light: link},
		movement:        lamp{light: movement},
		conn:            conn,
		connectionBlink: ToMillis(cfg.ConnectionBlink),
		movementBlink:   ToMillis(cfg.MovementBlink),
		fastBlink:       ToMillis(cfg.FastBlink),
		obstacleBlink:   ToMillis(cfg.ObstacleBlink),
	}
	ind.link.set(false)
	ind.movement.set(false)
	return ind
}

// SetStatus switches the movement pattern. The blink phase and interval
// restart, so the first edge of a blinking pattern comes one full interval
// after the next Update. Steady states are applied at once.
func (ind *Indicator) SetStatus(s IndicatorStatus) {
	ind.status = s
	ind.phase = 0
	ind.movement.restart = true

	switch s {
	case StatusIdle:
		ind.movement.set(false)
	case StatusForward:
		ind.movement.set(true)
	}
}

// Status returns the current movement pattern.
func (ind *Indicator) Status() IndicatorStatus {
	return ind.status
}

// Phase returns the double-flash phase counter.
func (ind *Indicator) Phase() int {
	return ind.phase
}

// Lights returns the current link and movement levels.
func (ind *Indicator) Lights() (link, movement bool) {
	return ind.link.on, ind.movement.on
}

// Update advances the time-driven patterns.
func (ind *Indicator) Update(now Millis) {
	if ind.status == StatusError {
		// Both channels alternate; the link channel is taken over.
		if ind.movement.due(now, ind.fastBlink) {
			ind.movement.set(!ind.movement.on)
			ind.link.set(!ind.movement.on)
		}
		return
	}

	if ind.conn != nil && ind.conn.IsConnected() {
		ind.link.set(true)
	} else if ind.link.due(now, ind.connectionBlink) {
		ind.link.set(!ind.link.on)
	}

	switch ind.status {
	case StatusIdle:
		ind.movement.set(false)
	case StatusForward:
		ind.movement.set(true)
	case StatusBackward:
		if ind.movement.due(now, ind.movementBlink) {
			ind.movement.set(!ind.movement.on)
		}
	case StatusTurning:
		if ind.movement.due(now, ind.fastBlink) {
			ind.movement.set(!ind.movement.on)
		}
	case StatusObstacle:
		if ind.movement.due(now, ind.obstacleBlink) {
			// on-off-on-off-off-off
			ind.phase = (ind.phase + 1) % obstaclePhases
			ind.movement.set(ind.phase == 0 || ind.phase == 2)
		}
	}
}
