// Package logic contains the control core of the rover: the motion controller,
// the distance filter and the status indicator.
// This package has NO hardware dependencies (no GPIO, serial, MQTT or OS access).
// Time is always injected as Millis values, and the only blocking call goes
// through an injected sleep function.
package logic

import (
	"fmt"
	"time"
)

// Millis is a wrapping millisecond counter since boot.
// Compare values only through Since; never with < or >.
type Millis uint32

// Since returns the time elapsed from earlier to t. The unsigned subtraction
// stays correct across a single wrap of the counter.
func (t Millis) Since(earlier Millis) Millis {
	return t - earlier
}

// Duration converts t to a time.Duration.
func (t Millis) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

// ToMillis converts d to Millis, truncating sub-millisecond precision.
func ToMillis(d time.Duration) Millis {
	if d <= 0 {
		return 0
	}
	return Millis(d.Milliseconds())
}

// Deadline is a point in time stored as a start and a length, so that
// reaching it can be tested with a wraparound-safe subtraction.
type Deadline struct {
	Start  Millis
	Length Millis
	armed  bool
}

// NewDeadline returns a deadline that is reached length after start.
func NewDeadline(start, length Millis) Deadline {
	return Deadline{Start: start, Length: length, armed: true}
}

// Armed reports whether the deadline is set.
func (d Deadline) Armed() bool {
	return d.armed
}

// Reached reports whether now is at or past the deadline.
// An unarmed deadline is never reached.
func (d Deadline) Reached(now Millis) bool {
	return d.armed && now.Since(d.Start) >= d.Length
}

// Clock supplies the current monotonic time.
type Clock interface {
	Now() Millis
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() Millis

// Now calls f.
func (f ClockFunc) Now() Millis {
	return f()
}

// SystemClock derives Millis from Go's monotonic clock.
type SystemClock struct {
	boot time.Time
}

// NewSystemClock returns a clock whose zero is the moment of the call.
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

// Now returns milliseconds since the clock was created, wrapping at 2^32.
func (c *SystemClock) Now() Millis {
	return Millis(uint32(time.Since(c.boot).Milliseconds()))
}

// Direction is a drive command for the motor driver.
type Direction int

const (
	DirStop Direction = iota
	DirForward
	DirBackward
	DirRotateCW
	DirRotateCCW
)

func (d Direction) String() string {
	switch d {
	case DirStop:
		return "STOP"
	case DirForward:
		return "FORWARD"
	case DirBackward:
		return "BACKWARD"
	case DirRotateCW:
		return "ROTATE_CW"
	case DirRotateCCW:
		return "ROTATE_CCW"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Actuator executes drive commands. Fire-and-forget: there is no feedback.
type Actuator interface {
	Drive(dir Direction, power uint8)
}

// RangeSensor performs one raw distance measurement in centimeters.
// It returns an error when no reading was obtained within its timeout.
type RangeSensor interface {
	MeasureOnce() (int, error)
}

// Light is a single on/off indicator output.
type Light interface {
	Set(on bool)
}

// LinkStatus reports whether an operator link is currently connected.
type LinkStatus interface {
	IsConnected() bool
}

// Reporter receives operator-facing messages from the core.
type Reporter interface {
	Report(msg string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(msg string)

// Report calls f.
func (f ReporterFunc) Report(msg string) {
	f(msg)
}

// Discard is a Reporter that drops every message.
var Discard Reporter = ReporterFunc(func(string) {})

func reportf(r Reporter, format string, args ...any) {
	r.Report(fmt.Sprintf(format, args...))
}

// EventType identifies a tick-driven transition worth publishing.
type EventType string

const (
	EventTimedMoveComplete EventType = "TIMED_MOVE_COMPLETE"
	EventAvoidanceStart    EventType = "AVOIDANCE_START"
	EventAvoidanceTurn     EventType = "AVOIDANCE_TURN"
	EventAvoidanceComplete EventType = "AVOIDANCE_COMPLETE"
	EventObstacle          EventType = "OBSTACLE"
	EventSensorFault       EventType = "SENSOR_FAULT"
	EventSensorRecovered   EventType = "SENSOR_RECOVERED"
)

// Event is a transition produced by a tick.
type Event struct {
	Time     Millis
	Type     EventType
	Distance int // cm, for OBSTACLE and sensor events; 0 otherwise
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	TimedMoves       int
	Avoidances       int
	Obstacles        int
	SensorFaults     int
	SensorRecoveries int
}

func (c *EventCounts) add(e Event) {
	switch e.Type {
	case EventTimedMoveComplete:
		c.TimedMoves++
	case EventAvoidanceStart:
		c.Avoidances++
	case EventObstacle:
		c.Obstacles++
	case EventSensorFault:
		c.SensorFaults++
	case EventSensorRecovered:
		c.SensorRecoveries++
	}
}
