package logic

import (
	"fmt"
	"math"
	"time"
)

// MotionKind is the active motion state.
type MotionKind int

const (
	MotionIdle MotionKind = iota
	MotionMoving
	MotionTurning
	MotionAvoiding
)

func (k MotionKind) String() string {
	switch k {
	case MotionIdle:
		return "IDLE"
	case MotionMoving:
		return "MOVING"
	case MotionTurning:
		return "TURNING"
	case MotionAvoiding:
		return "AVOIDING"
	}
	return fmt.Sprintf("MotionKind(%d)", int(k))
}

// AvoidStep is the phase of the avoidance maneuver.
type AvoidStep int

const (
	PhaseNone AvoidStep = iota
	PhaseBacking
	PhaseTurningAway
)

func (s AvoidStep) String() string {
	switch s {
	case PhaseNone:
		return "NONE"
	case PhaseBacking:
		return "BACKING"
	case PhaseTurningAway:
		return "TURNING_AWAY"
	}
	return fmt.Sprintf("AvoidStep(%d)", int(s))
}

// AvoidancePhase is set only while the motion state is MotionAvoiding.
type AvoidancePhase struct {
	Step     AvoidStep
	Deadline Deadline
}

// MotionState is a snapshot of what the motors are doing.
type MotionState struct {
	Kind      MotionKind
	Direction Direction
	Speed     int
	// Timed is armed only for a MotionMoving state with a duration.
	Timed Deadline
	Phase AvoidancePhase
}

// maxTimedSeconds keeps a timed move shorter than half the Millis range.
const maxTimedSeconds = math.MaxInt32 / 1000

// MotionController owns the actuator and the movement indicator. It runs timed
// moves and the avoidance maneuver, driven by Tick and by command calls.
type MotionController struct {
	act   Actuator
	ind   *Indicator
	clock Clock
	sleep func(time.Duration)
	rep   Reporter
	cfg   MotionConfig

	speed int
	state MotionState
}

// NewMotionController creates an idle controller. sleep is used only by
// TurnByDegrees.
func NewMotionController(act Actuator, ind *Indicator, clock Clock, sleep func(time.Duration), rep Reporter, cfg MotionConfig) *MotionController {
	if rep == nil {
		rep = Discard
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &MotionController{
		act:   act,
		ind:   ind,
		clock: clock,
		sleep: sleep,
		rep:   rep,
		cfg:   cfg,
		speed: cfg.DefaultSpeed,
	}
}

func (m *MotionController) clamp(v int) int {
	if v < m.cfg.MinSpeed {
		return m.cfg.MinSpeed
	}
	if v > m.cfg.MaxSpeed {
		return m.cfg.MaxSpeed
	}
	return v
}

// SetSpeed stores the default speed for moves without an explicit speed and
// returns the clamped value.
func (m *MotionController) SetSpeed(v int) int {
	m.speed = m.clamp(v)
	reportf(m.rep, "Speed set to %d", m.speed)
	return m.speed
}

// Speed returns the default speed.
func (m *MotionController) Speed() int {
	return m.speed
}

// State returns the current motion state.
func (m *MotionController) State() MotionState {
	return m.state
}

// Avoiding reports whether the avoidance maneuver is running.
func (m *MotionController) Avoiding() bool {
	return m.state.Kind == MotionAvoiding
}

// MoveForward drives forward at the default speed. seconds > 0 stops the
// move automatically after that long.
func (m *MotionController) MoveForward(seconds int) {
	m.move(DirForward, m.speed, seconds)
}

// MoveBackward drives backward at the default speed.
func (m *MotionController) MoveBackward(seconds int) {
	m.move(DirBackward, m.speed, seconds)
}

// MoveForwardWithSpeed drives forward at speed (clamped).
func (m *MotionController) MoveForwardWithSpeed(speed, seconds int) {
	m.move(DirForward, speed, seconds)
}

// MoveBackwardWithSpeed drives backward at speed (clamped).
func (m *MotionController) MoveBackwardWithSpeed(speed, seconds int) {
	m.move(DirBackward, speed, seconds)
}

func (m *MotionController) move(dir Direction, speed, seconds int) {
	speed = m.clamp(speed)

	// Replaces any timed move or avoidance in progress.
	m.state = MotionState{Kind: MotionMoving, Direction: dir, Speed: speed}
	m.act.Drive(dir, uint8(speed))

	name := "forward"
	if dir == DirForward {
		m.ind.SetStatus(StatusForward)
	} else {
		name = "backward"
		m.ind.SetStatus(StatusBackward)
	}

	if seconds <= 0 {
		reportf(m.rep, "Moving %s at speed %d", name, speed)
		return
	}
	if seconds > maxTimedSeconds {
		seconds = maxTimedSeconds
	}
	m.state.Timed = NewDeadline(m.clock.Now(), Millis(seconds)*1000)
	reportf(m.rep, "Moving %s at speed %d for %d seconds", name, speed, seconds)
}

// Stop halts the motors and cancels any timed move or avoidance.
func (m *MotionController) Stop() {
	m.halt()
	m.rep.Report("Stopping")
}

func (m *MotionController) halt() {
	m.act.Drive(DirStop, 0)
	m.ind.SetStatus(StatusIdle)
	m.state = MotionState{Kind: MotionIdle}
}

// TurnDuration returns how long the motors rotate for a turn of deg degrees.
func (m *MotionController) TurnDuration(deg int) time.Duration {
	if deg < 0 {
		deg = -deg
	}
	return time.Duration(deg*m.cfg.TurnMsPer90/90) * time.Millisecond
}

// TurnByDegrees rotates in place, positive clockwise (right), negative
// counter-clockwise (left). It stops first and waits TurnSettle, then rotates
// for TurnDuration(deg), so the call blocks for the sum of the two.
func (m *MotionController) TurnByDegrees(deg int) {
	if deg == 0 {
		m.rep.Report("No turn needed (0 degrees)")
		return
	}

	dir, side, abs := DirRotateCW, "right", deg
	if deg < 0 {
		dir, side, abs = DirRotateCCW, "left", -deg
	}
	reportf(m.rep, "Turning %d degrees %s", abs, side)

	m.ind.SetStatus(StatusTurning)
	m.act.Drive(DirStop, 0)
	m.state = MotionState{Kind: MotionTurning, Direction: dir, Speed: m.cfg.TurnSpeed}
	if m.cfg.TurnSettle > 0 {
		m.sleep(m.cfg.TurnSettle)
	}

	m.act.Drive(dir, uint8(m.cfg.TurnSpeed))
	d := m.TurnDuration(deg)
	reportf(m.rep, "Turn time: %d ms for %d degrees", d.Milliseconds(), abs)
	m.sleep(d)

	m.halt()
	m.rep.Report("Turn complete")
}

// BeginAvoidance starts the back-then-turn maneuver. It does nothing if the
// maneuver is already running.
func (m *MotionController) BeginAvoidance() {
	if m.state.Kind == MotionAvoiding {
		return
	}
	m.ind.SetStatus(StatusObstacle)
	m.act.Drive(DirBackward, uint8(m.cfg.AvoidBackSpeed))
	m.state = MotionState{
		Kind:      MotionAvoiding,
		Direction: DirBackward,
		Speed:     m.cfg.AvoidBackSpeed,
		Phase: AvoidancePhase{
			Step:     PhaseBacking,
			Deadline: NewDeadline(m.clock.Now(), ToMillis(m.cfg.BackDuration)),
		},
	}
	m.rep.Report("Starting avoidance maneuver")
}

// Tick advances the avoidance maneuver and timed moves and refreshes the
// indicator. It returns the transitions that happened.
func (m *MotionController) Tick(now Millis) []Event {
	var events []Event

	if m.state.Kind == MotionAvoiding && m.state.Phase.Deadline.Reached(now) {
		switch m.state.Phase.Step {
		case PhaseBacking:
			m.act.Drive(DirRotateCCW, uint8(m.cfg.TurnSpeed))
			m.state.Direction = DirRotateCCW
			m.state.Speed = m.cfg.TurnSpeed
			m.state.Phase = AvoidancePhase{
				Step:     PhaseTurningAway,
				Deadline: NewDeadline(now, ToMillis(m.cfg.TurnAwayDuration)),
			}
			events = append(events, Event{Time: now, Type: EventAvoidanceTurn})
		default:
			m.halt()
			m.rep.Report("Avoidance maneuver complete")
			events = append(events, Event{Time: now, Type: EventAvoidanceComplete})
		}
	}

	if m.state.Kind == MotionMoving && m.state.Timed.Reached(now) {
		m.halt()
		m.rep.Report("Timed movement complete")
		events = append(events, Event{Time: now, Type: EventTimedMoveComplete})
	}

	m.ind.Update(now)
	return events
}

// ReflectSensorHealth shows the error pattern while the vehicle is idle and
// the range sensor is faulted, and clears it once the sensor recovers.
// Any motion command replaces the error pattern.
func (m *MotionController) ReflectSensorHealth(faulted bool) {
	if m.state.Kind != MotionIdle {
		return
	}
	switch st := m.ind.Status(); {
	case faulted && st == StatusIdle:
		m.ind.SetStatus(StatusError)
	case !faulted && st == StatusError:
		m.ind.SetStatus(StatusIdle)
	}
}
