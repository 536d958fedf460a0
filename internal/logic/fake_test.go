package logic

import (
	"errors"
	"strings"
	"time"
)

var errNoEcho = errors.New("no echo")

type driveCall struct {
	Dir   Direction
	Power uint8
}

// fakeActuator records every drive command.
type fakeActuator struct {
	calls []driveCall
}

func (a *fakeActuator) Drive(dir Direction, power uint8) {
	a.calls = append(a.calls, driveCall{Dir: dir, Power: power})
}

func (a *fakeActuator) last() driveCall {
	if len(a.calls) == 0 {
		return driveCall{Dir: -1}
	}
	return a.calls[len(a.calls)-1]
}

// fakeLight records every write.
type fakeLight struct {
	on     bool
	writes []bool
}

func (l *fakeLight) Set(on bool) {
	l.on = on
	l.writes = append(l.writes, on)
}

type fakeLink struct {
	connected bool
}

func (l *fakeLink) IsConnected() bool {
	return l.connected
}

// fakeSensor returns queued readings first, then rest forever.
// A negative reading simulates a missing echo.
type fakeSensor struct {
	queue []int
	rest  int
	calls int
}

func (s *fakeSensor) MeasureOnce() (int, error) {
	s.calls++
	r := s.rest
	if len(s.queue) > 0 {
		r = s.queue[0]
		s.queue = s.queue[1:]
	}
	if r < 0 {
		return 0, errNoEcho
	}
	return r, nil
}

type manualClock struct {
	now Millis
}

func (c *manualClock) Now() Millis {
	return c.now
}

type sleepLog struct {
	slept []time.Duration
}

func (s *sleepLog) sleep(d time.Duration) {
	s.slept = append(s.slept, d)
}

type messages []string

func (m *messages) Report(msg string) {
	*m = append(*m, msg)
}

func (m messages) count(substr string) int {
	n := 0
	for _, msg := range m {
		if strings.Contains(msg, substr) {
			n++
		}
	}
	return n
}

// rig wires a motion controller to fakes.
type rig struct {
	act      *fakeActuator
	link     *fakeLight
	movement *fakeLight
	conn     *fakeLink
	clock    *manualClock
	sleeps   *sleepLog
	msgs     *messages
	ind      *Indicator
	mc       *MotionController
}

func newRig() *rig {
	r := &rig{
		act:      &fakeActuator{},
		link:     &fakeLight{},
		movement: &fakeLight{},
		conn:     &fakeLink{},
		clock:    &manualClock{},
		sleeps:   &sleepLog{},
		msgs:     &messages{},
	}
	r.ind = NewIndicator(r.link, r.movement, r.conn, DefaultIndicatorConfig())
	r.mc = NewMotionController(r.act, r.ind, r.clock, r.sleeps.sleep, r.msgs, DefaultMotionConfig())
	return r
}

func newTestFilter(sensor *fakeSensor, msgs *messages) (*DistanceFilter, *sleepLog) {
	sl := &sleepLog{}
	var rep Reporter = Discard
	if msgs != nil {
		rep = msgs
	}
	return NewDistanceFilter(sensor, sl.sleep, rep, DefaultFilterConfig()), sl
}
