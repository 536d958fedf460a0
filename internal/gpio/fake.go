package gpio

import (
	"sync"

	"github.com/sweeney/bench-rover/internal/logic"
)

// DriveCall is one recorded Drive.
type DriveCall struct {
	Dir   logic.Direction
	Power uint8
}

// FakeMotor records drive commands.
type FakeMotor struct {
	mu     sync.Mutex
	calls  []DriveCall
	Closed bool
}

// Drive records the call.
func (m *FakeMotor) Drive(dir logic.Direction, power uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, DriveCall{Dir: dir, Power: power})
}

// Calls returns a copy of the recorded calls.
func (m *FakeMotor) Calls() []DriveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DriveCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Last returns the most recent call, or a stop if none.
func (m *FakeMotor) Last() DriveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return DriveCall{Dir: logic.DirStop}
	}
	return m.calls[len(m.calls)-1]
}

// Close marks the motor as closed.
func (m *FakeMotor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// FakeLight records LED writes.
type FakeLight struct {
	mu     sync.Mutex
	on     bool
	writes int
}

// Set records the new level.
func (l *FakeLight) Set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = on
	l.writes++
}

// On returns the current level.
func (l *FakeLight) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Writes returns the number of Set calls.
func (l *FakeLight) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}

// Reading is one scripted range measurement.
type Reading struct {
	CM  int
	Err error
}

// FakeRanger is a test double that returns scripted range readings.
type FakeRanger struct {
	mu sync.Mutex

	// Readings are consumed one per MeasureOnce. When exhausted, the last
	// reading repeats.
	Readings []Reading

	index int
	calls int
}

// NewFakeRanger creates a FakeRanger that always reads cm.
func NewFakeRanger(cm int) *FakeRanger {
	return &FakeRanger{Readings: []Reading{{CM: cm}}}
}

// MeasureOnce returns the next scripted reading. With no readings configured
// it reports no echo.
func (r *FakeRanger) MeasureOnce() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.Readings) == 0 {
		return 0, ErrNoEcho
	}
	rd := r.Readings[r.index]
	if r.index < len(r.Readings)-1 {
		r.index++
	}
	return rd.CM, rd.Err
}

// Set replaces the script with a constant reading.
func (r *FakeRanger) Set(cm int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Readings = []Reading{{CM: cm, Err: err}}
	r.index = 0
}

// Calls returns the number of measurements taken.
func (r *FakeRanger) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
