// Package status provides a thread-safe status tracker for the bench-rover
// daemon. It is written by the control loop and read by HTTP handlers and the
// heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/bench-rover/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	TurnMsPer90 int64
	Broker      string
	HTTPAddr    string
	Serial      string
	Bluetooth   string
}

// Rover is the control state copied out of the core on every tick.
type Rover struct {
	Motion    logic.MotionState
	Speed     int
	Indicator logic.IndicatorStatus
	// Distance is the last valid reading in cm; 0 before the first one.
	Distance     int
	Failures     int
	SensorFault  bool
	AvoidEnabled bool
	Debug        bool
}

// Link is the state of one command channel.
type Link struct {
	Name      string
	Connected bool
}

// MQTT is the broker connection state.
type MQTT struct {
	Connected  bool
	Queued     int
	Dropped    int
	Reconnects int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	BootID    string
	Rover     Rover
	Counts    logic.EventCounts
	Links     []Link
	MQTT      MQTT
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given boot ID, start time and config.
func NewTracker(bootID string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the rover state and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(rover Rover, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Rover = rover
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetLinks replaces the command channel states.
func (t *Tracker) SetLinks(links []Link) {
	cp := make([]Link, len(links))
	copy(cp, links)
	t.mu.Lock()
	t.snap.Links = cp
	t.mu.Unlock()
}

// SetMQTT sets the broker connection state.
func (t *Tracker) SetMQTT(m MQTT) {
	t.mu.Lock()
	t.snap.MQTT = m
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Links = append([]Link(nil), t.snap.Links...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

// RoverFrom reads the tracked state out of the core.
func RoverFrom(v *logic.Vehicle, ind *logic.Indicator) Rover {
	m, f := v.Motion(), v.Filter()
	r := Rover{
		Motion:       m.State(),
		Speed:        m.Speed(),
		Distance:     f.LastValidDistance(),
		Failures:     f.ConsecutiveFailures(),
		SensorFault:  f.Faulted(),
		AvoidEnabled: f.AvoidanceEnabled(),
		Debug:        f.Debug(),
	}
	if ind != nil {
		r.Indicator = ind.Status()
	}
	return r
}
