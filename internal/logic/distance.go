package logic

import (
	"sort"
	"time"
)

// DistanceFilter turns raw range readings into a robust distance and an
// obstacle signal polled at an adaptive cadence.
type DistanceFilter struct {
	sensor RangeSensor
	sleep  func(time.Duration)
	rep    Reporter
	cfg    FilterConfig

	enabled bool
	enables int
	debug   bool

	// Only a successful read overwrites lastValid.
	lastValid int
	failures  int
	warned    bool

	// Check cadence; reset whenever avoidance is re-enabled.
	checked       bool
	lastCheck     Millis
	lastFullCheck Millis
	lastDistance  int
}

// NewDistanceFilter creates a filter with obstacle checking enabled.
// Call Warmup once before the first tick.
func NewDistanceFilter(sensor RangeSensor, sleep func(time.Duration), rep Reporter, cfg FilterConfig) *DistanceFilter {
	if rep == nil {
		rep = Discard
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	if cfg.Samples < 1 {
		cfg.Samples = 1
	}
	return &DistanceFilter{
		sensor:  sensor,
		sleep:   sleep,
		rep:     rep,
		cfg:     cfg,
		enabled: true,
	}
}

// Warmup takes one reading to settle the sensor.
func (f *DistanceFilter) Warmup() int {
	return f.ValidDistance()
}

// ValidDistance samples the sensor and returns the median of the in-range
// readings. When no reading is in range it returns a value that reads as a
// clear path, or half the last good distance once failures persist.
func (f *DistanceFilter) ValidDistance() int {
	valid := make([]int, 0, f.cfg.Samples)
	for i := 0; i < f.cfg.Samples; i++ {
		if i > 0 && f.cfg.SamplePause > 0 {
			f.sleep(f.cfg.SamplePause)
		}
		cm, err := f.sensor.MeasureOnce()
		if f.debug {
			if err != nil {
				reportf(f.rep, "Debug - Reading attempt %d: %v", i+1, err)
			} else {
				reportf(f.rep, "Debug - Reading attempt %d: %dcm", i+1, cm)
			}
		}
		if err == nil && cm >= f.cfg.MinValid && cm < f.cfg.MaxValid {
			valid = append(valid, cm)
		}
	}

	if len(valid) == 0 {
		return f.failed()
	}

	f.failures = 0
	f.warned = false
	sort.Ints(valid)
	f.lastValid = valid[len(valid)/2]
	return f.lastValid
}

func (f *DistanceFilter) failed() int {
	f.failures++
	if f.debug {
		reportf(f.rep, "Debug - No valid readings (%d consecutive failures). Check connections.", f.failures)
	}
	if f.failures < f.cfg.FailureAlert {
		return f.cfg.Fallback
	}
	if !f.warned {
		f.warned = true
		f.rep.Report("WARNING: Ultrasonic sensor may be disconnected or malfunctioning")
	}
	if f.lastValid > 0 {
		return f.lastValid / 2
	}
	return f.cfg.Fallback
}

// MaybeCheckObstacle reports whether an obstacle is within detection range.
// It returns false without sampling when checking is disabled or not yet due.
func (f *DistanceFilter) MaybeCheckObstacle(now Millis) bool {
	obstacle, _ := f.CheckObstacle(now)
	return obstacle
}

// CheckObstacle is MaybeCheckObstacle that also reports whether the sensor
// was actually sampled.
func (f *DistanceFilter) CheckObstacle(now Millis) (obstacle, sampled bool) {
	if !f.enabled {
		return false, false
	}
	if f.checked {
		if now.Since(f.lastCheck) < ToMillis(f.cfg.CheckInterval) {
			return false, false
		}
		f.lastCheck = now
		if f.lastDistance > f.cfg.ClearPathDistance && now.Since(f.lastFullCheck) < f.backoff(f.lastDistance) {
			return false, false
		}
	}

	d := f.ValidDistance()
	f.checked = true
	f.lastCheck = now
	f.lastFullCheck = now
	f.lastDistance = d
	if f.debug {
		reportf(f.rep, "Debug - Current distance: %dcm", d)
	}
	return d > f.cfg.MinValid && d <= f.cfg.ObstacleDistance, true
}

// backoff returns the full-check interval for a clear path at distance d.
func (f *DistanceFilter) backoff(d int) Millis {
	lo, hi := ToMillis(f.cfg.ClearPathInterval), ToMillis(f.cfg.FarInterval)
	span := f.cfg.FarDistance - f.cfg.ClearPathDistance
	if d >= f.cfg.FarDistance || span <= 0 {
		return hi
	}
	if d <= f.cfg.ClearPathDistance {
		return lo
	}
	return lo + Millis(int64(hi-lo)*int64(d-f.cfg.ClearPathDistance)/int64(span))
}

// SetAvoidanceEnabled turns obstacle checking on or off. Re-enabling starts
// the check cadence afresh.
func (f *DistanceFilter) SetAvoidanceEnabled(on bool) {
	if on && !f.enabled {
		f.enables++
		f.checked = false
		f.lastCheck = 0
		f.lastFullCheck = 0
		f.lastDistance = 0
	}
	f.enabled = on
}

// Enables counts off-to-on transitions of obstacle checking.
func (f *DistanceFilter) Enables() int {
	return f.enables
}

// AvoidanceEnabled reports whether obstacle checking is on.
func (f *DistanceFilter) AvoidanceEnabled() bool {
	return f.enabled
}

// SetDebug turns per-reading diagnostics on or off.
func (f *DistanceFilter) SetDebug(on bool) {
	f.debug = on
}

// Debug reports whether per-reading diagnostics are on.
func (f *DistanceFilter) Debug() bool {
	return f.debug
}

// LastValidDistance returns the last successful reading, or 0 if none yet.
func (f *DistanceFilter) LastValidDistance() int {
	return f.lastValid
}

// LastCheckedDistance returns the result of the last obstacle check.
func (f *DistanceFilter) LastCheckedDistance() int {
	return f.lastDistance
}

// ConsecutiveFailures returns the number of reads in a row with no valid sample.
func (f *DistanceFilter) ConsecutiveFailures() int {
	return f.failures
}

// Faulted reports whether failures have reached the alert threshold.
func (f *DistanceFilter) Faulted() bool {
	return f.failures >= f.cfg.FailureAlert
}
