package logic

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestValidDistanceMedian(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		queue   []int
		want    int
	}{
		{"odd count drops out-of-range", 5, []int{40, 1, 35, 999, 90}, 40},
		{"even count takes upper middle", 4, []int{10, 40, 30, 20}, 30},
		{"single valid sample", 3, []int{-1, 77, 400}, 77},
		{"lower bound inclusive", 1, []int{2}, 2},
		{"upper bound exclusive", 2, []int{399, 400}, 399},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFilterConfig()
			cfg.Samples = tt.samples
			s := &fakeSensor{queue: tt.queue, rest: -1}
			f := NewDistanceFilter(s, func(time.Duration) {}, nil, cfg)

			if got := f.ValidDistance(); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if f.LastValidDistance() != tt.want {
				t.Errorf("LastValidDistance: got %d, want %d", f.LastValidDistance(), tt.want)
			}
			if s.calls != tt.samples {
				t.Errorf("sensor calls: got %d, want %d", s.calls, tt.samples)
			}
		})
	}
}

func TestValidDistancePausesBetweenSamplesOnly(t *testing.T) {
	f, sl := newTestFilter(&fakeSensor{rest: 50}, nil)

	f.ValidDistance()

	want := []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}
	if diff := cmp.Diff(want, sl.slept); diff != "" {
		t.Errorf("pauses (-want +got):\n%s", diff)
	}
}

func TestValidDistanceFailuresWithoutHistory(t *testing.T) {
	msgs := &messages{}
	f, _ := newTestFilter(&fakeSensor{rest: -1}, msgs)

	for i := 1; i <= 6; i++ {
		if got := f.ValidDistance(); got != FallbackDistance {
			t.Errorf("failure %d: got %d, want fallback %d", i, got, FallbackDistance)
		}
	}
	if f.ConsecutiveFailures() != 6 {
		t.Errorf("failures: got %d, want 6", f.ConsecutiveFailures())
	}
	if n := msgs.count("WARNING"); n != 1 {
		t.Errorf("expected one warning, got %d", n)
	}
}

func TestValidDistanceFailuresWithHistory(t *testing.T) {
	msgs := &messages{}
	s := &fakeSensor{rest: 40}
	f, _ := newTestFilter(s, msgs)

	if got := f.ValidDistance(); got != 40 {
		t.Fatalf("priming read: got %d, want 40", got)
	}

	s.rest = -1
	var got []int
	for i := 0; i < 6; i++ {
		got = append(got, f.ValidDistance())
	}
	want := []int{1000, 1000, 1000, 1000, 20, 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if !f.Faulted() {
		t.Error("expected faulted after 5 failures")
	}
	if f.LastValidDistance() != 40 {
		t.Errorf("failures must not overwrite last valid, got %d", f.LastValidDistance())
	}
	if n := msgs.count("WARNING: Ultrasonic sensor may be disconnected or malfunctioning"); n != 1 {
		t.Errorf("expected exactly one warning, got %d", n)
	}
}

func TestValidDistanceWarningRearmsAfterSuccess(t *testing.T) {
	msgs := &messages{}
	s := &fakeSensor{rest: -1}
	f, _ := newTestFilter(s, msgs)

	for i := 0; i < 5; i++ {
		f.ValidDistance()
	}
	s.rest = 60
	f.ValidDistance()
	if f.ConsecutiveFailures() != 0 || f.Faulted() {
		t.Fatalf("success should clear failures, got %d", f.ConsecutiveFailures())
	}
	s.rest = -1
	for i := 0; i < 5; i++ {
		f.ValidDistance()
	}

	if n := msgs.count("WARNING"); n != 2 {
		t.Errorf("expected a warning per failure streak, got %d", n)
	}
}

func TestValidDistanceDebugMessages(t *testing.T) {
	msgs := &messages{}
	f, _ := newTestFilter(&fakeSensor{queue: []int{-1, 50, 60}}, msgs)
	f.SetDebug(true)

	f.ValidDistance()

	want := messages{
		"Debug - Reading attempt 1: no echo",
		"Debug - Reading attempt 2: 50cm",
		"Debug - Reading attempt 3: 60cm",
	}
	if diff := cmp.Diff(want, *msgs); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
}

func TestCheckObstacleBoundaries(t *testing.T) {
	tests := []struct {
		reading int
		want    bool
	}{
		{2, false},
		{3, true},
		{25, true},
		{26, false},
		{399, false},
	}
	for _, tt := range tests {
		f, _ := newTestFilter(&fakeSensor{rest: tt.reading}, nil)
		got, sampled := f.CheckObstacle(0)
		if !sampled {
			t.Fatalf("reading %d: first check should sample", tt.reading)
		}
		if got != tt.want {
			t.Errorf("reading %d: obstacle = %v, want %v", tt.reading, got, tt.want)
		}
	}
}

func TestCheckObstacleMinimumInterval(t *testing.T) {
	s := &fakeSensor{rest: 50}
	f, _ := newTestFilter(s, nil)

	var sampledAt []Millis
	for now := Millis(0); now <= 600; now += 50 {
		if _, sampled := f.CheckObstacle(now); sampled {
			sampledAt = append(sampledAt, now)
		}
	}

	want := []Millis{0, 200, 400, 600}
	if diff := cmp.Diff(want, sampledAt); diff != "" {
		t.Errorf("sample times (-want +got):\n%s", diff)
	}
	if s.calls != 4*3 {
		t.Errorf("sensor calls: got %d, want 12", s.calls)
	}
}

func TestCheckObstacleBacksOffOnClearPath(t *testing.T) {
	s := &fakeSensor{rest: 200}
	f, _ := newTestFilter(s, nil)

	var sampledAt []Millis
	for now := Millis(0); now <= 3200; now += 200 {
		if _, sampled := f.CheckObstacle(now); sampled {
			sampledAt = append(sampledAt, now)
		}
	}

	// 200cm sits halfway between 100cm and 300cm, so full checks run
	// every 1500ms on the 200ms grid.
	want := []Millis{0, 1600, 3200}
	if diff := cmp.Diff(want, sampledAt); diff != "" {
		t.Errorf("sample times (-want +got):\n%s", diff)
	}
}

func TestBackoffInterpolation(t *testing.T) {
	f, _ := newTestFilter(&fakeSensor{}, nil)

	tests := []struct {
		d    int
		want Millis
	}{
		{50, 1000},
		{100, 1000},
		{150, 1250},
		{200, 1500},
		{300, 2000},
		{1000, 2000},
	}
	for _, tt := range tests {
		if got := f.backoff(tt.d); got != tt.want {
			t.Errorf("backoff(%d) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestCheckObstacleDisabled(t *testing.T) {
	s := &fakeSensor{rest: 10}
	f, _ := newTestFilter(s, nil)
	f.SetAvoidanceEnabled(false)

	for now := Millis(0); now < 2000; now += 100 {
		if f.MaybeCheckObstacle(now) {
			t.Fatalf("t=%d: disabled filter reported an obstacle", now)
		}
	}
	if s.calls != 0 {
		t.Errorf("disabled filter sampled %d times", s.calls)
	}
}

func TestReenableResetsCadenceOnly(t *testing.T) {
	s := &fakeSensor{rest: 250}
	f, _ := newTestFilter(s, nil)
	f.CheckObstacle(1000)

	s.rest = -1
	f.ValidDistance()
	f.ValidDistance()

	f.SetAvoidanceEnabled(false)
	f.SetAvoidanceEnabled(true)

	// A fresh cadence samples straight away despite the clear-path backoff.
	s.rest = 20
	obstacle, sampled := f.CheckObstacle(1100)
	if !sampled || !obstacle {
		t.Errorf("expected an immediate sample with obstacle, got obstacle=%v sampled=%v", obstacle, sampled)
	}
	if f.LastValidDistance() != 20 {
		t.Errorf("LastValidDistance: got %d, want 20", f.LastValidDistance())
	}
}

func TestReenableKeepsFailureHistory(t *testing.T) {
	s := &fakeSensor{rest: 250}
	f, _ := newTestFilter(s, nil)
	f.ValidDistance()
	s.rest = -1
	f.ValidDistance()
	f.ValidDistance()

	f.SetAvoidanceEnabled(false)
	f.SetAvoidanceEnabled(true)

	if f.ConsecutiveFailures() != 2 {
		t.Errorf("failures: got %d, want 2", f.ConsecutiveFailures())
	}
	if f.LastValidDistance() != 250 {
		t.Errorf("LastValidDistance: got %d, want 250", f.LastValidDistance())
	}
}

func TestEnableWhileEnabledKeepsCadence(t *testing.T) {
	s := &fakeSensor{rest: 50}
	f, _ := newTestFilter(s, nil)
	f.CheckObstacle(0)

	f.SetAvoidanceEnabled(true)

	if _, sampled := f.CheckObstacle(100); sampled {
		t.Error("enabling an enabled filter should not reset the cadence")
	}
	if f.Enables() != 0 {
		t.Errorf("Enables: got %d, want 0", f.Enables())
	}

	f.SetAvoidanceEnabled(false)
	f.SetAvoidanceEnabled(false)
	f.SetAvoidanceEnabled(true)
	if f.Enables() != 1 {
		t.Errorf("Enables after off/on: got %d, want 1", f.Enables())
	}
}
