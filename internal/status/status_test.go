package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/bench-rover/internal/gpio"
	"github.com/sweeney/bench-rover/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{TickMs: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker("boot-1", start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.BootID != "boot-1" {
		t.Errorf("BootID: got %q, want boot-1", snap.BootID)
	}
	if snap.Config.TickMs != 50 {
		t.Errorf("Config.TickMs: got %d, want 50", snap.Config.TickMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.MQTT.Connected {
		t.Error("expected MQTT.Connected=false initially")
	}
	if len(snap.Links) != 0 {
		t.Errorf("expected no links initially, got %v", snap.Links)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker("b", start, Config{})

	rover := Rover{
		Motion:       logic.MotionState{Kind: logic.MotionMoving, Direction: logic.DirForward, Speed: 200},
		Speed:        150,
		Indicator:    logic.StatusForward,
		Distance:     87,
		AvoidEnabled: true,
	}
	tr.Update(rover, logic.EventCounts{Obstacles: 3, Avoidances: 1})

	snap := tr.Snapshot()
	if snap.Rover.Motion.Kind != logic.MotionMoving {
		t.Errorf("Motion.Kind: got %v, want MOVING", snap.Rover.Motion.Kind)
	}
	if snap.Rover.Distance != 87 {
		t.Errorf("Distance: got %d, want 87", snap.Rover.Distance)
	}
	if snap.Counts.Obstacles != 3 {
		t.Errorf("Counts.Obstacles: got %d, want 3", snap.Counts.Obstacles)
	}
	if snap.Counts.Avoidances != 1 {
		t.Errorf("Counts.Avoidances: got %d, want 1", snap.Counts.Avoidances)
	}
}

func TestSetMQTT(t *testing.T) {
	tr := NewTracker("b", start, Config{})

	tr.SetMQTT(MQTT{Connected: true, Queued: 2, Reconnects: 1})
	snap := tr.Snapshot()
	if !snap.MQTT.Connected || snap.MQTT.Queued != 2 || snap.MQTT.Reconnects != 1 {
		t.Errorf("unexpected MQTT state: %+v", snap.MQTT)
	}

	tr.SetMQTT(MQTT{})
	if tr.Snapshot().MQTT.Connected {
		t.Error("expected MQTT.Connected=false")
	}
}

func TestSetLinksCopies(t *testing.T) {
	tr := NewTracker("b", start, Config{})

	links := []Link{{Name: "Serial", Connected: true}, {Name: "Bluetooth"}}
	tr.SetLinks(links)
	links[1].Connected = true

	snap := tr.Snapshot()
	if len(snap.Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(snap.Links))
	}
	if snap.Links[1].Connected {
		t.Error("tracker should not alias the caller's slice")
	}

	snap.Links[0].Connected = false
	if !tr.Snapshot().Links[0].Connected {
		t.Error("snapshot should not alias the tracker's slice")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker("b", start, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker("b", start, Config{})
	tr.Update(Rover{Speed: 100}, logic.EventCounts{Obstacles: 1})

	snap1 := tr.Snapshot()
	tr.Update(Rover{Speed: 200}, logic.EventCounts{Obstacles: 2})

	if snap1.Rover.Speed != 100 {
		t.Error("snapshot should be a copy; Speed was modified")
	}
	if snap1.Counts.Obstacles != 1 {
		t.Error("snapshot should be a copy; Counts was modified")
	}
}

func TestRoverFrom(t *testing.T) {
	ranger := gpio.NewFakeRanger(80)
	motor := &gpio.FakeMotor{}
	ind := logic.NewIndicator(&gpio.FakeLight{}, &gpio.FakeLight{}, nil, logic.DefaultIndicatorConfig())
	clock := logic.ClockFunc(func() logic.Millis { return 0 })
	noSleep := func(time.Duration) {}

	motion := logic.NewMotionController(motor, ind, clock, noSleep, nil, logic.DefaultMotionConfig())
	filter := logic.NewDistanceFilter(ranger, noSleep, nil, logic.DefaultFilterConfig())
	v := logic.NewVehicle(motion, filter)

	filter.Warmup()
	filter.SetDebug(true)
	motion.MoveBackwardWithSpeed(120, 3)

	r := RoverFrom(v, ind)
	if r.Motion.Kind != logic.MotionMoving || r.Motion.Direction != logic.DirBackward {
		t.Errorf("motion: got %v %v, want MOVING BACKWARD", r.Motion.Kind, r.Motion.Direction)
	}
	if r.Motion.Speed != 120 {
		t.Errorf("motion speed: got %d, want 120", r.Motion.Speed)
	}
	if r.Speed != logic.DefaultSpeed {
		t.Errorf("default speed: got %d, want %d", r.Speed, logic.DefaultSpeed)
	}
	if r.Distance != 80 {
		t.Errorf("distance: got %d, want 80", r.Distance)
	}
	if r.Indicator != logic.StatusBackward {
		t.Errorf("indicator: got %v, want BACKWARD", r.Indicator)
	}
	if !r.AvoidEnabled || !r.Debug || r.SensorFault {
		t.Errorf("flags: avoid=%v debug=%v fault=%v", r.AvoidEnabled, r.Debug, r.SensorFault)
	}
}

func testSnapshot() Snapshot {
	return Snapshot{
		BootID: "3f2a9c10",
		Rover: Rover{
			Motion: logic.MotionState{
				Kind:      logic.MotionAvoiding,
				Direction: logic.DirBackward,
				Speed:     logic.AvoidBackSpeed,
				Phase:     logic.AvoidancePhase{Step: logic.PhaseBacking},
			},
			Speed:        150,
			Indicator:    logic.StatusObstacle,
			Distance:     18,
			AvoidEnabled: true,
		},
		Counts:    logic.EventCounts{Obstacles: 5, Avoidances: 2, TimedMoves: 1},
		Links:     []Link{{Name: "Serial", Connected: true}, {Name: "Bluetooth"}},
		MQTT:      MQTT{Connected: true, Queued: 0, Dropped: 4, Reconnects: 1},
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{TickMs: 50, HeartbeatMs: 900000, TurnMsPer90: 1500, Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.BootID != "3f2a9c10" {
		t.Errorf("BootID: got %q", s.BootID)
	}
	if s.Motion.State != "AVOIDING" || s.Motion.AvoidPhase != "BACKING" {
		t.Errorf("Motion: got %+v", s.Motion)
	}
	if s.Motion.Direction != "BACKWARD" || s.Motion.Speed != 150 {
		t.Errorf("Motion direction/speed: got %+v", s.Motion)
	}
	if s.Indicator != "OBSTACLE" {
		t.Errorf("Indicator: got %q, want OBSTACLE", s.Indicator)
	}
	if s.Sensor.DistanceCM != 18 || !s.Sensor.AvoidEnabled {
		t.Errorf("Sensor: got %+v", s.Sensor)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Dropped != 4 || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if len(s.Links) != 2 || !s.Links[0].Connected || s.Links[1].Name != "Bluetooth" {
		t.Errorf("Links: got %+v", s.Links)
	}
	if s.Counts.Obstacles != 5 {
		t.Errorf("Counts.Obstacles: got %d, want 5", s.Counts.Obstacles)
	}
	if s.Config.TurnMsPer90 != 1500 {
		t.Errorf("Config.TurnMsPer90: got %d, want 1500", s.Config.TurnMsPer90)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONIdle(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	motion := raw["status"]["motion"].(map[string]interface{})
	if motion["state"] != "IDLE" || motion["direction"] != "STOP" {
		t.Errorf("motion: got %v", motion)
	}
	if _, has := motion["avoid_phase"]; has {
		t.Error("avoid_phase should be omitted when not avoiding")
	}
	if links, ok := raw["status"]["links"].([]interface{}); !ok || len(links) != 0 {
		t.Errorf("links should be an empty array, got %v", raw["status"]["links"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker("b", time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(Rover{Distance: i}, logic.EventCounts{Obstacles: i})
			tr.SetMQTT(MQTT{Connected: i%2 == 0})
			tr.SetLinks([]Link{{Name: "Serial", Connected: i%3 == 0}})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
