package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/bench-rover/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	BootID        string     `json:"boot_id"`
	Motion        MotionJSON `json:"motion"`
	Sensor        SensorJSON `json:"sensor"`
	Indicator     string     `json:"indicator"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Links         []LinkJSON `json:"links"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// MotionJSON reports what the motors are doing.
type MotionJSON struct {
	State     string `json:"state"`
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
	// DefaultSpeed is the speed used by moves without an explicit one.
	DefaultSpeed int    `json:"default_speed"`
	Timed        bool   `json:"timed"`
	AvoidPhase   string `json:"avoid_phase,omitempty"`
}

// SensorJSON reports the distance filter.
type SensorJSON struct {
	DistanceCM          int  `json:"distance_cm"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
	Fault               bool `json:"fault"`
	AvoidEnabled        bool `json:"avoid_enabled"`
	Debug               bool `json:"debug"`
}

// LinkJSON is one command channel.
type LinkJSON struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected  bool   `json:"connected"`
	Broker     string `json:"broker"`
	Queued     int    `json:"queued"`
	Dropped    int    `json:"dropped"`
	Reconnects int    `json:"reconnects"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	TimedMoves       int `json:"timed_moves"`
	Avoidances       int `json:"avoidances"`
	Obstacles        int `json:"obstacles"`
	SensorFaults     int `json:"sensor_faults"`
	SensorRecoveries int `json:"sensor_recoveries"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	TurnMsPer90 int64  `json:"turn_ms_per_90"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Serial      string `json:"serial,omitempty"`
	Bluetooth   string `json:"bluetooth,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Rover
	motion := MotionJSON{
		State:        r.Motion.Kind.String(),
		Direction:    r.Motion.Direction.String(),
		Speed:        r.Motion.Speed,
		DefaultSpeed: r.Speed,
		Timed:        r.Motion.Timed.Armed(),
	}
	if r.Motion.Kind == logic.MotionAvoiding {
		motion.AvoidPhase = r.Motion.Phase.Step.String()
	}

	links := make([]LinkJSON, 0, len(snap.Links))
	for _, l := range snap.Links {
		links = append(links, LinkJSON{Name: l.Name, Connected: l.Connected})
	}

	return StatusInner{
		BootID: snap.BootID,
		Motion: motion,
		Sensor: SensorJSON{
			DistanceCM:          r.Distance,
			ConsecutiveFailures: r.Failures,
			Fault:               r.SensorFault,
			AvoidEnabled:        r.AvoidEnabled,
			Debug:               r.Debug,
		},
		Indicator:     r.Indicator.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Links:         links,
		MQTT: MQTTStatus{
			Connected:  snap.MQTT.Connected,
			Broker:     snap.Config.Broker,
			Queued:     snap.MQTT.Queued,
			Dropped:    snap.MQTT.Dropped,
			Reconnects: snap.MQTT.Reconnects,
		},
		Counts: CountsJSON{
			TimedMoves:       snap.Counts.TimedMoves,
			Avoidances:       snap.Counts.Avoidances,
			Obstacles:        snap.Counts.Obstacles,
			SensorFaults:     snap.Counts.SensorFaults,
			SensorRecoveries: snap.Counts.SensorRecoveries,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			TurnMsPer90: snap.Config.TurnMsPer90,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Serial:      snap.Config.Serial,
			Bluetooth:   snap.Config.Bluetooth,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
