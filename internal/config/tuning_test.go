package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/bench-rover/internal/logic"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "bench.json", `{
  "turn_ms_per_90": 1250,
  "default_speed": 120,
  "back_duration": "750ms",
  "obstacle_cm": 30,
  "samples": 5,
  "fast_blink": "200ms"
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.TurnMsPer90 == nil || *cfg.TurnMsPer90 != 1250 {
		t.Errorf("Expected TurnMsPer90 1250, got %v", cfg.TurnMsPer90)
	}
	if cfg.BackDuration == nil || *cfg.BackDuration != "750ms" {
		t.Errorf("Expected BackDuration '750ms', got %v", cfg.BackDuration)
	}
	if cfg.MaxSpeed != nil {
		t.Errorf("Expected MaxSpeed unset, got %v", *cfg.MaxSpeed)
	}

	motion, err := cfg.Motion(logic.DefaultMotionConfig())
	if err != nil {
		t.Fatalf("Motion: %v", err)
	}
	if motion.TurnMsPer90 != 1250 || motion.DefaultSpeed != 120 {
		t.Errorf("motion overrides not applied: %+v", motion)
	}
	if motion.BackDuration != 750*time.Millisecond {
		t.Errorf("BackDuration: got %v, want 750ms", motion.BackDuration)
	}
	if motion.MaxSpeed != logic.MaxSpeed {
		t.Errorf("MaxSpeed should keep default, got %d", motion.MaxSpeed)
	}

	filter, err := cfg.Filter(logic.DefaultFilterConfig())
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if filter.ObstacleDistance != 30 || filter.Samples != 5 {
		t.Errorf("filter overrides not applied: %+v", filter)
	}
	if filter.CheckInterval != 200*time.Millisecond {
		t.Errorf("CheckInterval should keep default, got %v", filter.CheckInterval)
	}

	ind := cfg.Indicator(logic.DefaultIndicatorConfig())
	if ind.FastBlink != 200*time.Millisecond {
		t.Errorf("FastBlink: got %v, want 200ms", ind.FastBlink)
	}
	if ind.ConnectionBlink != logic.ConnectionBlinkInterval {
		t.Errorf("ConnectionBlink should keep default, got %v", ind.ConnectionBlink)
	}
}

func TestEmptyConfigKeepsDefaults(t *testing.T) {
	cfg, err := LoadTuningConfig(writeConfig(t, "empty.json", `{}`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	motion, err := cfg.Motion(logic.DefaultMotionConfig())
	if err != nil {
		t.Fatalf("Motion: %v", err)
	}
	if motion != logic.DefaultMotionConfig() {
		t.Errorf("expected defaults, got %+v", motion)
	}
	filter, err := cfg.Filter(logic.DefaultFilterConfig())
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if filter != logic.DefaultFilterConfig() {
		t.Errorf("expected defaults, got %+v", filter)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig(writeConfig(t, "tuning.yaml", `{}`))
	if err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("Expected extension error, got %v", err)
	}
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	body := `{"samples": 3` + strings.Repeat(" ", maxFileSize) + `}`
	_, err := LoadTuningConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", `{"samples": `},
		{"wrong type", `{"samples": "three"}`},
		{"unknown key", `{"turn_ms_per_ninety": 1250}`},
		{"bad value", `{"max_speed": 300}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTuningConfig(writeConfig(t, "c.json", tt.body)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr bool
	}{
		{"empty", TuningConfig{}, false},
		{"speed in range", TuningConfig{DefaultSpeed: ptrInt(255)}, false},
		{"speed zero", TuningConfig{TurnSpeed: ptrInt(0)}, true},
		{"speed too high", TuningConfig{MaxSpeed: ptrInt(256)}, true},
		{"min above max", TuningConfig{MinSpeed: ptrInt(200), MaxSpeed: ptrInt(100)}, true},
		{"turn zero", TuningConfig{TurnMsPer90: ptrInt(0)}, true},
		{"samples zero", TuningConfig{Samples: ptrInt(0)}, true},
		{"min valid negative", TuningConfig{MinValidCM: ptrInt(-1)}, true},
		{"valid range inverted", TuningConfig{MinValidCM: ptrInt(50), MaxValidCM: ptrInt(50)}, true},
		{"backoff range inverted", TuningConfig{ClearPathCM: ptrInt(300), FarCM: ptrInt(100)}, true},
		{"duration ok", TuningConfig{CheckInterval: ptrString("250ms")}, false},
		{"duration unparsable", TuningConfig{SamplePause: ptrString("soon")}, true},
		{"duration negative", TuningConfig{BackDuration: ptrString("-1s")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMotionRejectsDefaultOutsideRange(t *testing.T) {
	cfg := TuningConfig{MinSpeed: ptrInt(100)}
	base := logic.DefaultMotionConfig()
	base.DefaultSpeed = 80

	if _, err := cfg.Motion(base); err == nil {
		t.Error("Expected error for default speed below min, got nil")
	}
}

func TestFilterRejectsMergedRange(t *testing.T) {
	// Each override is valid alone but not against the default far distance.
	cfg := TuningConfig{ClearPathCM: ptrInt(logic.FarDistance)}

	if _, err := cfg.Filter(logic.DefaultFilterConfig()); err == nil {
		t.Error("Expected error for clear path at far distance, got nil")
	}
}
