// Package config loads optional tuning overrides for the control core from a
// JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/bench-rover/internal/logic"
)

// TuningConfig holds overrides for the motion, distance and indicator
// tuning. Every field is optional; nil keeps the compiled-in default.
// Durations are strings like "500ms".
type TuningConfig struct {
	// Motion
	DefaultSpeed     *int    `json:"default_speed,omitempty"`
	MinSpeed         *int    `json:"min_speed,omitempty"`
	MaxSpeed         *int    `json:"max_speed,omitempty"`
	TurnSpeed        *int    `json:"turn_speed,omitempty"`
	AvoidBackSpeed   *int    `json:"avoid_back_speed,omitempty"`
	TurnMsPer90      *int    `json:"turn_ms_per_90,omitempty"`
	TurnSettle       *string `json:"turn_settle,omitempty"`
	BackDuration     *string `json:"back_duration,omitempty"`
	TurnAwayDuration *string `json:"turn_away_duration,omitempty"`

	// Distance filter
	Samples           *int    `json:"samples,omitempty"`
	SamplePause       *string `json:"sample_pause,omitempty"`
	MinValidCM        *int    `json:"min_valid_cm,omitempty"`
	MaxValidCM        *int    `json:"max_valid_cm,omitempty"`
	ObstacleCM        *int    `json:"obstacle_cm,omitempty"`
	FallbackCM        *int    `json:"fallback_cm,omitempty"`
	FailureAlert      *int    `json:"failure_alert,omitempty"`
	CheckInterval     *string `json:"check_interval,omitempty"`
	ClearPathCM       *int    `json:"clear_path_cm,omitempty"`
	FarCM             *int    `json:"far_cm,omitempty"`
	ClearPathInterval *string `json:"clear_path_interval,omitempty"`
	FarInterval       *string `json:"far_interval,omitempty"`

	// Indicator
	ConnectionBlink *string `json:"connection_blink,omitempty"`
	MovementBlink   *string `json:"movement_blink,omitempty"`
	FastBlink       *string `json:"fast_blink,omitempty"`
	ObstacleBlink   *string `json:"obstacle_blink,omitempty"`
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Unknown keys are
// rejected so a misspelt override does not silently fall back to the default.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	cfg := &TuningConfig{}
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func checkSpeed(name string, v *int) error {
	if v != nil && (*v < 1 || *v > 255) {
		return fmt.Errorf("%s must be between 1 and 255, got %d", name, *v)
	}
	return nil
}

func checkPositive(name string, v *int) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, *v)
	}
	return nil
}

func checkDuration(name string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative, got %s", name, *v)
	}
	return nil
}

// Validate checks the values that are set.
func (c *TuningConfig) Validate() error {
	speeds := []struct {
		name string
		v    *int
	}{
		{"default_speed", c.DefaultSpeed},
		{"min_speed", c.MinSpeed},
		{"max_speed", c.MaxSpeed},
		{"turn_speed", c.TurnSpeed},
		{"avoid_back_speed", c.AvoidBackSpeed},
	}
	for _, s := range speeds {
		if err := checkSpeed(s.name, s.v); err != nil {
			return err
		}
	}

	positives := []struct {
		name string
		v    *int
	}{
		{"turn_ms_per_90", c.TurnMsPer90},
		{"samples", c.Samples},
		{"max_valid_cm", c.MaxValidCM},
		{"obstacle_cm", c.ObstacleCM},
		{"fallback_cm", c.FallbackCM},
		{"failure_alert", c.FailureAlert},
		{"clear_path_cm", c.ClearPathCM},
		{"far_cm", c.FarCM},
	}
	for _, p := range positives {
		if err := checkPositive(p.name, p.v); err != nil {
			return err
		}
	}
	if c.MinValidCM != nil && *c.MinValidCM < 0 {
		return fmt.Errorf("min_valid_cm must not be negative, got %d", *c.MinValidCM)
	}

	durations := []struct {
		name string
		v    *string
	}{
		{"turn_settle", c.TurnSettle},
		{"back_duration", c.BackDuration},
		{"turn_away_duration", c.TurnAwayDuration},
		{"sample_pause", c.SamplePause},
		{"check_interval", c.CheckInterval},
		{"clear_path_interval", c.ClearPathInterval},
		{"far_interval", c.FarInterval},
		{"connection_blink", c.ConnectionBlink},
		{"movement_blink", c.MovementBlink},
		{"fast_blink", c.FastBlink},
		{"obstacle_blink", c.ObstacleBlink},
	}
	for _, d := range durations {
		if err := checkDuration(d.name, d.v); err != nil {
			return err
		}
	}

	if c.MinSpeed != nil && c.MaxSpeed != nil && *c.MinSpeed > *c.MaxSpeed {
		return fmt.Errorf("min_speed %d exceeds max_speed %d", *c.MinSpeed, *c.MaxSpeed)
	}
	if c.MinValidCM != nil && c.MaxValidCM != nil && *c.MinValidCM >= *c.MaxValidCM {
		return fmt.Errorf("min_valid_cm %d must be below max_valid_cm %d", *c.MinValidCM, *c.MaxValidCM)
	}
	if c.ClearPathCM != nil && c.FarCM != nil && *c.ClearPathCM >= *c.FarCM {
		return fmt.Errorf("clear_path_cm %d must be below far_cm %d", *c.ClearPathCM, *c.FarCM)
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// setDuration assumes v was checked by Validate.
func setDuration(dst *time.Duration, v *string) {
	if v == nil {
		return
	}
	if d, err := time.ParseDuration(*v); err == nil {
		*dst = d
	}
}

// Motion returns base with the motion overrides applied.
func (c *TuningConfig) Motion(base logic.MotionConfig) (logic.MotionConfig, error) {
	setInt(&base.DefaultSpeed, c.DefaultSpeed)
	setInt(&base.MinSpeed, c.MinSpeed)
	setInt(&base.MaxSpeed, c.MaxSpeed)
	setInt(&base.TurnSpeed, c.TurnSpeed)
	setInt(&base.AvoidBackSpeed, c.AvoidBackSpeed)
	setInt(&base.TurnMsPer90, c.TurnMsPer90)
	setDuration(&base.TurnSettle, c.TurnSettle)
	setDuration(&base.BackDuration, c.BackDuration)
	setDuration(&base.TurnAwayDuration, c.TurnAwayDuration)

	if base.MinSpeed > base.MaxSpeed {
		return base, fmt.Errorf("min speed %d exceeds max speed %d", base.MinSpeed, base.MaxSpeed)
	}
	if base.DefaultSpeed < base.MinSpeed || base.DefaultSpeed > base.MaxSpeed {
		return base, fmt.Errorf("default speed %d outside %d-%d", base.DefaultSpeed, base.MinSpeed, base.MaxSpeed)
	}
	return base, nil
}

// Filter returns base with the distance filter overrides applied.
func (c *TuningConfig) Filter(base logic.FilterConfig) (logic.FilterConfig, error) {
	setInt(&base.Samples, c.Samples)
	setDuration(&base.SamplePause, c.SamplePause)
	setInt(&base.MinValid, c.MinValidCM)
	setInt(&base.MaxValid, c.MaxValidCM)
	setInt(&base.ObstacleDistance, c.ObstacleCM)
	setInt(&base.Fallback, c.FallbackCM)
	setInt(&base.FailureAlert, c.FailureAlert)
	setDuration(&base.CheckInterval, c.CheckInterval)
	setInt(&base.ClearPathDistance, c.ClearPathCM)
	setInt(&base.FarDistance, c.FarCM)
	setDuration(&base.ClearPathInterval, c.ClearPathInterval)
	setDuration(&base.FarInterval, c.FarInterval)

	if base.MinValid >= base.MaxValid {
		return base, fmt.Errorf("min valid distance %d must be below max %d", base.MinValid, base.MaxValid)
	}
	if base.ClearPathDistance >= base.FarDistance {
		return base, fmt.Errorf("clear path distance %d must be below far distance %d", base.ClearPathDistance, base.FarDistance)
	}
	return base, nil
}

// Indicator returns base with the blink interval overrides applied.
func (c *TuningConfig) Indicator(base logic.IndicatorConfig) logic.IndicatorConfig {
	setDuration(&base.ConnectionBlink, c.ConnectionBlink)
	setDuration(&base.MovementBlink, c.MovementBlink)
	setDuration(&base.FastBlink, c.FastBlink)
	setDuration(&base.ObstacleBlink, c.ObstacleBlink)
	return base
}
