package logic

import "time"

// Speed limits (PWM duty, 0-255).
const (
	DefaultSpeed   = 150
	MinSpeed       = 50
	MaxSpeed       = 255
	TurnSpeed      = 180
	AvoidBackSpeed = 150
)

// Turn timing per 90 degrees. The Bluetooth build and the bench build of the
// car were tuned separately; pick the one matching the chassis.
const (
	TurnMsPer90Bluetooth = 1500
	TurnMsPer90Bench     = 1250
)

// Distance thresholds in centimeters.
const (
	MinValidDistance          = 2
	MaxValidDistance          = 400
	ObstacleDetectionDistance = 25
	FallbackDistance          = 1000
	ClearPathDistance         = 100
	FarDistance               = 300
)

// Indicator intervals.
const (
	ConnectionBlinkInterval = 500 * time.Millisecond
	MovementBlinkInterval   = 300 * time.Millisecond
	FastBlinkInterval       = 150 * time.Millisecond
	ObstacleBlinkInterval   = 100 * time.Millisecond
)

// MotionConfig holds the motion controller tuning.
type MotionConfig struct {
	DefaultSpeed   int
	MinSpeed       int
	MaxSpeed       int
	TurnSpeed      int
	AvoidBackSpeed int

	// TurnMsPer90 is the rotation time for a 90 degree turn.
	TurnMsPer90 int
	// TurnSettle is the pause between stopping and starting a rotation.
	TurnSettle time.Duration

	BackDuration     time.Duration
	TurnAwayDuration time.Duration
}

// DefaultMotionConfig returns the Bluetooth build tuning.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		DefaultSpeed:     DefaultSpeed,
		MinSpeed:         MinSpeed,
		MaxSpeed:         MaxSpeed,
		TurnSpeed:        TurnSpeed,
		AvoidBackSpeed:   AvoidBackSpeed,
		TurnMsPer90:      TurnMsPer90Bluetooth,
		TurnSettle:       50 * time.Millisecond,
		BackDuration:     500 * time.Millisecond,
		TurnAwayDuration: 1000 * time.Millisecond,
	}
}

// FilterConfig holds the distance filter tuning.
type FilterConfig struct {
	Samples     int
	SamplePause time.Duration

	MinValid         int
	MaxValid         int
	ObstacleDistance int
	Fallback         int
	FailureAlert     int

	CheckInterval time.Duration

	// Adaptive backoff: beyond ClearPathDistance the full-check interval grows
	// linearly from ClearPathInterval to FarInterval at FarDistance.
	ClearPathDistance int
	FarDistance       int
	ClearPathInterval time.Duration
	FarInterval       time.Duration
}

// DefaultFilterConfig returns the stock HC-SR04 tuning.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Samples:           3,
		SamplePause:       10 * time.Millisecond,
		MinValid:          MinValidDistance,
		MaxValid:          MaxValidDistance,
		ObstacleDistance:  ObstacleDetectionDistance,
		Fallback:          FallbackDistance,
		FailureAlert:      5,
		CheckInterval:     200 * time.Millisecond,
		ClearPathDistance: ClearPathDistance,
		FarDistance:       FarDistance,
		ClearPathInterval: 1000 * time.Millisecond,
		FarInterval:       2000 * time.Millisecond,
	}
}

// IndicatorConfig holds the blink intervals.
type IndicatorConfig struct {
	ConnectionBlink time.Duration
	MovementBlink   time.Duration
	FastBlink       time.Duration
	ObstacleBlink   time.Duration
}

// DefaultIndicatorConfig returns the stock blink intervals.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		ConnectionBlink: ConnectionBlinkInterval,
		MovementBlink:   MovementBlinkInterval,
		FastBlink:       FastBlinkInterval,
		ObstacleBlink:   ObstacleBlinkInterval,
	}
}
