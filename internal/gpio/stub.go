//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/bench-rover/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealMotor is not available on non-Linux platforms.
type RealMotor struct{}

// NewRealMotor returns an error on non-Linux platforms.
func NewRealMotor(chipName string, pins Pins, pwmChip string) (*RealMotor, error) {
	return nil, errUnsupported
}

// Drive does nothing on non-Linux platforms.
func (m *RealMotor) Drive(dir logic.Direction, power uint8) {}

// Close is not implemented on non-Linux platforms.
func (m *RealMotor) Close() error { return nil }

// RealLight is not available on non-Linux platforms.
type RealLight struct{}

// NewRealLight returns an error on non-Linux platforms.
func NewRealLight(chipName, name string, pin int) (*RealLight, error) {
	return nil, errUnsupported
}

// Set does nothing on non-Linux platforms.
func (l *RealLight) Set(on bool) {}

// Close is not implemented on non-Linux platforms.
func (l *RealLight) Close() error { return nil }

// RealRanger is not available on non-Linux platforms.
type RealRanger struct{}

// NewRealRanger returns an error on non-Linux platforms.
func NewRealRanger(chipName string, trigPin, echoPin int) (*RealRanger, error) {
	return nil, errUnsupported
}

// MeasureOnce is not implemented on non-Linux platforms.
func (r *RealRanger) MeasureOnce() (int, error) {
	return 0, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealRanger) Close() error { return nil }
