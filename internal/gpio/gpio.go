// Package gpio drives the rover hardware: the motor shift register and PWM
// channels, the two indicator LEDs, and the ultrasonic range sensor.
// The real implementation uses the Linux GPIO character device and sysfs PWM.
// The fake implementations allow testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/bench-rover/internal/logic"
)

// ErrNoEcho is returned when the range sensor sees no echo pulse in time.
var ErrNoEcho = errors.New("gpio: no echo")

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Pins holds line offsets (BCM numbering) on the GPIO chip.
type Pins struct {
	Data  int // 74HC595 serial data
	Clock int // 74HC595 shift clock (SHCP)
	Latch int // 74HC595 storage clock (STCP)
	En    int // 74HC595 output enable, active low

	Trig int
	Echo int

	LinkLED     int
	MovementLED int
}

// DefaultPins returns the bench wiring.
func DefaultPins() Pins {
	return Pins{
		Data:        5,
		Clock:       6,
		Latch:       13,
		En:          16,
		Trig:        23,
		Echo:        24,
		LinkLED:     25,
		MovementLED: 17,
	}
}

// Direction bytes for the motor shield's shift register.
const (
	CodeStop         byte = 0
	CodeForward      byte = 163
	CodeBackward     byte = 92
	CodeContrarotate byte = 83
	CodeClockwise    byte = 172
)

// DirectionCode maps a drive direction to the shift register byte.
func DirectionCode(dir logic.Direction) (byte, error) {
	switch dir {
	case logic.DirStop:
		return CodeStop, nil
	case logic.DirForward:
		return CodeForward, nil
	case logic.DirBackward:
		return CodeBackward, nil
	case logic.DirRotateCW:
		return CodeClockwise, nil
	case logic.DirRotateCCW:
		return CodeContrarotate, nil
	}
	return 0, fmt.Errorf("gpio: unknown direction %v", dir)
}

// lineSetter is the part of an output line the bit-banged protocols need.
type lineSetter interface {
	SetValue(int) error
}

// shiftOut clocks b out MSB first.
func shiftOut(data, clock lineSetter, b byte) error {
	for i := 7; i >= 0; i-- {
		bit := int(b>>uint(i)) & 1
		if err := data.SetValue(bit); err != nil {
			return fmt.Errorf("data bit %d: %w", i, err)
		}
		if err := clock.SetValue(1); err != nil {
			return fmt.Errorf("clock high: %w", err)
		}
		if err := clock.SetValue(0); err != nil {
			return fmt.Errorf("clock low: %w", err)
		}
	}
	return nil
}

// latchByte shifts b into the register and latches it onto the outputs.
func latchByte(data, clock, latch lineSetter, b byte) error {
	if err := latch.SetValue(0); err != nil {
		return fmt.Errorf("latch low: %w", err)
	}
	if err := shiftOut(data, clock, b); err != nil {
		return err
	}
	if err := latch.SetValue(1); err != nil {
		return fmt.Errorf("latch high: %w", err)
	}
	return nil
}

// Echo timing.
const (
	EchoTimeout   = 30 * time.Millisecond
	RangeAttempts = 2
	// Centimetres travelled by sound per microsecond, there and back.
	cmPerMicrosecond = 0.0343
)

// Centimeters converts an echo pulse width to a distance.
func Centimeters(width time.Duration) float64 {
	us := float64(width) / float64(time.Microsecond)
	return us * cmPerMicrosecond / 2
}

// pulseDecoder pairs echo edges into pulse widths. Edge timestamps come from
// the kernel, so widths are immune to scheduling delay in the handler.
type pulseDecoder struct {
	high   bool
	rising time.Duration
}

// edge records one edge and returns the pulse width when a falling edge
// closes a pulse.
func (p *pulseDecoder) edge(rising bool, ts time.Duration) (time.Duration, bool) {
	if rising {
		p.high = true
		p.rising = ts
		return 0, false
	}
	if !p.high {
		return 0, false
	}
	p.high = false
	if ts < p.rising {
		return 0, false
	}
	return ts - p.rising, true
}
