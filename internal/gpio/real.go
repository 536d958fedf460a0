//go:build linux

package gpio

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/bench-rover/internal/logic"
)

// RealMotor drives the motor shield: a direction byte on the 74HC595 and the
// same power on both PWM channels.
type RealMotor struct {
	chip  *gpiocdev.Chip
	data  *gpiocdev.Line
	clock *gpiocdev.Line
	latch *gpiocdev.Line
	en    *gpiocdev.Line
	pwm   []*PWMChannel
}

// NewRealMotor requests the shift register lines and opens PWM channels 0
// and 1 on pwmChip. The motors start stopped.
func NewRealMotor(chipName string, pins Pins, pwmChip string) (*RealMotor, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	m := &RealMotor{chip: chip}

	outputs := []struct {
		name string
		pin  int
		dst  **gpiocdev.Line
		init int
	}{
		{"data", pins.Data, &m.data, 0},
		{"clock", pins.Clock, &m.clock, 0},
		{"latch", pins.Latch, &m.latch, 0},
		// Outputs disabled until the first Drive.
		{"enable", pins.En, &m.en, 1},
	}
	for _, o := range outputs {
		l, err := chip.RequestLine(o.pin, gpiocdev.AsOutput(o.init))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", o.name, o.pin, err)
		}
		*o.dst = l
	}

	for ch := 0; ch < 2; ch++ {
		p, err := OpenPWM(pwmChip, ch, DefaultPWMPeriod)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("open pwm channel %d: %w", ch, err)
		}
		m.pwm = append(m.pwm, p)
	}

	if err := m.apply(CodeStop, 0); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// Drive sets direction and power. Hardware errors are logged; the control
// loop has no way to act on them.
func (m *RealMotor) Drive(dir logic.Direction, power uint8) {
	code, err := DirectionCode(dir)
	if err != nil {
		log.Printf("motor: %v", err)
		return
	}
	if err := m.apply(code, power); err != nil {
		log.Printf("motor: drive %v@%d: %v", dir, power, err)
	}
}

func (m *RealMotor) apply(code byte, power uint8) error {
	if err := m.en.SetValue(0); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	for i, p := range m.pwm {
		if err := p.SetPower(power); err != nil {
			return fmt.Errorf("pwm %d: %w", i, err)
		}
	}
	return latchByte(m.data, m.clock, m.latch, code)
}

// Close stops the motors and releases the lines. The enable line is left
// high so the shield outputs float while nothing drives them.
func (m *RealMotor) Close() error {
	var errs []error

	if m.data != nil && m.clock != nil && m.latch != nil {
		if err := latchByte(m.data, m.clock, m.latch, CodeStop); err != nil {
			errs = append(errs, fmt.Errorf("stop: %w", err))
		}
	}
	for i, p := range m.pwm {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pwm %d: %w", i, err))
		}
	}
	if m.en != nil {
		if err := m.en.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("disable outputs: %w", err))
		}
	}
	for _, l := range []*gpiocdev.Line{m.data, m.clock, m.latch, m.en} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLight is an LED on one output line.
type RealLight struct {
	name string
	line *gpiocdev.Line
}

// NewRealLight requests pin as an output, initially off.
func NewRealLight(chipName, name string, pin int) (*RealLight, error) {
	line, err := gpiocdev.RequestLine(chipName, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request %s led pin %d: %w", name, pin, err)
	}
	return &RealLight{name: name, line: line}, nil
}

// Set turns the LED on or off.
func (l *RealLight) Set(on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		log.Printf("led: %s: %v", l.name, err)
	}
}

// Close switches the LED off and releases the line.
func (l *RealLight) Close() error {
	l.line.SetValue(0)
	// Reconfigure as input so the pin is in its boot default after exit.
	if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
		l.line.Close()
		return fmt.Errorf("reconfigure %s led: %w", l.name, err)
	}
	return l.line.Close()
}

// RealRanger measures distance with an HC-SR04 style sensor. Echo edges are
// timestamped by the kernel and paired into pulse widths.
type RealRanger struct {
	trig   *gpiocdev.Line
	echo   *gpiocdev.Line
	pulses chan time.Duration

	decoder pulseDecoder
}

// NewRealRanger requests the trigger and echo lines.
func NewRealRanger(chipName string, trigPin, echoPin int) (*RealRanger, error) {
	r := &RealRanger{pulses: make(chan time.Duration, 4)}

	trig, err := gpiocdev.RequestLine(chipName, trigPin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request trig pin %d: %w", trigPin, err)
	}
	r.trig = trig

	echo, err := gpiocdev.RequestLine(chipName, echoPin,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handleEdge))
	if err != nil {
		trig.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", echoPin, err)
	}
	r.echo = echo
	return r, nil
}

// handleEdge runs on the gpiocdev event goroutine.
func (r *RealRanger) handleEdge(evt gpiocdev.LineEvent) {
	width, ok := r.decoder.edge(evt.Type == gpiocdev.LineEventRisingEdge, evt.Timestamp)
	if !ok {
		return
	}
	select {
	case r.pulses <- width:
	default:
	}
}

// MeasureOnce fires the trigger and returns the distance in whole
// centimetres. It retries once when there is no echo or the reading is out of
// the sensor's range.
func (r *RealRanger) MeasureOnce() (int, error) {
	var cm float64
	for attempt := 0; attempt < RangeAttempts; attempt++ {
		r.drain()
		if err := r.pulse(); err != nil {
			return 0, err
		}
		select {
		case width := <-r.pulses:
			cm = Centimeters(width)
			if cm > 1 && cm < 400 {
				return int(cm), nil
			}
		case <-time.After(EchoTimeout):
		}
		time.Sleep(5 * time.Millisecond)
	}
	if cm == 0 {
		return 0, ErrNoEcho
	}
	return int(cm), nil
}

func (r *RealRanger) pulse() error {
	if err := r.trig.SetValue(0); err != nil {
		return fmt.Errorf("trig low: %w", err)
	}
	time.Sleep(5 * time.Microsecond)
	if err := r.trig.SetValue(1); err != nil {
		return fmt.Errorf("trig high: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := r.trig.SetValue(0); err != nil {
		return fmt.Errorf("trig low: %w", err)
	}
	return nil
}

func (r *RealRanger) drain() {
	for {
		select {
		case <-r.pulses:
		default:
			return
		}
	}
}

// Close releases the sensor lines.
func (r *RealRanger) Close() error {
	var errs []error
	if err := r.echo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close echo: %w", err))
	}
	if err := r.trig.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close trig: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
