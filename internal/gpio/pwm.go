package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultPWMChip is the sysfs directory of the Pi's hardware PWM block.
const DefaultPWMChip = "/sys/class/pwm/pwmchip0"

// DefaultPWMPeriod is about 1 kHz, close to an AVR analogWrite.
const DefaultPWMPeriod = time.Millisecond

// PWMChannel is one sysfs PWM output carrying motor power.
type PWMChannel struct {
	dir    string
	period time.Duration
}

// OpenPWM exports channel on chip if needed, sets the period and enables the
// output at zero duty.
func OpenPWM(chip string, channel int, period time.Duration) (*PWMChannel, error) {
	dir := filepath.Join(chip, "pwm"+strconv.Itoa(channel))
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := writeSysfs(filepath.Join(chip, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm%d: %w", channel, err)
		}
	}

	p := &PWMChannel{dir: dir, period: period}
	// duty_cycle must not exceed period, so zero it first.
	if err := p.write("duty_cycle", 0); err != nil {
		return nil, err
	}
	if err := p.write("period", period.Nanoseconds()); err != nil {
		return nil, err
	}
	if err := p.write("enable", 1); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPower sets the duty cycle to power/255 of the period.
func (p *PWMChannel) SetPower(power uint8) error {
	duty := p.period.Nanoseconds() * int64(power) / 255
	return p.write("duty_cycle", duty)
}

// Close zeroes and disables the output. The channel stays exported.
func (p *PWMChannel) Close() error {
	if err := p.write("duty_cycle", 0); err != nil {
		return err
	}
	return p.write("enable", 0)
}

func (p *PWMChannel) write(name string, v int64) error {
	if err := writeSysfs(filepath.Join(p.dir, name), strconv.FormatInt(v, 10)); err != nil {
		return fmt.Errorf("pwm %s: %w", name, err)
	}
	return nil
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}
