// Package sysfs reads the knob through Linux sysfs attributes:
// an IIO ADC channel (in_voltageN_raw) and GPIO value files.
package sysfs

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/robotalks/volknob/pkg/device"
)

// attr is an open sysfs attribute, re-read from offset 0 each time.
type attr struct {
	file *os.File
	buf  [32]byte
}

func openAttr(path string, flag int) (*attr, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return &attr{file: f}, nil
}

func (a *attr) read() ([]byte, error) {
	n, err := a.file.ReadAt(a.buf[:], 0)
	if n == 0 && err != nil {
		return nil, fmt.Errorf("read %s: %w", a.file.Name(), err)
	}
	return bytes.TrimSpace(a.buf[:n]), nil
}

func (a *attr) Close() error {
	return a.file.Close()
}

// ADC is an IIO analog channel.
type ADC struct {
	attr *attr
}

// OpenADC opens a raw IIO attribute, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage6_raw.
func OpenADC(path string) (*ADC, error) {
	a, err := openAttr(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	return &ADC{attr: a}, nil
}

// ReadAnalog implements device.AnalogInput.
func (c *ADC) ReadAnalog() (int, error) {
	data, err := c.attr.read()
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("adc %s: %w", c.attr.file.Name(), err)
	}
	return val, nil
}

// Close implements io.Closer.
func (c *ADC) Close() error {
	return c.attr.Close()
}

// GPIO is an exported GPIO line, e.g. /sys/class/gpio/gpio25/value.
type GPIO struct {
	ActiveLow bool

	attr *attr
}

// OpenGPIO opens a GPIO value file for reading.
func OpenGPIO(path string, activeLow bool) (*GPIO, error) {
	a, err := openAttr(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	return &GPIO{ActiveLow: activeLow, attr: a}, nil
}

// OpenGPIOOutput opens a GPIO value file for writing.
func OpenGPIOOutput(path string, activeLow bool) (*GPIO, error) {
	a, err := openAttr(path, os.O_RDWR)
	if err != nil {
		return nil, err
	}
	return &GPIO{ActiveLow: activeLow, attr: a}, nil
}

// ReadDigital implements device.DigitalInput.
func (g *GPIO) ReadDigital() (bool, error) {
	data, err := g.attr.read()
	if err != nil {
		return false, err
	}
	var high bool
	switch string(data) {
	case "0":
	case "1":
		high = true
	default:
		return false, fmt.Errorf("gpio %s: unexpected value %q", g.attr.file.Name(), data)
	}
	return high != g.ActiveLow, nil
}

// WriteDigital implements device.DigitalOutput.
func (g *GPIO) WriteDigital(on bool) error {
	val := []byte("0")
	if on != g.ActiveLow {
		val = []byte("1")
	}
	if _, err := g.attr.file.WriteAt(val, 0); err != nil {
		return fmt.Errorf("gpio %s: %w", g.attr.file.Name(), err)
	}
	return nil
}

// Close implements io.Closer.
func (g *GPIO) Close() error {
	return g.attr.Close()
}

// Config locates the knob channels.
type Config struct {
	ADCPath         string `yaml:"adc_path"`
	ButtonPath      string `yaml:"button_path"`
	ButtonActiveLow bool   `yaml:"button_active_low"`
	LEDPath         string `yaml:"led_path,omitempty"`
}

// Open opens all channels of the config. LED is optional.
func (c Config) Open() (device.Hardware, error) {
	adc, err := OpenADC(c.ADCPath)
	if err != nil {
		return device.Hardware{}, err
	}
	button, err := OpenGPIO(c.ButtonPath, c.ButtonActiveLow)
	if err != nil {
		adc.Close()
		return device.Hardware{}, err
	}
	hw := device.Hardware{Knob: adc, Button: button, LED: device.NopOutput}
	if c.LEDPath != "" {
		led, err := OpenGPIOOutput(c.LEDPath, false)
		if err != nil {
			adc.Close()
			button.Close()
			return device.Hardware{}, err
		}
		hw.LED = led
	}
	return hw, nil
}
