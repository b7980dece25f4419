// Package device abstracts the knob hardware.
package device

// AnalogInput is an analog channel, e.g. the potentiometer.
type AnalogInput interface {
	// ReadAnalog reads a raw sample in [0, full scale].
	ReadAnalog() (int, error)
}

// DigitalInput is a digital channel, e.g. the mute button.
type DigitalInput interface {
	// ReadDigital reads the logical level, true means active
	// (pressed). Active-low wiring is inverted by the implementation.
	ReadDigital() (bool, error)
}

// DigitalOutput drives a digital line, e.g. the status LED.
type DigitalOutput interface {
	WriteDigital(bool) error
}

// Hardware groups the channels of one knob.
type Hardware struct {
	Knob   AnalogInput
	Button DigitalInput
	// LED is optional.
	LED DigitalOutput
}

type nopOutput struct{}

func (nopOutput) WriteDigital(bool) error { return nil }

// NopOutput discards writes.
var NopOutput DigitalOutput = nopOutput{}
