package device

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// Sim is simulated hardware, driven from another goroutine
// (e.g. the console) while the control loop samples it.
type Sim struct {
	knob    atomic.Int32
	pressed atomic.Bool
	led     atomic.Bool
}

// NewSim creates simulated hardware with the knob at raw.
func NewSim(raw int) *Sim {
	s := &Sim{}
	s.knob.Store(int32(raw))
	return s
}

// Hardware returns the channels backed by the simulation.
func (s *Sim) Hardware() Hardware {
	return Hardware{Knob: simKnob{s}, Button: simButton{s}, LED: simLED{s}}
}

// SetKnob moves the knob to a raw position.
func (s *Sim) SetKnob(raw int) {
	s.knob.Store(int32(raw))
}

// Knob returns the raw knob position.
func (s *Sim) Knob() int {
	return int(s.knob.Load())
}

// SetPressed presses or releases the button.
func (s *Sim) SetPressed(pressed bool) {
	s.pressed.Store(pressed)
}

// Pressed returns the button level.
func (s *Sim) Pressed() bool {
	return s.pressed.Load()
}

// LED returns the LED level.
func (s *Sim) LED() bool {
	return s.led.Load()
}

type simKnob struct{ *Sim }

func (k simKnob) ReadAnalog() (int, error) { return k.Knob(), nil }

type simButton struct{ *Sim }

func (b simButton) ReadDigital() (bool, error) { return b.Pressed(), nil }

type simLED struct{ *Sim }

func (l simLED) WriteDigital(on bool) error {
	if l.led.Swap(on) != on {
		glog.V(1).Infof("[SIM] LED %v", on)
	}
	return nil
}
