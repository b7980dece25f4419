package input

import "github.com/robotalks/volknob/pkg/volume"

// DefaultChangeThreshold is the jitter band of the knob, in levels.
const DefaultChangeThreshold = 2

// Sampler maps raw analog readings to levels and emits a level only
// when it moves more than Threshold away from the last emitted one.
type Sampler struct {
	AnalogMax int
	Threshold int

	last volume.Level
}

// NewSampler creates a Sampler.
func NewSampler(analogMax, threshold int) *Sampler {
	return &Sampler{AnalogMax: analogMax, Threshold: threshold}
}

// Prime seeds the last emitted level with the first reading and
// returns it.
func (s *Sampler) Prime(raw int) volume.Level {
	s.last = volume.Scale(raw, s.AnalogMax)
	return s.last
}

// Last returns the last emitted level.
func (s *Sampler) Last() volume.Level {
	return s.last
}

// Sample returns the level of the reading, and whether it is emitted.
func (s *Sampler) Sample(raw int) (volume.Level, bool) {
	level := volume.Scale(raw, s.AnalogMax)
	delta := int(level - s.last)
	if delta < 0 {
		delta = -delta
	}
	if delta <= s.Threshold {
		return level, false
	}
	s.last = level
	return level, true
}
