// Package volume models the volume/mute state of the knob.
package volume

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a volume level in [MinLevel, MaxLevel].
type Level int

// Level bounds.
const (
	MinLevel Level = 0
	MaxLevel Level = 100
)

// DefaultAnalogMax is the full scale of a 12-bit ADC.
const DefaultAnalogMax = 4095

// Scale maps a raw analog reading in [0, analogMax] linearly to a Level,
// rounding down. Readings outside the range are clamped.
func Scale(raw, analogMax int) Level {
	if analogMax <= 0 {
		analogMax = DefaultAnalogMax
	}
	if raw < 0 {
		raw = 0
	} else if raw > analogMax {
		raw = analogMax
	}
	return Level(raw * int(MaxLevel) / analogMax)
}

// ParseLevel parses a decimal payload like "42".
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", s, err)
	}
	if n < int(MinLevel) || n > int(MaxLevel) {
		return 0, fmt.Errorf("level %d out of range", n)
	}
	return Level(n), nil
}

// String implements fmt.Stringer, the wire representation.
func (l Level) String() string {
	return strconv.Itoa(int(l))
}
