// Package input turns raw sensor readings into events.
package input

import "time"

// Edge is a committed transition of a debounced digital input.
type Edge int

// Edges.
const (
	RisingEdge Edge = iota + 1
	FallingEdge
)

// String implements fmt.Stringer.
func (e Edge) String() string {
	switch e {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	}
	return "none"
}

// DefaultDebounceWindow is how long a raw level must hold.
const DefaultDebounceWindow = 50 * time.Millisecond

// Debouncer commits a raw digital level only after it has been
// constant for at least Window.
type Debouncer struct {
	Window time.Duration

	stable     bool
	raw        bool
	lastChange time.Time
}

// NewDebouncer creates a Debouncer which starts stable at idle.
func NewDebouncer(window time.Duration, idle bool) *Debouncer {
	return &Debouncer{Window: window, stable: idle, raw: idle}
}

// Stable returns the last committed level.
func (d *Debouncer) Stable() bool {
	return d.stable
}

// Sample feeds one raw reading taken at now. It returns the edge
// committed by this reading, if any.
func (d *Debouncer) Sample(raw bool, now time.Time) (Edge, bool) {
	if raw != d.raw {
		d.raw, d.lastChange = raw, now
	}
	if raw == d.stable || now.Sub(d.lastChange) < d.Window {
		return 0, false
	}
	d.stable = raw
	if raw {
		return RisingEdge, true
	}
	return FallingEdge, true
}
