// Package display renders the knob state.
package display

import (
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/volknob/pkg/framework"
	"github.com/robotalks/volknob/pkg/volume"
)

// View is what is shown on the screen.
type View struct {
	Level   volume.Level `json:"level"`
	Muted   bool         `json:"muted"`
	Address string       `json:"address,omitempty"`
}

// ShowMuted returns true when the mute icon is shown.
// Level 0 is shown as muted.
func (v View) ShowMuted() bool {
	return v.Level == volume.MinLevel || v.Muted
}

// Display renders a View. Render is called once per loop iteration.
type Display interface {
	Render(View) error
}

// Func is the func form of Display.
type Func func(View) error

// Render implements Display.
func (f Func) Render(v View) error {
	return f(v)
}

// Multi renders on all displays.
type Multi []Display

// Render implements Display.
func (m Multi) Render(v View) error {
	errs := &fx.AggregatedError{}
	for _, d := range m {
		errs.Add(d.Render(v))
	}
	return errs.Aggregate()
}

// Log logs the view when it changes.
type Log struct {
	last  View
	valid bool
}

// Render implements Display.
func (l *Log) Render(v View) error {
	if l.valid && l.last == v {
		return nil
	}
	l.last, l.valid = v, true
	glog.Infof("[DISPLAY] volume %d muted %v (%s)", v.Level, v.ShowMuted(), v.Address)
	return nil
}

// Latest keeps the last rendered view for readers on other goroutines.
type Latest struct {
	lock sync.RWMutex
	view View
}

// Render implements Display.
func (l *Latest) Render(v View) error {
	l.lock.Lock()
	l.view = v
	l.lock.Unlock()
	return nil
}

// View returns the last rendered view.
func (l *Latest) View() View {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.view
}
