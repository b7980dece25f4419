package control

import (
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/volknob/pkg/framework"
	"github.com/robotalks/volknob/pkg/transport"
	"github.com/robotalks/volknob/pkg/volume"
)

// DefaultSequenceStep is the pause after each scripted event.
const DefaultSequenceStep = time.Second

// ScriptedEvents is the scripted bench run: three volume steps, mute,
// a volume change while muted, unmute.
func ScriptedEvents() []volume.Event {
	vol := func(l volume.Level) volume.Event { return volume.Event{Kind: volume.EventVolume, Level: l} }
	toggle := volume.Event{Kind: volume.EventMuteToggle}
	return []volume.Event{vol(10), vol(20), vol(30), toggle, vol(50), toggle}
}

// Sequence publishes scripted events one step apart once the link is
// up, then calls Done after the last pause. It doesn't touch the knob
// state.
type Sequence struct {
	Events    []volume.Event
	Step      time.Duration
	Publisher *Publisher
	Done      func()

	next int
	due  time.Time
}

// NewSequence creates the test sequence.
func NewSequence(pub *Publisher, done func()) *Sequence {
	return &Sequence{
		Events:    ScriptedEvents(),
		Step:      DefaultSequenceStep,
		Publisher: pub,
		Done:      done,
	}
}

// AddToLoop implements LoopAdder.
func (s *Sequence) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvControl, s)
}

// Finished returns true after the last pause.
func (s *Sequence) Finished() bool {
	return s.next > len(s.Events)
}

// Control implements Controller.
func (s *Sequence) Control(cc fx.ControlContext) error {
	if s.Finished() {
		return nil
	}
	now := cc.Time()
	if s.next == 0 && s.due.IsZero() {
		if s.Publisher.Session.State() != transport.Connected {
			return nil
		}
		glog.Info("test sequence started")
		s.due = now
	}
	if now.Before(s.due) {
		return nil
	}
	if s.next == len(s.Events) {
		s.next++
		glog.Info("test sequence complete")
		if s.Done != nil {
			s.Done()
		}
		return nil
	}
	s.Publisher.Publish(s.Events[s.next])
	s.next++
	s.due = now.Add(s.Step)
	return nil
}
