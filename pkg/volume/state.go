package volume

import (
	"fmt"
	"strings"
)

// EventKind identifies an outbound event.
type EventKind int

// Outbound event kinds.
const (
	EventVolume EventKind = iota
	EventMuteToggle
)

// TogglePayload is the mute topic payload.
const TogglePayload = "toggle"

// Event is an outbound event generated by a local change.
type Event struct {
	Kind  EventKind
	Level Level
}

// Payload returns the wire payload of the event.
func (e Event) Payload() []byte {
	if e.Kind == EventMuteToggle {
		return []byte(TogglePayload)
	}
	return []byte(e.Level.String())
}

// String implements fmt.Stringer.
func (e Event) String() string {
	if e.Kind == EventMuteToggle {
		return "mute:" + TogglePayload
	}
	return "volume:" + e.Level.String()
}

// MuteCommand is a mute command received from the peer.
type MuteCommand int

// Mute commands understood on the inbound topic.
const (
	MuteOn MuteCommand = iota
	MuteOff
	MuteToggle
)

// ParseMuteCommand parses "mute", "unmute" or "toggle", case insensitive.
func ParseMuteCommand(s string) (MuteCommand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mute":
		return MuteOn, nil
	case "unmute":
		return MuteOff, nil
	case TogglePayload:
		return MuteToggle, nil
	}
	return 0, fmt.Errorf("invalid mute command %q", s)
}

// State is the local model of volume and mute.
//
// Mute uses a symmetric toggle protocol: a local press flips the local
// flag and tells the peer to flip its own. Nothing reconciles the two
// sides, a lost message leaves them diverged.
type State struct {
	level     Level
	muted     bool
	peerLevel Level
	peerKnown bool
}

// NewState creates the state from the first reading, unmuted.
func NewState(initial Level) *State {
	return &State{level: initial}
}

// Level returns the last level applied locally.
func (s *State) Level() Level {
	return s.level
}

// Muted returns the mute flag.
func (s *State) Muted() bool {
	return s.muted
}

// PeerLevel returns the last level reported by the peer.
func (s *State) PeerLevel() (Level, bool) {
	return s.peerLevel, s.peerKnown
}

// ApplyLocalVolume records a level emitted by the knob sampler.
func (s *State) ApplyLocalVolume(v Level) Event {
	s.level = v
	return Event{Kind: EventVolume, Level: v}
}

// ApplyLocalMuteToggle flips mute after a button press. The toggle event
// is returned regardless of the resulting state.
func (s *State) ApplyLocalMuteToggle() Event {
	s.muted = !s.muted
	return Event{Kind: EventMuteToggle}
}

// ApplyRemoteVolume records the level reported by the peer. The knob is
// absolute, so the local level is left alone.
func (s *State) ApplyRemoteVolume(v Level) {
	s.peerLevel, s.peerKnown = v, true
}

// ApplyRemoteMute applies a mute command from the peer and reports
// whether the flag changed.
func (s *State) ApplyRemoteMute(cmd MuteCommand) bool {
	prev := s.muted
	switch cmd {
	case MuteOn:
		s.muted = true
	case MuteOff:
		s.muted = false
	case MuteToggle:
		s.muted = !s.muted
	}
	return prev != s.muted
}
