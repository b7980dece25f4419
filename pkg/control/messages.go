package control

import (
	fx "github.com/robotalks/volknob/pkg/framework"
	"github.com/robotalks/volknob/pkg/volume"
)

// KnobMoved is added when the sampler emits a level.
type KnobMoved struct {
	Level volume.Level
}

// NewMessage implements Message.
func (m *KnobMoved) NewMessage() fx.Message { return &KnobMoved{} }

// ButtonPressed is added on a committed rising edge of the button.
type ButtonPressed struct{}

// NewMessage implements Message.
func (m *ButtonPressed) NewMessage() fx.Message { return &ButtonPressed{} }

// RemoteUpdate is posted from the transport when the peer publishes.
type RemoteUpdate struct {
	Topic   string
	Payload string
}

// NewMessage implements Message.
func (m *RemoteUpdate) NewMessage() fx.Message { return &RemoteUpdate{} }
