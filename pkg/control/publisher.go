package control

import (
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/volknob/pkg/transport"
	"github.com/robotalks/volknob/pkg/volume"
)

// Topics are the wire names.
type Topics struct {
	Volume string `yaml:"volume"`
	Mute   string `yaml:"mute"`
	// Status is optional, it receives the retained DeviceStatus.
	Status string `yaml:"status"`
	// Remote is optional, it's where the peer publishes.
	Remote string `yaml:"remote"`
}

// Publisher sends outbound events, best effort.
type Publisher struct {
	Session transport.Session
	Topics  Topics
}

// Topic returns the topic of the event.
func (p *Publisher) Topic(ev volume.Event) string {
	if ev.Kind == volume.EventMuteToggle {
		return p.Topics.Mute
	}
	return p.Topics.Volume
}

// Publish publishes the event once. Failures are logged and the event
// is dropped.
func (p *Publisher) Publish(ev volume.Event) bool {
	err := p.Session.Publish(p.Topic(ev), ev.Payload())
	switch {
	case err == nil:
		glog.Infof("published %v", ev)
		return true
	case errors.Is(err, transport.ErrUnavailable):
		glog.Warningf("not connected, %v dropped", ev)
	default:
		glog.Warningf("publish %v: %v", ev, err)
	}
	return false
}
