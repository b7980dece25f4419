// Package control ties inputs, state, transport and display together
// on the control loop.
package control

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/volknob/pkg/device"
	"github.com/robotalks/volknob/pkg/display"
	fx "github.com/robotalks/volknob/pkg/framework"
	"github.com/robotalks/volknob/pkg/input"
	"github.com/robotalks/volknob/pkg/msgs"
	"github.com/robotalks/volknob/pkg/transport"
	"github.com/robotalks/volknob/pkg/volume"
)

// Config is the controller configuration.
type Config struct {
	Topics          Topics
	DeviceID        string
	Address         string
	DebounceWindow  time.Duration
	ChangeThreshold int
	AnalogMax       int
}

// Controller runs the knob. All of its state is owned by the loop
// goroutine, peer updates are posted into the loop as messages.
type Controller struct {
	Config    Config
	Session   transport.Session
	Hardware  device.Hardware
	Display   display.Display
	Publisher *Publisher

	sampler  *input.Sampler
	button   *input.Debouncer
	state    *volume.State
	reading  volume.Level
	conn     transport.ConnState
	synced   bool
	reported *msgs.DeviceStatus
}

// New creates the Controller. The knob is read once to initialize
// the state, unmuted, with the button released.
func New(conf Config, session transport.Session, hw device.Hardware, disp display.Display) (*Controller, error) {
	raw, err := hw.Knob.ReadAnalog()
	if err != nil {
		return nil, fmt.Errorf("initial knob reading: %w", err)
	}
	if hw.LED == nil {
		hw.LED = device.NopOutput
	}
	c := &Controller{
		Config:    conf,
		Session:   session,
		Hardware:  hw,
		Display:   disp,
		Publisher: &Publisher{Session: session, Topics: conf.Topics},
		sampler:   input.NewSampler(conf.AnalogMax, conf.ChangeThreshold),
		button:    input.NewDebouncer(conf.DebounceWindow, false),
		conn:      session.State(),
	}
	c.reading = c.sampler.Prime(raw)
	c.state = volume.NewState(c.reading)
	glog.Infof("initial volume %d", c.reading)
	return c, nil
}

// State returns the volume state. Only safe on the loop goroutine.
func (c *Controller) State() *volume.State {
	return c.state
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvService, fx.ControlFunc(c.ServiceTransport))
	l.AddController(fx.PrLvSense, fx.ControlFunc(c.Sense))
	l.AddController(fx.PrLvControl, fx.ControlFunc(c.Apply))
	l.AddController(fx.PrLvPostProc, fx.ControlFunc(c.Render), fx.ControlFunc(c.ReportStatus))
	l.AddRunnable(c)
}

// Run implements Runnable. It subscribes the peer topic for the
// lifetime of the loop.
func (c *Controller) Run(ctx context.Context) error {
	if sub := c.Subscribe(fx.LoopCtlFrom(ctx)); sub != nil {
		defer sub.Close()
	}
	<-ctx.Done()
	return ctx.Err()
}

// Subscribe posts peer updates into the loop. It returns nil when no
// peer topic is configured.
func (c *Controller) Subscribe(lc fx.LoopControl) io.Closer {
	if c.Config.Topics.Remote == "" {
		return nil
	}
	return c.Session.Subscribe(c.Config.Topics.Remote, func(topic string, payload []byte) {
		lc.PostMessage(&RemoteUpdate{Topic: topic, Payload: string(payload)})
		lc.TriggerNext()
	})
}

// ServiceTransport advances the session and reacts to link changes.
func (c *Controller) ServiceTransport(cc fx.ControlContext) error {
	prev := c.conn
	c.conn = c.Session.Service(cc.Time())
	if c.conn == prev {
		return nil
	}
	glog.V(1).Infof("link %v -> %v", prev, c.conn)
	connected := c.conn == transport.Connected
	if connected == (prev == transport.Connected) {
		return nil
	}
	if connected {
		// status is retained by the broker, but the will may have
		// cleared it while disconnected.
		c.reported = nil
		if !c.synced {
			c.synced = c.Publisher.Publish(volume.Event{Kind: volume.EventVolume, Level: c.state.Level()})
		}
	}
	return c.Hardware.LED.WriteDigital(connected)
}

// Sense samples the knob and the button.
func (c *Controller) Sense(cc fx.ControlContext) error {
	errs := &fx.AggregatedError{}
	if raw, err := c.Hardware.Knob.ReadAnalog(); err != nil {
		errs.Add(fmt.Errorf("read knob: %w", err))
	} else {
		level, emit := c.sampler.Sample(raw)
		c.reading = level
		if emit {
			cc.Messages().AddMessages(&KnobMoved{Level: level})
		}
	}
	if pressed, err := c.Hardware.Button.ReadDigital(); err != nil {
		errs.Add(fmt.Errorf("read button: %w", err))
	} else if edge, ok := c.button.Sample(pressed, cc.Time()); ok {
		glog.V(2).Infof("button %v", edge)
		if edge == input.RisingEdge {
			cc.Messages().AddMessages(&ButtonPressed{})
		}
	}
	return errs.Aggregate()
}

// Apply applies local and peer updates to the state, in order, and
// publishes the local ones.
func (c *Controller) Apply(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		switch msg := mc.CurrentMessage().(type) {
		case *KnobMoved:
			c.Publisher.Publish(c.state.ApplyLocalVolume(msg.Level))
		case *ButtonPressed:
			c.Publisher.Publish(c.state.ApplyLocalMuteToggle())
		case *RemoteUpdate:
			c.applyRemote(msg)
		default:
			return
		}
		mc.MessageTaken()
	}))
	return nil
}

// applyRemote handles a payload from the peer: a decimal level is the
// peer's volume, otherwise a mute command. Nothing is published back.
func (c *Controller) applyRemote(msg *RemoteUpdate) {
	if level, err := volume.ParseLevel(msg.Payload); err == nil {
		c.state.ApplyRemoteVolume(level)
		glog.V(1).Infof("peer volume %d", level)
		return
	}
	cmd, err := volume.ParseMuteCommand(msg.Payload)
	if err != nil {
		glog.Warningf("%s: ignored payload %q", msg.Topic, msg.Payload)
		return
	}
	if c.state.ApplyRemoteMute(cmd) {
		glog.Infof("peer set muted %v", c.state.Muted())
	}
}

// View returns what the display shows: the current knob reading.
func (c *Controller) View() display.View {
	return display.View{
		Level:   c.reading,
		Muted:   c.state.Muted(),
		Address: c.Config.Address,
	}
}

// Render renders the display every iteration.
func (c *Controller) Render(cc fx.ControlContext) error {
	if c.Display == nil {
		return nil
	}
	return c.Display.Render(c.View())
}

// Status returns the status report.
func (c *Controller) Status() *msgs.DeviceStatus {
	peer, known := c.state.PeerLevel()
	return &msgs.DeviceStatus{
		DeviceID:  c.Config.DeviceID,
		Level:     int32(c.state.Level()),
		Muted:     c.state.Muted(),
		Address:   c.Config.Address,
		PeerLevel: int32(peer),
		PeerKnown: known,
	}
}

// ReportStatus publishes the retained status when it changes.
func (c *Controller) ReportStatus(cc fx.ControlContext) error {
	if c.Config.Topics.Status == "" || c.conn != transport.Connected {
		return nil
	}
	status := c.Status()
	if c.reported != nil && *c.reported == *status {
		return nil
	}
	data, err := status.Encode()
	if err != nil {
		return err
	}
	if err := c.Session.PublishRetained(c.Config.Topics.Status, data); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	glog.V(1).Infof("status %v", status)
	c.reported = status
	return nil
}

// Shutdown clears the retained status and turns the LED off. It must
// be called after the loop stops, before closing the session.
func (c *Controller) Shutdown() {
	if c.Config.Topics.Status != "" && c.Session.State() == transport.Connected {
		if err := c.Session.PublishRetained(c.Config.Topics.Status, nil); err != nil {
			glog.Warningf("clear status: %v", err)
		}
	}
	if err := c.Hardware.LED.WriteDigital(false); err != nil {
		glog.Warningf("LED: %v", err)
	}
}
