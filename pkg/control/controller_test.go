package control

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/volknob/pkg/device"
	"github.com/robotalks/volknob/pkg/display"
	fx "github.com/robotalks/volknob/pkg/framework"
	"github.com/robotalks/volknob/pkg/input"
	"github.com/robotalks/volknob/pkg/msgs"
	"github.com/robotalks/volknob/pkg/transport"
	"github.com/robotalks/volknob/pkg/volume"
)

type sent struct {
	topic   string
	payload string
}

type fakeSession struct {
	lock      sync.Mutex
	state     transport.ConnState
	published []sent
	retained  []sent
	handlers  map[string]transport.Handler
	closed    []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{handlers: make(map[string]transport.Handler)}
}

func (s *fakeSession) State() transport.ConnState            { return s.state }
func (s *fakeSession) Service(time.Time) transport.ConnState { return s.state }

func (s *fakeSession) Publish(topic string, payload []byte) error {
	if s.state != transport.Connected {
		return transport.ErrUnavailable
	}
	s.published = append(s.published, sent{topic, string(payload)})
	return nil
}

func (s *fakeSession) PublishRetained(topic string, payload []byte) error {
	if s.state != transport.Connected {
		return transport.ErrUnavailable
	}
	s.retained = append(s.retained, sent{topic, string(payload)})
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (s *fakeSession) Subscribe(topic string, h transport.Handler) io.Closer {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handlers[topic] = h
	return closerFunc(func() error {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.handlers, topic)
		s.closed = append(s.closed, topic)
		return nil
	})
}

func (s *fakeSession) handler(topic string) transport.Handler {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.handlers[topic]
}

func (s *fakeSession) takePublished() []sent {
	p := s.published
	s.published = nil
	return p
}

var (
	t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testTopics = Topics{
		Volume: "esp32/volume",
		Mute:   "esp32/mute",
		Status: "esp32/status",
		Remote: "pc/sound",
	}
)

type rig struct {
	now     time.Time
	sim     *device.Sim
	session *fakeSession
	ctl     *Controller
	loop    *fx.Loop
	latest  display.Latest
	renders int
}

func newRig(t *testing.T, raw int) *rig {
	r := &rig{now: t0, sim: device.NewSim(raw), session: newFakeSession()}
	disp := display.Multi{&r.latest, display.Func(func(display.View) error {
		r.renders++
		return nil
	})}
	ctl, err := New(Config{
		Topics:          testTopics,
		DeviceID:        "knob",
		Address:         "10.0.0.2",
		DebounceWindow:  input.DefaultDebounceWindow,
		ChangeThreshold: 2,
		AnalogMax:       volume.DefaultAnalogMax,
	}, r.session, r.sim.Hardware(), disp)
	require.NoError(t, err)
	r.ctl = ctl
	r.loop = fx.NewLoop()
	r.loop.Clock = func() time.Time { return r.now }
	r.loop.Add(ctl)
	return r
}

// step runs one iteration at the current time, then advances the clock
// by one interval.
func (r *rig) step() {
	r.loop.Step(context.Background())
	r.now = r.now.Add(fx.DefaultInterval)
}

func (r *rig) steps(n int) {
	for i := 0; i < n; i++ {
		r.step()
	}
}

func (r *rig) connect() {
	r.session.state = transport.Connected
	r.step()
}

func (r *rig) disconnect() {
	r.session.state = transport.Disconnected
	r.step()
}

func TestInitialVolumeSync(t *testing.T) {
	r := newRig(t, 2050)
	require.Equal(t, volume.Level(50), r.ctl.State().Level())
	require.False(t, r.ctl.State().Muted())

	r.steps(3)
	require.Empty(t, r.session.published)
	require.False(t, r.sim.LED())

	r.connect()
	require.Equal(t, []sent{{"esp32/volume", "50"}}, r.session.takePublished())
	require.True(t, r.sim.LED())

	r.disconnect()
	require.False(t, r.sim.LED())
	r.connect()
	require.True(t, r.sim.LED())
	require.Empty(t, r.session.published)
}

func TestKnobPublishesOnChange(t *testing.T) {
	r := newRig(t, 0)
	r.connect()
	require.Equal(t, []sent{{"esp32/volume", "0"}}, r.session.takePublished())

	for _, raw := range []int{0, 0, 2050, 2050, 2050} {
		r.sim.SetKnob(raw)
		r.step()
	}
	require.Equal(t, []sent{{"esp32/volume", "50"}}, r.session.takePublished())

	testCases := []struct {
		raw     int
		publish string
	}{
		{2100, ""},   // 51
		{2170, ""},   // 52
		{2200, "53"}, // 53
		{2130, ""},   // 52
		{2090, ""},   // 51
		{2000, "48"}, // 48
		{4095, "100"},
		{0, "0"},
	}
	for _, tc := range testCases {
		r.sim.SetKnob(tc.raw)
		r.step()
		published := r.session.takePublished()
		if tc.publish == "" {
			assert.Empty(t, published, "raw %d", tc.raw)
			continue
		}
		assert.Equal(t, []sent{{"esp32/volume", tc.publish}}, published, "raw %d", tc.raw)
	}
}

func TestDisplayRenderedEveryIteration(t *testing.T) {
	r := newRig(t, 2050)
	r.steps(5)
	require.Equal(t, 5, r.renders)
	require.Equal(t, display.View{Level: 50, Address: "10.0.0.2"}, r.latest.View())

	// below the threshold, shown but not published.
	r.sim.SetKnob(2100)
	r.step()
	require.Equal(t, volume.Level(51), r.latest.View().Level)
	require.Equal(t, volume.Level(50), r.ctl.State().Level())

	r.sim.SetKnob(0)
	r.step()
	view := r.latest.View()
	require.False(t, view.Muted)
	require.True(t, view.ShowMuted())
	require.False(t, r.ctl.State().Muted())
}

func TestButtonToggle(t *testing.T) {
	r := newRig(t, 2050)
	r.connect()
	r.session.takePublished()

	// bounces shorter than the window never commit.
	for i := 0; i < 4; i++ {
		r.sim.SetPressed(i%2 == 0)
		r.step()
	}
	r.sim.SetPressed(false)
	r.steps(10)
	require.Empty(t, r.session.published)
	require.False(t, r.ctl.State().Muted())

	press := func() {
		r.sim.SetPressed(true)
		r.steps(20)
		r.sim.SetPressed(false)
		r.steps(10)
	}
	press()
	require.Equal(t, []sent{{"esp32/mute", "toggle"}}, r.session.takePublished())
	require.True(t, r.ctl.State().Muted())
	require.True(t, r.latest.View().Muted)

	press()
	require.Equal(t, []sent{{"esp32/mute", "toggle"}}, r.session.takePublished())
	require.False(t, r.ctl.State().Muted())
}

func TestButtonCommitTiming(t *testing.T) {
	r := newRig(t, 2050)
	r.connect()
	r.session.takePublished()

	r.sim.SetPressed(true)
	// samples at 0, 10, ... 40ms after the change.
	r.steps(5)
	require.Empty(t, r.session.published)
	// 50ms.
	r.step()
	require.Len(t, r.session.takePublished(), 1)
	// holding doesn't repeat.
	r.steps(100)
	require.Empty(t, r.session.published)
}

func TestPublishWhileDisconnected(t *testing.T) {
	r := newRig(t, 0)
	r.step()

	r.sim.SetKnob(4095)
	r.step()
	r.sim.SetPressed(true)
	r.steps(10)
	require.Empty(t, r.session.published)
	// state moves on regardless.
	require.Equal(t, volume.Level(100), r.ctl.State().Level())
	require.True(t, r.ctl.State().Muted())

	// nothing was queued: only the initial sync with the current level.
	r.connect()
	r.steps(5)
	require.Equal(t, []sent{{"esp32/volume", "100"}}, r.session.takePublished())
}

func TestRemoteUpdates(t *testing.T) {
	r := newRig(t, 2050)
	r.connect()
	r.session.takePublished()

	sub := r.ctl.Subscribe(r.loop)
	require.NotNil(t, sub)
	h := r.session.handler("pc/sound")
	require.NotNil(t, h)

	testCases := []struct {
		payload string
		muted   bool
		peer    volume.Level
		known   bool
	}{
		{"42", false, 42, true},
		{"mute", true, 42, true},
		{"mute", true, 42, true},
		{"garbage", true, 42, true},
		{"150", true, 42, true},
		{"unmute", false, 42, true},
		{"toggle", true, 42, true},
		{" 7\n", true, 7, true},
	}
	for _, tc := range testCases {
		h("pc/sound", []byte(tc.payload))
		r.step()
		assert.Equal(t, tc.muted, r.ctl.State().Muted(), "payload %q", tc.payload)
		peer, known := r.ctl.State().PeerLevel()
		assert.Equal(t, tc.peer, peer, "payload %q", tc.payload)
		assert.Equal(t, tc.known, known, "payload %q", tc.payload)
	}
	// the knob level is not overridden, nothing echoes back.
	require.Equal(t, volume.Level(50), r.ctl.State().Level())
	require.Empty(t, r.session.published)

	require.NoError(t, sub.Close())
	require.Equal(t, []string{"pc/sound"}, r.session.closed)
}

func TestNoRemoteTopic(t *testing.T) {
	r := newRig(t, 0)
	r.ctl.Config.Topics.Remote = ""
	require.Nil(t, r.ctl.Subscribe(r.loop))
}

func decodeStatus(t *testing.T, payload string) *msgs.DeviceStatus {
	status, err := msgs.DecodeDeviceStatus([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, status)
	return status
}

func TestStatusReport(t *testing.T) {
	r := newRig(t, 2050)
	r.steps(2)
	require.Empty(t, r.session.retained)

	r.connect()
	require.Len(t, r.session.retained, 1)
	status := decodeStatus(t, r.session.retained[0].payload)
	assert.Equal(t, "esp32/status", r.session.retained[0].topic)
	assert.Equal(t, &msgs.DeviceStatus{DeviceID: "knob", Level: 50, Address: "10.0.0.2"}, status)

	// unchanged.
	r.steps(5)
	require.Len(t, r.session.retained, 1)

	r.sim.SetPressed(true)
	r.steps(10)
	require.Len(t, r.session.retained, 2)
	assert.True(t, decodeStatus(t, r.session.retained[1].payload).Muted)

	// reported again after reconnect.
	r.disconnect()
	r.connect()
	require.Len(t, r.session.retained, 3)

	r.ctl.Shutdown()
	require.Equal(t, sent{"esp32/status", ""}, r.session.retained[3])
	require.False(t, r.sim.LED())
}

type failingKnob struct{}

func (failingKnob) ReadAnalog() (int, error) { return 0, errors.New("adc gone") }

func TestSensorErrors(t *testing.T) {
	r := newRig(t, 2050)
	r.ctl.Hardware.Knob = failingKnob{}
	r.connect()
	r.session.takePublished()

	cc := &fakeControlContext{now: r.now}
	err := r.ctl.Sense(cc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "adc gone")

	// the button still works.
	r.sim.SetPressed(true)
	r.steps(10)
	require.Equal(t, []sent{{"esp32/mute", "toggle"}}, r.session.takePublished())
	require.Equal(t, volume.Level(50), r.latest.View().Level)

	_, err = New(Config{}, r.session, device.Hardware{Knob: failingKnob{}, Button: r.sim.Hardware().Button}, nil)
	require.Error(t, err)
}

type fakeControlContext struct {
	fx.ControlContext
	now  time.Time
	msgs []fx.Message
}

func (c *fakeControlContext) Time() time.Time                { return c.now }
func (c *fakeControlContext) Messages() fx.MessageStore      { return c }
func (c *fakeControlContext) AddMessages(msgs ...fx.Message) { c.msgs = append(c.msgs, msgs...) }

func (c *fakeControlContext) ProcessMessages(fx.MessageProcessor) {}

func TestRunSubscribes(t *testing.T) {
	r := newRig(t, 2050)
	ctx, cancel := context.WithCancel(context.Background())
	r.loop.Clock = nil
	done := make(chan error, 1)
	go func() {
		done <- r.loop.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		return r.session.handler("pc/sound") != nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop didn't stop")
	}
	require.Nil(t, r.session.handler("pc/sound"))
}
