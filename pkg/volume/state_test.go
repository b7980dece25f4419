package volume

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	testCases := []struct {
		raw    int
		max    int
		expect Level
	}{
		{0, 4095, 0},
		{2050, 4095, 50},
		{4095, 4095, 100},
		{4094, 4095, 99},
		{41, 4095, 1},
		{40, 4095, 0},
		{-5, 4095, 0},
		{5000, 4095, 100},
		{512, 1023, 50},
		{2048, 0, 50},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.expect, Scale(tc.raw, tc.max), "Scale(%d, %d)", tc.raw, tc.max)
	}
}

func TestScaleFloorAllReadings(t *testing.T) {
	for raw := 0; raw <= DefaultAnalogMax; raw++ {
		lv := Scale(raw, DefaultAnalogMax)
		require.True(t, lv >= MinLevel && lv <= MaxLevel)
		require.Equal(t, Level(raw*100/DefaultAnalogMax), lv)
	}
}

func TestParseLevel(t *testing.T) {
	lv, err := ParseLevel(" 42\n")
	require.NoError(t, err)
	require.Equal(t, Level(42), lv)
	_, err = ParseLevel("101")
	require.Error(t, err)
	_, err = ParseLevel("-1")
	require.Error(t, err)
	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestParseMuteCommand(t *testing.T) {
	testCases := []struct {
		payload string
		expect  MuteCommand
		fail    bool
	}{
		{payload: "mute", expect: MuteOn},
		{payload: "UNMUTE", expect: MuteOff},
		{payload: " toggle ", expect: MuteToggle},
		{payload: "off", fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.payload, func(t *testing.T) {
			cmd, err := ParseMuteCommand(tc.payload)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, cmd)
		})
	}
}

func TestLocalMuteToggleTwice(t *testing.T) {
	s := NewState(30)
	require.False(t, s.Muted())
	ev1 := s.ApplyLocalMuteToggle()
	require.True(t, s.Muted())
	ev2 := s.ApplyLocalMuteToggle()
	require.False(t, s.Muted())
	require.Equal(t, EventMuteToggle, ev1.Kind)
	require.Equal(t, EventMuteToggle, ev2.Kind)
	require.Equal(t, []byte("toggle"), ev1.Payload())
	require.Equal(t, []byte("toggle"), ev2.Payload())
}

func TestLocalVolume(t *testing.T) {
	s := NewState(10)
	ev := s.ApplyLocalVolume(73)
	require.Equal(t, Level(73), s.Level())
	require.Equal(t, EventVolume, ev.Kind)
	require.Equal(t, []byte("73"), ev.Payload())
	require.Equal(t, "volume:73", ev.String())
}

func TestRemoteUpdates(t *testing.T) {
	s := NewState(20)
	s.ApplyRemoteVolume(80)
	require.Equal(t, Level(20), s.Level())
	peer, ok := s.PeerLevel()
	require.True(t, ok)
	require.Equal(t, Level(80), peer)

	require.True(t, s.ApplyRemoteMute(MuteOn))
	require.True(t, s.Muted())
	require.False(t, s.ApplyRemoteMute(MuteOn))
	require.True(t, s.ApplyRemoteMute(MuteToggle))
	require.False(t, s.Muted())
	require.False(t, s.ApplyRemoteMute(MuteOff))
}
