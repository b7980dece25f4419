// Package console is an interactive shell driving simulated hardware.
package console

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/volknob/pkg/device"
	"github.com/robotalks/volknob/pkg/display"
	"github.com/robotalks/volknob/pkg/volume"
)

// DefaultClickHold is how long click holds the button, well beyond
// the debounce window.
const DefaultClickHold = 100 * time.Millisecond

const (
	consoleKey = "$console"
	prompt     = "volknob > "
)

var commands = []*ishell.Cmd{
	&KnobCmd,
	&VolumeCmd,
	&PressCmd,
	&ReleaseCmd,
	&ClickCmd,
	&StatusCmd,
}

// Console provides ishell backed interactive shell.
type Console struct {
	Sim       *device.Sim
	Latest    *display.Latest
	AnalogMax int
	ClickHold time.Duration
	// OnExit is called when the user leaves the shell.
	OnExit func()

	Shell *ishell.Shell
}

// New creates a console.
func New(sim *device.Sim, latest *display.Latest, analogMax int) *Console {
	c := &Console{
		Sim:       sim,
		Latest:    latest,
		AnalogMax: analogMax,
		ClickHold: DefaultClickHold,
		Shell:     ishell.New(),
	}
	c.Shell.Set(consoleKey, c)
	c.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		c.Shell.AddCmd(cmd)
	}
	return c
}

// From gets Console from ishell context.
func From(c *ishell.Context) *Console {
	return c.Get(consoleKey).(*Console)
}

// Run implements Runnable.
func (c *Console) Run(ctx context.Context) error {
	exitCh := make(chan struct{})
	go func() {
		c.Shell.Run()
		close(exitCh)
	}()
	select {
	case <-ctx.Done():
		c.Shell.Close()
		return ctx.Err()
	case <-exitCh:
		if c.OnExit != nil {
			c.OnExit()
		}
		return nil
	}
}

// RawFor returns the lowest raw reading which scales to level.
func (c *Console) RawFor(level volume.Level) int {
	max := c.AnalogMax
	if max <= 0 {
		max = volume.DefaultAnalogMax
	}
	return (int(level)*max + int(volume.MaxLevel) - 1) / int(volume.MaxLevel)
}

// Click presses and releases the button.
func (c *Console) Click(hold time.Duration) {
	c.Sim.SetPressed(true)
	time.Sleep(hold)
	c.Sim.SetPressed(false)
}

// StatusLine describes the simulated hardware and the display.
func (c *Console) StatusLine() string {
	view := c.Latest.View()
	return fmt.Sprintf("knob=%d button=%v led=%v display: level=%d muted=%v address=%s",
		c.Sim.Knob(), c.Sim.Pressed(), c.Sim.LED(), view.Level, view.ShowMuted(), view.Address)
}

func intArg(c *ishell.Context) (int, bool) {
	if len(c.Args) != 1 {
		c.Err(fmt.Errorf("one argument expected"))
		return 0, false
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil {
		c.Err(err)
		return 0, false
	}
	return n, true
}

var (
	// KnobCmd sets the raw knob reading.
	KnobCmd = ishell.Cmd{
		Name:    "knob",
		Aliases: []string{"k"},
		Help:    "RAW",
		Func: func(c *ishell.Context) {
			if raw, ok := intArg(c); ok {
				From(c).Sim.SetKnob(raw)
			}
		},
	}

	// VolumeCmd turns the knob to a level.
	VolumeCmd = ishell.Cmd{
		Name:    "volume",
		Aliases: []string{"vol", "v"},
		Help:    "LEVEL",
		Func: func(c *ishell.Context) {
			n, ok := intArg(c)
			if !ok {
				return
			}
			level, err := volume.ParseLevel(strconv.Itoa(n))
			if err != nil {
				c.Err(err)
				return
			}
			con := From(c)
			con.Sim.SetKnob(con.RawFor(level))
		},
	}

	// PressCmd presses the button and keeps it down.
	PressCmd = ishell.Cmd{
		Name: "press",
		Help: "",
		Func: func(c *ishell.Context) {
			From(c).Sim.SetPressed(true)
		},
	}

	// ReleaseCmd releases the button.
	ReleaseCmd = ishell.Cmd{
		Name: "release",
		Help: "",
		Func: func(c *ishell.Context) {
			From(c).Sim.SetPressed(false)
		},
	}

	// ClickCmd presses and releases the button.
	ClickCmd = ishell.Cmd{
		Name:    "click",
		Aliases: []string{"mute", "m"},
		Help:    "[HOLD_MS]",
		Func: func(c *ishell.Context) {
			con := From(c)
			hold := con.ClickHold
			if len(c.Args) > 0 {
				ms, ok := intArg(c)
				if !ok {
					return
				}
				hold = time.Duration(ms) * time.Millisecond
			}
			con.Click(hold)
		},
	}

	// StatusCmd prints the hardware and display state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: func(c *ishell.Context) {
			c.Println(From(c).StatusLine())
		},
	}
)
