// Package env provides the configuration of the knob daemon and tools.
package env

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/volknob/pkg/control"
	"github.com/robotalks/volknob/pkg/device"
	"github.com/robotalks/volknob/pkg/device/sysfs"
	fx "github.com/robotalks/volknob/pkg/framework"
	"github.com/robotalks/volknob/pkg/input"
	"github.com/robotalks/volknob/pkg/transport"
	"github.com/robotalks/volknob/pkg/transport/mqtt"
	"github.com/robotalks/volknob/pkg/volume"
)

// Hardware backends.
const (
	HardwareSim   = "sim"
	HardwareSysfs = "sysfs"
)

// Config is the daemon configuration.
type Config struct {
	// BrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix?client-id=id
	BrokerURL string `yaml:"mqtt"`
	DeviceID  string `yaml:"id"`
	// Topics are relative to the topic prefix of BrokerURL.
	Topics control.Topics `yaml:"topics"`

	DebounceWindow  time.Duration `yaml:"debounce_window"`
	ChangeThreshold int           `yaml:"change_threshold"`
	AnalogMax       int           `yaml:"analog_max"`
	Interval        time.Duration `yaml:"interval"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`

	Hardware string       `yaml:"hardware"`
	Sysfs    sysfs.Config `yaml:"sysfs"`

	// MirrorAddr enables the display mirror when not empty.
	MirrorAddr   string `yaml:"mirror"`
	Console      bool   `yaml:"console"`
	TestSequence bool   `yaml:"test_sequence"`

	ConfigFile string `yaml:"-"`
}

var defaultConfig = Config{
	BrokerURL: "mqtt://localhost:1883",
	Topics: control.Topics{
		Volume: "esp32/volume",
		Mute:   "esp32/mute",
		Status: "esp32/status",
		Remote: "pc/sound",
	},
	DebounceWindow:  input.DefaultDebounceWindow,
	ChangeThreshold: input.DefaultChangeThreshold,
	AnalogMax:       volume.DefaultAnalogMax,
	Interval:        fx.DefaultInterval,
	RetryDelay:      transport.DefaultRetryDelay,
	ConnectTimeout:  5 * time.Second,
	Hardware:        HardwareSim,
}

func init() {
	defaultConfig.applyEnv(os.Getenv)
	if defaultConfig.DeviceID == "" {
		defaultConfig.DeviceID = MachineID()
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if val := getenv("VOLKNOB_MQTT_URL"); val != "" {
		c.BrokerURL = val
	}
	if val := getenv("VOLKNOB_ID"); val != "" {
		c.DeviceID = val
	}
	if val := getenv("VOLKNOB_CONFIG"); val != "" {
		c.ConfigFile = val
	}
	if val := getenv("VOLKNOB_HARDWARE"); val != "" {
		c.Hardware = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	defaultConfig.BindFlags(flag.CommandLine)
}

// BindFlags binds the fields to flags in fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML config file")
	fs.StringVar(&c.BrokerURL, "mqtt", c.BrokerURL, "MQTT broker URL")
	fs.StringVar(&c.DeviceID, "id", c.DeviceID, "Device ID")
	fs.StringVar(&c.Topics.Volume, "topic-volume", c.Topics.Volume, "Volume topic")
	fs.StringVar(&c.Topics.Mute, "topic-mute", c.Topics.Mute, "Mute topic")
	fs.StringVar(&c.Topics.Status, "topic-status", c.Topics.Status, "Status topic")
	fs.StringVar(&c.Topics.Remote, "topic-remote", c.Topics.Remote, "Topic of the peer")
	fs.DurationVar(&c.DebounceWindow, "debounce", c.DebounceWindow, "Button debounce window")
	fs.IntVar(&c.ChangeThreshold, "threshold", c.ChangeThreshold, "Volume change needed to publish")
	fs.IntVar(&c.AnalogMax, "analog-max", c.AnalogMax, "Full scale of the knob ADC")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "Loop interval")
	fs.DurationVar(&c.RetryDelay, "retry-delay", c.RetryDelay, "Delay between connect attempts")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "Connect attempt timeout")
	fs.StringVar(&c.Hardware, "hardware", c.Hardware, "Hardware backend: sim or sysfs")
	fs.StringVar(&c.Sysfs.ADCPath, "adc", c.Sysfs.ADCPath, "sysfs: knob ADC raw attribute")
	fs.StringVar(&c.Sysfs.ButtonPath, "button", c.Sysfs.ButtonPath, "sysfs: button GPIO value file")
	fs.BoolVar(&c.Sysfs.ButtonActiveLow, "button-active-low", c.Sysfs.ButtonActiveLow, "sysfs: button pulls the line low")
	fs.StringVar(&c.Sysfs.LEDPath, "led", c.Sysfs.LEDPath, "sysfs: connection LED GPIO value file")
	fs.StringVar(&c.MirrorAddr, "mirror", c.MirrorAddr, "Serve the display mirror on this address")
	fs.BoolVar(&c.Console, "console", c.Console, "Interactive console for simulated hardware")
	fs.BoolVar(&c.TestSequence, "test-sequence", c.TestSequence, "Publish the test sequence and exit")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Decode reads YAML into the config. Unknown fields are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("multiple YAML documents")
	}
	return nil
}

// LoadFile loads the config file over the current values, then
// re-applies flags explicitly set in fs so the command line wins.
func (c *Config) LoadFile(fn string, fs *flag.FlagSet) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	// fs may be bound to c, collect the values before decoding.
	set := make(map[string]string)
	if fs != nil {
		fs.Visit(func(f *flag.Flag) {
			set[f.Name] = f.Value.String()
		})
	}
	if err := c.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("config %s: %w", fn, err)
	}
	if len(set) == 0 {
		return nil
	}
	rebind := flag.NewFlagSet("config", flag.ContinueOnError)
	rebind.SetOutput(io.Discard)
	c.BindFlags(rebind)
	for name, val := range set {
		if rebind.Lookup(name) != nil {
			if err := rebind.Set(name, val); err != nil {
				return fmt.Errorf("flag -%s: %w", name, err)
			}
		}
	}
	return nil
}

// Validate checks the values.
func (c *Config) Validate() error {
	errs := &fx.AggregatedError{}
	if c.BrokerURL == "" {
		errs.Add(errors.New("mqtt broker URL is required"))
	}
	if c.Topics.Volume == "" || c.Topics.Mute == "" {
		errs.Add(errors.New("volume and mute topics are required"))
	}
	if c.DebounceWindow < 0 {
		errs.Add(fmt.Errorf("invalid debounce window %v", c.DebounceWindow))
	}
	if c.ChangeThreshold < 0 {
		errs.Add(fmt.Errorf("invalid change threshold %d", c.ChangeThreshold))
	}
	if c.AnalogMax <= 0 {
		errs.Add(fmt.Errorf("invalid analog max %d", c.AnalogMax))
	}
	if c.Interval <= 0 {
		errs.Add(fmt.Errorf("invalid interval %v", c.Interval))
	}
	switch c.Hardware {
	case HardwareSim:
	case HardwareSysfs:
		if c.Sysfs.ADCPath == "" || c.Sysfs.ButtonPath == "" {
			errs.Add(errors.New("sysfs hardware requires adc and button paths"))
		}
	default:
		errs.Add(fmt.Errorf("unknown hardware %q", c.Hardware))
	}
	return errs.Aggregate()
}

// ClientID is the default MQTT client ID.
func (c *Config) ClientID() string {
	return appID + ":" + c.DeviceID
}

// SessionConfig builds the MQTT session configuration.
func (c *Config) SessionConfig() mqtt.Config {
	return mqtt.Config{
		BrokerURL:      c.BrokerURL,
		ClientID:       c.ClientID(),
		WillTopic:      c.Topics.Status,
		ConnectTimeout: c.ConnectTimeout,
		RetryDelay:     c.RetryDelay,
	}
}

// ControlConfig builds the controller configuration. address is
// shown on the display.
func (c *Config) ControlConfig(address string) control.Config {
	return control.Config{
		Topics:          c.Topics,
		DeviceID:        c.DeviceID,
		Address:         address,
		DebounceWindow:  c.DebounceWindow,
		ChangeThreshold: c.ChangeThreshold,
		AnalogMax:       c.AnalogMax,
	}
}

// OpenHardware opens the configured hardware. sim is non-nil for the
// simulated backend.
func (c *Config) OpenHardware() (hw device.Hardware, sim *device.Sim, err error) {
	switch c.Hardware {
	case HardwareSim:
		sim = device.NewSim(0)
		return sim.Hardware(), sim, nil
	case HardwareSysfs:
		hw, err = c.Sysfs.Open()
		return hw, nil, err
	}
	return hw, nil, fmt.Errorf("unknown hardware %q", c.Hardware)
}
