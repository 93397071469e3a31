// Package config loads the daemon's startup configuration from flags,
// AMPIR_* environment variables, an optional .env file and an optional
// YAML file. Configuration is read once and never reloaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/sweeney/amp-ircontrol/internal/gpio"
	"github.com/sweeney/amp-ircontrol/internal/logger"
	"github.com/sweeney/amp-ircontrol/internal/logic"
	"github.com/sweeney/amp-ircontrol/internal/relay"
	"github.com/sweeney/amp-ircontrol/internal/remote"
	"github.com/sweeney/amp-ircontrol/internal/serial"
)

// EnvPrefix prefixes every environment override, e.g. AMPIR_OFF_DELAY=5s.
const EnvPrefix = "AMPIR"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the complete startup configuration.
type Config struct {
	Poll       time.Duration
	OffDelay   time.Duration
	LEDWindow  time.Duration
	RelayPulse time.Duration
	Heartbeat  time.Duration

	Chip            string
	PinAmp          int
	PinSource       int
	PinRelay        int
	PinLED          int
	PinIR           int
	AmpActiveLow    bool
	SourceActiveLow bool

	// IRDevice selects a kernel LIRC transmitter; empty uses GPIO busy-wait.
	IRDevice string

	SerialPort string
	SerialBaud int

	// Broker is the MQTT broker URL; empty disables MQTT.
	Broker   string
	ClientID string

	HTTPAddr string
	LogLevel string
	Watchdog bool

	RemoteAddress    int
	RemoteVolumeUp   int
	RemoteVolumeDown int
	RemoteMute       int

	NECAddress    int
	NECVolumeUp   int
	NECVolumeDown int
	NECMute       int

	PrintState bool
	Send       string
}

func newFlagSet() *pflag.FlagSet {
	d := logic.DefaultConfig()
	fs := pflag.NewFlagSet("amp-ircontrol", pflag.ContinueOnError)

	fs.Duration("poll", 10*time.Millisecond, "control loop period")
	fs.Duration("off-delay", d.OffDelay, "delay between source power loss and amp off")
	fs.Duration("led-window", d.LEDWindow, "indicator LED time after remote activity")
	fs.Duration("relay-pulse", relay.PulseDuration, "relay coil hold time")
	fs.Duration("heartbeat", 15*time.Minute, "MQTT heartbeat interval (0 to disable)")

	fs.String("chip", gpio.DefaultChip, "GPIO chip")
	fs.Int("pin-amp", gpio.DefaultPinAmp, "amplifier power sense pin")
	fs.Int("pin-source", gpio.DefaultPinSource, "source power sense pin")
	fs.Int("pin-relay", gpio.DefaultPinRelay, "relay coil pin")
	fs.Int("pin-led", gpio.DefaultPinLED, "indicator LED pin")
	fs.Int("pin-ir", gpio.DefaultPinIR, "IR transmit LED pin")
	fs.Bool("amp-active-low", false, "amplifier sense reads ON when low")
	fs.Bool("source-active-low", false, "source sense reads ON when low")
	fs.String("ir-device", "", "LIRC transmit device (e.g. /dev/lirc0); empty drives pin-ir directly")

	fs.String("serial-port", "", "serial command port (empty to disable)")
	fs.Int("serial-baud", serial.DefaultBaud, "serial baud rate")

	fs.String("broker", "", "MQTT broker address (empty to disable)")
	fs.String("client-id", "amp-ircontrol", "MQTT client ID")
	fs.String("http", ":8080", "HTTP status address (empty to disable)")
	fs.String("log-level", logger.InfoLevel, "debug, info, warn or error")
	fs.Bool("watchdog", true, "service the systemd watchdog")

	fs.Int("remote-address", int(d.RemoteAddress), "address of our remote control")
	fs.Int("remote-volume-up", int(d.RemoteVolumeUp), "remote command code for volume up")
	fs.Int("remote-volume-down", int(d.RemoteVolumeDown), "remote command code for volume down")
	fs.Int("remote-mute", int(d.RemoteMute), "remote command code for mute")

	fs.Int("nec-address", int(d.NECAddress), "NEC address of the source device")
	fs.Int("nec-volume-up", int(d.NECVolumeUp), "NEC command for volume up")
	fs.Int("nec-volume-down", int(d.NECVolumeDown), "NEC command for volume down")
	fs.Int("nec-mute", int(d.NECMute), "NEC command for mute")

	fs.Bool("print-state", false, "print sensed power state and exit")
	fs.String("send", "", "transmit one NEC frame ADDR:CMD and exit")
	fs.String("config", "", "optional YAML config file")
	fs.String("env-file", ".env", "optional dotenv file")
	return fs
}

// Load parses args (without the program name) and resolves the configuration.
// Precedence: flags, environment, config file, defaults.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	envFile, _ := fs.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Poll:       v.GetDuration("poll"),
		OffDelay:   v.GetDuration("off-delay"),
		LEDWindow:  v.GetDuration("led-window"),
		RelayPulse: v.GetDuration("relay-pulse"),
		Heartbeat:  v.GetDuration("heartbeat"),

		Chip:            v.GetString("chip"),
		PinAmp:          v.GetInt("pin-amp"),
		PinSource:       v.GetInt("pin-source"),
		PinRelay:        v.GetInt("pin-relay"),
		PinLED:          v.GetInt("pin-led"),
		PinIR:           v.GetInt("pin-ir"),
		AmpActiveLow:    v.GetBool("amp-active-low"),
		SourceActiveLow: v.GetBool("source-active-low"),
		IRDevice:        v.GetString("ir-device"),

		SerialPort: v.GetString("serial-port"),
		SerialBaud: v.GetInt("serial-baud"),

		Broker:   v.GetString("broker"),
		ClientID: v.GetString("client-id"),
		HTTPAddr: v.GetString("http"),
		LogLevel: v.GetString("log-level"),
		Watchdog: v.GetBool("watchdog"),

		RemoteAddress:    v.GetInt("remote-address"),
		RemoteVolumeUp:   v.GetInt("remote-volume-up"),
		RemoteVolumeDown: v.GetInt("remote-volume-down"),
		RemoteMute:       v.GetInt("remote-mute"),

		NECAddress:    v.GetInt("nec-address"),
		NECVolumeUp:   v.GetInt("nec-volume-up"),
		NECVolumeDown: v.GetInt("nec-volume-down"),
		NECMute:       v.GetInt("nec-mute"),

		PrintState: v.GetBool("print-state"),
		Send:       v.GetString("send"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and pin assignments.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Poll > 0, "poll must be positive, got %v", c.Poll)
	check(c.OffDelay >= 0, "off-delay must not be negative, got %v", c.OffDelay)
	check(c.LEDWindow >= 0, "led-window must not be negative, got %v", c.LEDWindow)
	check(c.RelayPulse > 0, "relay-pulse must be positive, got %v", c.RelayPulse)
	check(c.Heartbeat >= 0, "heartbeat must not be negative, got %v", c.Heartbeat)

	pins := map[int]string{}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"pin-amp", c.PinAmp},
		{"pin-source", c.PinSource},
		{"pin-relay", c.PinRelay},
		{"pin-led", c.PinLED},
		{"pin-ir", c.PinIR},
	} {
		check(p.pin >= 0, "%s must not be negative, got %d", p.name, p.pin)
		if other, dup := pins[p.pin]; dup {
			check(false, "%s and %s share pin %d", other, p.name, p.pin)
		}
		pins[p.pin] = p.name
	}

	check(inRange(c.RemoteAddress, remote.MaxAddress), "remote-address out of range: %d", c.RemoteAddress)
	for name, v := range map[string]int{
		"remote-volume-up":   c.RemoteVolumeUp,
		"remote-volume-down": c.RemoteVolumeDown,
		"remote-mute":        c.RemoteMute,
	} {
		check(inRange(v, remote.MaxCommand), "%s out of range: %d", name, v)
	}
	for name, v := range map[string]int{
		"nec-address":     c.NECAddress,
		"nec-volume-up":   c.NECVolumeUp,
		"nec-volume-down": c.NECVolumeDown,
		"nec-mute":        c.NECMute,
	} {
		check(inRange(v, 255), "%s out of range: %d", name, v)
	}

	if _, lerr := logger.ParseLevel(c.LogLevel); lerr != nil {
		check(false, "%v", lerr)
	}
	return err
}

func inRange(v, max int) bool {
	return v >= 0 && v <= max
}

// Logic returns the state machine configuration.
func (c *Config) Logic() logic.Config {
	return logic.Config{
		OffDelay:         c.OffDelay,
		LEDWindow:        c.LEDWindow,
		RemoteAddress:    uint8(c.RemoteAddress),
		RemoteVolumeUp:   uint8(c.RemoteVolumeUp),
		RemoteVolumeDown: uint8(c.RemoteVolumeDown),
		RemoteMute:       uint8(c.RemoteMute),
		NECAddress:       byte(c.NECAddress),
		NECVolumeUp:      byte(c.NECVolumeUp),
		NECVolumeDown:    byte(c.NECVolumeDown),
		NECMute:          byte(c.NECMute),
	}
}

// Pins returns the sense pin assignment.
func (c *Config) Pins() gpio.Pins {
	return gpio.Pins{
		Amp:             c.PinAmp,
		Source:          c.PinSource,
		AmpActiveLow:    c.AmpActiveLow,
		SourceActiveLow: c.SourceActiveLow,
	}
}
