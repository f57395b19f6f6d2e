// Package config holds the settings shared by the firmware, the Raspberry Pi
// runner and the simulator.
//
// Firmware builds start from Default and override a few fields through
// linker flags. Host builds can also read a YAML file with Load.
package config

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Display modes.
const (
	ModeReading  = "reading"
	ModeMessages = "messages"
	ModeSelfTest = "selftest"
)

// Sample sources.
const (
	SourceADS1115   = "ads1115"
	SourceSynthetic = "synthetic"
)

type Config struct {
	// Mode selects what the display shows: smoothed ADC readings, a
	// rotation of fixed messages, or a walk through the character set.
	Mode     string   `yaml:"mode"`
	Messages []string `yaml:"messages"`

	Display DisplayConfig `yaml:"display"`
	Bus     BusConfig     `yaml:"bus"`
	Tick    TickConfig    `yaml:"tick"`
	Sample  SampleConfig  `yaml:"sample"`
	Touch   TouchConfig   `yaml:"touch"`
	LED     LEDConfig     `yaml:"led"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Log     LogConfig     `yaml:"log"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Address    uint8 `yaml:"address"`
	Brightness uint8 `yaml:"brightness"`
}

// ---- BUS ----

type BusConfig struct {
	// Name is the host bus name ("" opens the first bus found).
	Name        string `yaml:"name"`
	FrequencyHz int    `yaml:"frequency_hz"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// ---- TICK ----

type TickConfig struct {
	PeriodMs int `yaml:"period_ms"`
	// Cadence is the number of ticks between content selections.
	Cadence int `yaml:"cadence"`
}

// ---- SAMPLE ----

type SampleConfig struct {
	// Scale divides the 16-sample mean. 16 maps 12-bit readings to 0-255.
	Scale      int    `yaml:"scale"`
	IntervalMs int    `yaml:"interval_ms"`
	Source     string `yaml:"source"`
}

// ---- TOUCH / LED ----

type TouchConfig struct {
	Pin            string `yaml:"pin"`
	TogglesDisplay bool   `yaml:"toggles_display"`
}

type LEDConfig struct {
	Pin string `yaml:"pin"`
}

// ---- MQTT ----

type MQTTConfig struct {
	// Broker is host:port; empty disables telemetry.
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Topic       string `yaml:"topic"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings of the reference board: display at 0x70 at
// full brightness, 1 s ticks, a new selection every 5 ticks and the /16
// display scale.
func Default() Config {
	return Config{
		Mode:     ModeReading,
		Messages: []string{"LOVE", "LILI"},
		Display: DisplayConfig{
			Address:    0x70,
			Brightness: 15,
		},
		Bus: BusConfig{
			FrequencyHz: 100_000,
			TimeoutMs:   100,
		},
		Tick: TickConfig{
			PeriodMs: 1000,
			Cadence:  5,
		},
		Sample: SampleConfig{
			Scale:  16,
			Source: SourceSynthetic,
		},
		MQTT: MQTTConfig{
			ClientID:    "segdisplay",
			Topic:       "segdisplay/reading",
			TimeoutMs:   5000,
			HeartbeatMs: 30_000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeReading, ModeSelfTest:
	case ModeMessages:
		if len(c.Messages) == 0 {
			return errors.New("config: mode messages needs at least one message")
		}
	default:
		return errors.New("config: unknown mode " + strconv.Quote(c.Mode))
	}
	if c.Display.Address < 0x08 || c.Display.Address > 0x77 {
		return errors.New("config: display.address " + strconv.Itoa(int(c.Display.Address)) + " is not a 7-bit device address")
	}
	if c.Display.Brightness > 15 {
		return errors.New("config: display.brightness must be 0-15")
	}
	if c.Bus.FrequencyHz < 0 || c.Bus.TimeoutMs < 0 {
		return errors.New("config: bus values must not be negative")
	}
	if c.Tick.PeriodMs <= 0 {
		return errors.New("config: tick.period_ms must be positive")
	}
	if c.Tick.Cadence < 1 || c.Tick.Cadence > 255 {
		return errors.New("config: tick.cadence must be 1-255")
	}
	if c.Sample.Scale <= 0 {
		return errors.New("config: sample.scale must be positive")
	}
	if c.Sample.IntervalMs < 0 {
		return errors.New("config: sample.interval_ms must not be negative")
	}
	switch c.Sample.Source {
	case SourceADS1115, SourceSynthetic:
	default:
		return errors.New("config: unknown sample.source " + strconv.Quote(c.Sample.Source))
	}
	if c.MQTT.Broker != "" {
		if strings.LastIndexByte(c.MQTT.Broker, ':') <= 0 {
			return errors.New("config: mqtt.broker must be host:port")
		}
		if c.MQTT.Topic == "" || c.MQTT.ClientID == "" {
			return errors.New("config: mqtt.topic and mqtt.client_id are required with a broker")
		}
		if c.MQTT.Password != "" && c.MQTT.Username == "" {
			return errors.New("config: mqtt.password requires mqtt.username")
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level ("" is info).
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("config: log.level: " + err.Error())
	}
	return l, nil
}

func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.Tick.PeriodMs) * time.Millisecond
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sample.IntervalMs) * time.Millisecond
}

// HostSampleFloor is the sample interval host programs use when
// sample.interval_ms is 0. The firmware samples back to back; a host would
// spin a core.
const HostSampleFloor = 5 * time.Millisecond

// HostSampleInterval is SampleInterval, or HostSampleFloor when that is 0.
func (c *Config) HostSampleInterval() time.Duration {
	if d := c.SampleInterval(); d > 0 {
		return d
	}
	return HostSampleFloor
}

func (c *Config) BusTimeout() time.Duration {
	return time.Duration(c.Bus.TimeoutMs) * time.Millisecond
}

func (c *Config) MQTTTimeout() time.Duration {
	return time.Duration(c.MQTT.TimeoutMs) * time.Millisecond
}

func (c *Config) MQTTHeartbeat() time.Duration {
	return time.Duration(c.MQTT.HeartbeatMs) * time.Millisecond
}
