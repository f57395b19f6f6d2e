//go:build tinygo

// segmeter is the Pico firmware: a potentiometer on ADC0 is smoothed and
// shown on a 4-digit 14-segment display driven by a VK16K33 on I2C0. On a
// Pico W, readings are also published over MQTT when WiFi credentials are
// linked in:
//
//	tinygo flash -target=pico-w -ldflags="-X main.ssid=home -X main.pass=secret -X main.broker=10.0.0.9:1883" ./segmeter
package main

import (
	"context"
	"io"
	"log/slog"
	"machine"
	"time"

	"github.com/harveysanders/segdisplay/config"
	"github.com/harveysanders/segdisplay/panel"
	"github.com/harveysanders/segdisplay/segmeter/cyw43439"
	"github.com/harveysanders/segdisplay/smoother"
	"github.com/harveysanders/segdisplay/telemetry"
	"github.com/harveysanders/segdisplay/vk16k33"
)

// Set with -ldflags -X.
var (
	ssid   string
	pass   string
	broker string
	mode   string
)

const (
	ledPin   = machine.GP21
	touchPin = machine.GP15
)

func main() {
	start := time.Now()
	cfg := config.Default()
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	if mode != "" {
		cfg.Mode = mode
	}

	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	if err := cfg.Validate(); err != nil {
		printErrForever(logger, "config", slog.String("reason", err.Error()))
	}

	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.GP4,
		SCL:       machine.GP5,
		Frequency: uint32(cfg.Bus.FrequencyHz),
	})
	if err != nil {
		printErrForever(logger, "configure I2C", slog.String("reason", err.Error()))
	}

	disp := vk16k33.New(machine.I2C0, cfg.Display.Address)
	disp.Brightness = cfg.Display.Brightness
	if err := disp.Configure(); err != nil {
		// Not fatal: the panel logs each failed write and keeps ticking.
		logger.Error("display:configure", slog.String("reason", err.Error()))
	}
	if err := disp.Clear(); err != nil {
		logger.Error("display:clear", slog.String("reason", err.Error()))
	}

	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	var source panel.Source
	switch cfg.Mode {
	case config.ModeMessages:
		rot, err := panel.NewRotation(cfg.Messages...)
		if err != nil {
			printErrForever(logger, "messages", slog.String("reason", err.Error()))
		}
		source = rot
	case config.ModeSelfTest:
		source = panel.SelfTest()
	}

	p := panel.New(&disp, panel.Config{
		Logger:              logger,
		LED:                 ledPin,
		Source:              source,
		Cadence:             uint8(cfg.Tick.Cadence),
		TouchTogglesDisplay: cfg.Touch.TogglesDisplay,
	})

	touchPin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	err = touchPin.SetInterrupt(machine.PinRising, func(machine.Pin) {
		p.Touch()
	})
	if err != nil {
		logger.Error("touch:interrupt", slog.String("reason", err.Error()))
	}

	ctx := context.Background()
	go p.Run(ctx, cfg.TickPeriod())

	if cfg.Mode != config.ModeReading {
		select {}
	}

	readings := make(chan telemetry.Reading, 10)
	if ssid != "" && cfg.MQTT.Broker != "" {
		go publish(ctx, &cfg, logger, readings)
	}

	machine.InitADC()
	pot := machine.ADC{Pin: machine.ADC0}
	pot.Configure(machine.ADCConfig{})

	s := panel.Sampler{
		ADC:      adc{pot},
		Smoother: smoother.New(uint32(cfg.Sample.Scale)),
		Panel:    p,
		Interval: cfg.SampleInterval(),
		Logger:   logger,
		OnReading: func(v uint16) {
			text := panel.FormatReading(v)
			telemetry.Send(readings, telemetry.Reading{
				Smoothed:    v,
				Text:        string(text[:]),
				SinceBootNS: time.Since(start),
			})
		},
	}
	s.Run(ctx)
}

// adc reports the Pico's ADC at its native 12-bit resolution. machine.ADC
// scales samples to 16 bits.
type adc struct {
	machine.ADC
}

func (a adc) Read() (uint16, error) {
	return a.Get() >> 4, nil
}

func publish(ctx context.Context, cfg *config.Config, logger *slog.Logger, readings <-chan telemetry.Reading) {
	stack, err := cyw43439.Join(ssid, pass, cyw43439.StackConfig{
		Hostname: cfg.MQTT.ClientID,
		Logger:   logger,
	})
	if err != nil {
		printErrForever(logger, "wifi", slog.String("reason", err.Error()))
	}
	go stack.Serve(ctx)
	if _, err := stack.SetupWithDHCP(cyw43439.DHCPConfig{}); err != nil {
		printErrForever(logger, "dhcp", slog.String("reason", err.Error()))
	}
	logger.Info("wifi:ready", slog.String("ip", stack.Addr().String()), slog.String("broker", cfg.MQTT.Broker))

	pub := telemetry.Publisher{
		ID:                cfg.MQTT.ClientID,
		Topic:             cfg.MQTT.Topic,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		Timeout:           cfg.MQTTTimeout(),
		HeartbeatInterval: cfg.MQTTHeartbeat(),
		Logger:            logger,
	}
	err = pub.Run(ctx, func(ctx context.Context) (io.ReadWriteCloser, error) {
		return stack.Dial(ctx, cfg.MQTT.Broker)
	}, readings)
	printErrForever(logger, "mqtt", slog.String("reason", err.Error()))
}

// printErrForever prints to serial once a second, so the message is seen
// even if the monitor attaches late. It never returns.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}
