//go:build !tinygo

// segpi drives the display from a Raspberry Pi: the VK16K33 on the Linux
// I2C bus, an optional ADS1115 for the analog input, and GPIO pins for the
// status LED and touch sensor.
//
//	segpi -config segpi.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harveysanders/segdisplay/config"
	"github.com/harveysanders/segdisplay/panel"
	"github.com/harveysanders/segdisplay/sim"
	"github.com/harveysanders/segdisplay/telemetry"
	"github.com/harveysanders/segdisplay/vk16k33"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("segpi:exit", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus.Name)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", cfg.Bus.Name, err)
	}
	defer bus.Close()
	if cfg.Bus.FrequencyHz > 0 {
		if err := bus.SetSpeed(physic.Frequency(cfg.Bus.FrequencyHz) * physic.Hertz); err != nil {
			logger.Warn("i2c:set-speed", slog.String("err", err.Error()))
		}
	}
	disp := vk16k33.New(vk16k33.WithTimeout(bus, cfg.BusTimeout()), cfg.Display.Address)
	disp.Brightness = cfg.Display.Brightness
	if err := disp.Configure(); err != nil {
		logger.Error("display:configure", slog.String("err", err.Error()))
	}
	if err := disp.Clear(); err != nil {
		logger.Error("display:clear", slog.String("err", err.Error()))
	}
	defer disp.DisplayOff()

	pcfg := panel.Config{
		Logger:              logger,
		Cadence:             uint8(cfg.Tick.Cadence),
		TouchTogglesDisplay: cfg.Touch.TogglesDisplay,
	}
	if cfg.LED.Pin != "" {
		led, err := openLED(cfg.LED.Pin)
		if err != nil {
			return err
		}
		pcfg.LED = led
	}
	switch cfg.Mode {
	case config.ModeMessages:
		rot, err := panel.NewRotation(cfg.Messages...)
		if err != nil {
			return fmt.Errorf("messages: %w", err)
		}
		pcfg.Source = rot
	case config.ModeSelfTest:
		pcfg.Source = panel.SelfTest()
	}
	p := panel.New(&disp, pcfg)

	errc := make(chan error, 3)
	if cfg.Touch.Pin != "" {
		touch := gpioreg.ByName(cfg.Touch.Pin)
		if touch == nil {
			return fmt.Errorf("touch pin %q not found", cfg.Touch.Pin)
		}
		if err := touch.In(gpio.PullDown, gpio.RisingEdge); err != nil {
			return fmt.Errorf("touch pin %s: %w", touch, err)
		}
		go watchTouch(ctx, touch, p)
	}

	go func() { errc <- p.Run(ctx, cfg.TickPeriod()) }()

	var sampler *panel.Sampler
	defer func() {
		st := p.Stats()
		args := []any{
			slog.Uint64("ticks", uint64(st.Ticks)),
			slog.Uint64("write_errors", uint64(st.WriteErrors)),
			slog.Uint64("readings", uint64(st.Readings)),
			slog.Uint64("touches", uint64(st.Touches)),
		}
		if sampler != nil {
			args = append(args, slog.Uint64("read_errors", uint64(sampler.ReadErrors())))
		}
		logger.Info("segpi:stopped", args...)
	}()

	if cfg.Mode == config.ModeReading {
		var adc panel.ADC
		switch cfg.Sample.Source {
		case config.SourceADS1115:
			a, err := openADS1115(bus)
			if err != nil {
				return err
			}
			defer a.Halt()
			adc = a
		default:
			adc = &sim.Wave{Min: 0, Max: 4095, Step: 37}
		}

		readings := make(chan telemetry.Reading, 10)
		sampler = newSampler(cfg, adc, p, readings, logger)
		go func() { errc <- sampler.Run(ctx) }()

		if cfg.MQTT.Broker != "" {
			pub := &telemetry.Publisher{
				ID:                cfg.MQTT.ClientID,
				Topic:             cfg.MQTT.Topic,
				Username:          cfg.MQTT.Username,
				Password:          cfg.MQTT.Password,
				Timeout:           cfg.MQTTTimeout(),
				HeartbeatInterval: cfg.MQTTHeartbeat(),
				Logger:            logger,
			}
			var d net.Dialer
			dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
				return d.DialContext(ctx, "tcp", cfg.MQTT.Broker)
			}
			go func() { errc <- pub.Run(ctx, dial, readings) }()
		}
	}

	logger.Info("segpi:running", slog.String("mode", cfg.Mode), slog.String("bus", bus.String()))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

// pinLED adapts a periph output pin to panel.LED.
type pinLED struct {
	pin gpio.PinOut
}

func openLED(name string) (*pinLED, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("led pin %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led pin %s: %w", pin, err)
	}
	return &pinLED{pin: pin}, nil
}

func (l *pinLED) High() { l.pin.Out(gpio.High) }
func (l *pinLED) Low()  { l.pin.Out(gpio.Low) }

// watchTouch forwards rising edges to the panel until ctx is done.
func watchTouch(ctx context.Context, pin gpio.PinIn, p *panel.Panel) {
	for ctx.Err() == nil {
		if pin.WaitForEdge(time.Second) {
			p.Touch()
		}
	}
	pin.Halt()
}

// ads1115 reads channel 0 of an ADS1115 and scales it to the 12-bit range
// the smoother expects.
type ads1115 struct {
	dev *ads1x15.Dev
	pin ads1x15.PinADC
}

func openADS1115(bus i2c.Bus) (*ads1115, error) {
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("ads1115: %w", err)
	}
	pin, err := dev.PinForChannel(ads1x15.Channel0, 5*physic.Volt, 128*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("ads1115 channel 0: %w", err)
	}
	return &ads1115{dev: dev, pin: pin}, nil
}

func (a *ads1115) Read() (uint16, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, err
	}
	// Single-ended readings are 15 bits; negative values are noise around 0.
	if s.Raw < 0 {
		return 0, nil
	}
	return uint16(s.Raw >> 3), nil
}

func (a *ads1115) Halt() error {
	return errors.Join(a.pin.Halt(), a.dev.Halt())
}
