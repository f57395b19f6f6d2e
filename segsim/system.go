//go:build !tinygo

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harveysanders/segdisplay/config"
	"github.com/harveysanders/segdisplay/panel"
	"github.com/harveysanders/segdisplay/sim"
	"github.com/harveysanders/segdisplay/smoother"
	"github.com/harveysanders/segdisplay/vk16k33"
)

// system is the whole device with the hardware replaced by sim types.
type system struct {
	ctrl    *sim.Controller
	disp    *vk16k33.Device
	led     *sim.LED
	panel   *panel.Panel
	sampler *panel.Sampler // nil unless mode is reading
}

func newSystem(cfg *config.Config, logger *slog.Logger) (*system, error) {
	ctrl := sim.NewController(cfg.Display.Address)
	disp := vk16k33.New(ctrl, cfg.Display.Address)
	disp.Brightness = cfg.Display.Brightness
	if err := disp.Configure(); err != nil {
		return nil, fmt.Errorf("configure display: %w", err)
	}
	if err := disp.Clear(); err != nil {
		return nil, fmt.Errorf("clear display: %w", err)
	}

	s := &system{ctrl: ctrl, disp: &disp, led: &sim.LED{}}
	pcfg := panel.Config{
		Logger:              logger,
		LED:                 s.led,
		Cadence:             uint8(cfg.Tick.Cadence),
		TouchTogglesDisplay: cfg.Touch.TogglesDisplay,
	}
	switch cfg.Mode {
	case config.ModeMessages:
		rot, err := panel.NewRotation(cfg.Messages...)
		if err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
		pcfg.Source = rot
	case config.ModeSelfTest:
		pcfg.Source = panel.SelfTest()
	}
	s.panel = panel.New(&disp, pcfg)

	if cfg.Mode == config.ModeReading {
		s.sampler = &panel.Sampler{
			ADC:      &sim.Wave{Min: 0, Max: 4095, Step: 37},
			Smoother: smoother.New(uint32(cfg.Sample.Scale)),
			Panel:    s.panel,
			Interval: cfg.HostSampleInterval(),
			Logger:   logger,
		}
	}
	return s, nil
}

// sample runs the sampler, if any, until ctx is done.
func (s *system) sample(ctx context.Context) error {
	if s.sampler == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.sampler.Run(ctx)
}

// adjustBrightness steps the dimming level by delta, clamped to 0-15. It
// bypasses the panel lock, so it must run on the goroutine that ticks.
func (s *system) adjustBrightness(delta int) error {
	level := max(0, min(int(s.ctrl.Brightness())+delta, vk16k33.MaxBrightness))
	return s.disp.SetBrightness(uint8(level))
}

// digits returns the segment masks currently latched in the controller,
// or all zeros while the display is off.
func (s *system) digits() []uint16 {
	masks := s.ctrl.Digits(panel.Digits)
	if !s.ctrl.Lit() {
		clear(masks)
	}
	return masks
}
