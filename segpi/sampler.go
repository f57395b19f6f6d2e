//go:build !tinygo

package main

import (
	"log/slog"
	"time"

	"github.com/harveysanders/segdisplay/config"
	"github.com/harveysanders/segdisplay/panel"
	"github.com/harveysanders/segdisplay/smoother"
	"github.com/harveysanders/segdisplay/telemetry"
)

// newSampler builds the reading-mode sampler. Every smoothed value is also
// queued on readings; a full queue drops it.
func newSampler(cfg *config.Config, adc panel.ADC, p *panel.Panel, readings chan<- telemetry.Reading, logger *slog.Logger) *panel.Sampler {
	start := time.Now()
	return &panel.Sampler{
		ADC:      adc,
		Smoother: smoother.New(uint32(cfg.Sample.Scale)),
		Panel:    p,
		Interval: cfg.HostSampleInterval(),
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
}
