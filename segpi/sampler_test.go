//go:build !tinygo

package main

import (
	"context"
	"testing"
	"time"

	"github.com/harveysanders/segdisplay/config"
	"github.com/harveysanders/segdisplay/panel"
	"github.com/harveysanders/segdisplay/sim"
	"github.com/harveysanders/segdisplay/telemetry"
	"github.com/harveysanders/segdisplay/vk16k33"
)

func newTestPanel() *panel.Panel {
	disp := vk16k33.New(sim.NewController(0), 0)
	return panel.New(&disp, panel.Config{})
}

func TestSamplerDefaultIntervalIsPaced(t *testing.T) {
	cfg := config.Default()
	p := newTestPanel()
	s := newSampler(&cfg, &sim.Wave{Min: 0, Max: 4095, Step: 37}, p, make(chan telemetry.Reading, 10), nil)
	if s.Interval != config.HostSampleFloor {
		t.Fatalf("Interval = %v, want %v", s.Interval, config.HostSampleFloor)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)
	// 200ms at 5ms per sample is at most 40 samples, so 2 windows of 16.
	if n := p.Stats().Readings; n > 3 {
		t.Fatalf("%d readings in 200ms; sampler is not paced", n)
	}
}

func TestSamplerQueuesTelemetry(t *testing.T) {
	cfg := config.Default()
	readings := make(chan telemetry.Reading, 1)
	s := newSampler(&cfg, &sim.Wave{Min: 256, Max: 256}, newTestPanel(), readings, nil)
	for i := 0; i < 2*16; i++ {
		if _, _, err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case r := <-readings:
		if r.Smoothed != 1 || r.Text != "   1" {
			t.Fatalf("reading %+v", r)
		}
	default:
		t.Fatal("no reading queued")
	}
	if len(readings) != 0 {
		t.Fatal("second reading should have been dropped by the full queue")
	}
}
