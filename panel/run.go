package panel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/harveysanders/segdisplay/smoother"
)

// Run calls Tick every period until ctx is done.
func (p *Panel) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return errors.New("panel: tick period must be positive")
	}
	t := time.NewTicker(period)
	defer t.Stop()
	return p.RunTicks(ctx, t.C)
}

// RunTicks calls Tick for every value received on ticks. It returns nil
// when ticks is closed and ctx.Err() when ctx is done.
func (p *Panel) RunTicks(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			p.Tick()
		}
	}
}

// ADC is an analog input returning raw unsigned samples.
type ADC interface {
	Read() (uint16, error)
}

// Sampler feeds ADC samples through a Smoother and shows each smoothed
// value on the Panel.
type Sampler struct {
	ADC      ADC
	Smoother *smoother.Smoother
	Panel    *Panel
	// Interval is the pause between samples. Zero only yields to other
	// goroutines.
	Interval time.Duration
	Logger   *slog.Logger
	// OnReading, if set, is called with every smoothed value after it has
	// been shown.
	OnReading func(v uint16)

	readErrors atomic.Uint32
}

// Step takes one sample. It reports the smoothed value when this sample
// completed a window.
func (s *Sampler) Step() (uint16, bool, error) {
	raw, err := s.ADC.Read()
	if err != nil {
		s.readErrors.Add(1)
		return 0, false, errors.New("panel: adc read:" + err.Error())
	}
	v, ok := s.Smoother.Push(raw)
	if !ok {
		return 0, false, nil
	}
	s.Panel.ShowReading(v)
	if s.OnReading != nil {
		s.OnReading(v)
	}
	return v, true, nil
}

// ReadErrors returns the number of failed ADC reads.
func (s *Sampler) ReadErrors() uint32 { return s.readErrors.Load() }

// Run samples until ctx is done. Read errors are logged and sampling
// continues.
func (s *Sampler) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}
	var pause <-chan time.Time
	if s.Interval > 0 {
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		pause = t.C
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok, err := s.Step()
		switch {
		case err != nil:
			logger.Warn("sampler:read-failed", slog.String("err", err.Error()))
		case ok:
			logger.Debug("sampler:reading", slog.Uint64("value", uint64(v)))
		}
		if pause == nil {
			// TinyGo schedules cooperatively on a single core.
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pause:
		}
	}
}
