//go:build !tinygo

// segsim runs the display firmware against an emulated VK16K33 and a
// synthetic ADC. By default it opens a window; -headless prints each tick
// as text instead.
//
//	segsim -config segdisplay.yaml
//	segsim -headless -ticks 20
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/harveysanders/segdisplay/config"
)

func main() {
	var (
		configPath string
		headless   bool
		ticks      uint64
		mode       string
	)
	flag.StringVar(&configPath, "config", "", "YAML config file (defaults apply when empty)")
	flag.BoolVar(&headless, "headless", false, "Print the display to stdout instead of opening a window.")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&mode, "mode", "", "Override the display mode (reading, messages, selftest).")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if mode != "" {
		cfg.Mode = mode
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s, err := newSystem(&cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go s.sample(ctx)

	if headless {
		t := time.NewTicker(cfg.TickPeriod())
		defer t.Stop()
		err = runHeadless(ctx, os.Stdout, s, t.C, ticks)
	} else {
		err = runWindow(s, cfg.TickPeriod())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
