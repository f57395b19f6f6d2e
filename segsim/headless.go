//go:build !tinygo

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/harveysanders/segdisplay/sim"
)

// runHeadless ticks the panel on every value from ticks and prints the
// display after each tick. It stops after n ticks (0 = until ctx is done or
// ticks is closed).
func runHeadless(ctx context.Context, w io.Writer, s *system, ticks <-chan time.Time, n uint64) error {
	var count uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			shown := s.panel.Buffer()
			s.panel.Tick()
			count++
			if _, err := fmt.Fprintf(w, "tick %d  %q\n", count, shown.String()); err != nil {
				return err
			}
			if err := sim.WriteTo(w, s.digits()); err != nil {
				return err
			}
			if n > 0 && count >= n {
				return nil
			}
		}
	}
}
