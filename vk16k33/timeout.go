package vk16k33

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// ErrTimeout is returned when a bus transaction does not finish in time.
var ErrTimeout = errors.New("vk16k33: bus timeout")

type timeoutBus struct {
	bus     drivers.I2C
	timeout time.Duration
	// idle holds a token while no transaction is in flight.
	idle chan struct{}
}

// WithTimeout bounds every Tx on bus by d. A transaction that overruns is
// left to finish in the background and later calls fail with ErrTimeout
// until it does. A non-positive d returns bus unchanged.
func WithTimeout(bus drivers.I2C, d time.Duration) drivers.I2C {
	if d <= 0 {
		return bus
	}
	b := &timeoutBus{bus: bus, timeout: d, idle: make(chan struct{}, 1)}
	b.idle <- struct{}{}
	return b
}

func (b *timeoutBus) Tx(addr uint16, w, r []byte) error {
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-b.idle:
	case <-timer.C:
		return ErrTimeout
	}

	// The caller may reuse w and r once we return, so the transaction
	// works on private copies.
	wc := append([]byte(nil), w...)
	var rc []byte
	if len(r) > 0 {
		rc = make([]byte, len(r))
	}
	done := make(chan error, 1)
	go func() {
		err := b.bus.Tx(addr, wc, rc)
		b.idle <- struct{}{}
		done <- err
	}()

	finished, err := await(done, timer.C)
	if !finished {
		return ErrTimeout
	}
	copy(r, rc)
	return err
}

// await waits for the transaction result or expiry. A result that is ready
// when the timer fires still wins.
func await(done <-chan error, expired <-chan time.Time) (finished bool, err error) {
	select {
	case err = <-done:
		return true, err
	case <-expired:
	}
	select {
	case err = <-done:
		return true, err
	default:
		return false, nil
	}
}
