//go:build !tinygo && !cgo

package main

import (
	"errors"
	"time"
)

func runWindow(_ *system, _ time.Duration) error {
	return errors.New("window mode requires cgo (build with CGO_ENABLED=1, or use -headless)")
}
