// Package vk16k33 drives a VK16K33 (HT16K33 compatible) LED controller
// wired to a 4-digit 14-segment display.
//
// Each digit occupies two display RAM registers holding the low and high
// byte of its segment mask. All commands are plain writes; the driver never
// reads from the device.
package vk16k33

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Address is the default 7-bit bus address (all address pins low).
const Address = 0x70

// Digits is the number of digit positions on the display.
const Digits = 4

// MaxBrightness is the highest dimming level.
const MaxBrightness = 15

const (
	cmdSystemSetup = 0b00100000
	systemOscOn    = 0b00000001

	cmdDisplaySetup = 0b10000000
	displayOn       = 0b00000001

	cmdRowInt = 0b10100000
	rowOutput = 0b00000000

	cmdDimming = 0b11100000
)

// ErrDigitIndex is returned for digit positions outside 0..Digits-1.
var ErrDigitIndex = errors.New("vk16k33: digit index out of range")

// Device is a VK16K33 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16
	// Brightness is the dimming level sent by Configure.
	Brightness uint8

	buf [3]byte
}

// New creates a Device for the controller at addr. An addr of 0 selects
// Address. Call Configure before writing digits.
func New(bus drivers.I2C, addr uint8) Device {
	if addr == 0 {
		addr = Address
	}
	return Device{
		bus:        bus,
		Address:    uint16(addr),
		Brightness: MaxBrightness,
	}
}

// Configure starts the oscillator, enables the display, selects ROW output
// and sets the brightness, in that order. Every command is sent even if an
// earlier one fails; the failures are joined.
func (d *Device) Configure() error {
	level := d.Brightness
	if level > MaxBrightness {
		level = MaxBrightness
	}
	cmds := [...]byte{
		cmdSystemSetup | systemOscOn,
		cmdDisplaySetup | displayOn,
		cmdRowInt | rowOutput,
		cmdDimming | level,
	}
	var errs []error
	for _, c := range cmds {
		if err := d.command(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetDigit writes mask to the digit at index (0 is leftmost).
func (d *Device) SetDigit(mask uint16, index int) error {
	if index < 0 || index >= Digits {
		return ErrDigitIndex
	}
	d.buf[0] = byte(index * 2)
	d.buf[1] = byte(mask)
	d.buf[2] = byte(mask >> 8)
	if err := d.bus.Tx(d.Address, d.buf[:3], nil); err != nil {
		return errors.New("vk16k33: digit " + string(rune('0'+index)) + ": " + err.Error())
	}
	return nil
}

// Clear blanks every digit, leftmost first.
func (d *Device) Clear() error {
	var errs []error
	for i := 0; i < Digits; i++ {
		if err := d.SetDigit(0, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DisplayOn enables the LED outputs without blinking.
func (d *Device) DisplayOn() error {
	return d.command(cmdDisplaySetup | displayOn)
}

// DisplayOff blanks the LED outputs. Display RAM is kept.
func (d *Device) DisplayOff() error {
	return d.command(cmdDisplaySetup)
}

// SetBrightness sets the dimming level; levels above MaxBrightness are
// clamped.
func (d *Device) SetBrightness(level uint8) error {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	if err := d.command(cmdDimming | level); err != nil {
		return err
	}
	d.Brightness = level
	return nil
}

func (d *Device) command(c byte) error {
	d.buf[0] = c
	if err := d.bus.Tx(d.Address, d.buf[:1], nil); err != nil {
		return errors.New("vk16k33: command " + hexByte(c) + ": " + err.Error())
	}
	return nil
}

func hexByte(b byte) string {
	const hex = "0123456789abcdef"
	return string([]byte{'0', 'x', hex[b>>4], hex[b&0x0F]})
}
