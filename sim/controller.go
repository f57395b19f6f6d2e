// Package sim provides software stand-ins for the display hardware: an
// emulated VK16K33 that decodes bus writes, a text renderer for 14-segment
// masks, a synthetic ADC and a recording LED.
package sim

import (
	"errors"
	"strconv"
	"sync"
)

// ErrNoDevice is returned for transactions addressed to another device.
var ErrNoDevice = errors.New("sim: no device at address")

const ramSize = 16

// Controller emulates the write side of a VK16K33 controller. It
// implements the Tx method of drivers.I2C and is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	addr       uint16
	ram        [ramSize]byte
	ptr        byte
	osc        bool
	on         bool
	blink      uint8
	rowInt     byte
	brightness uint8
	writes     int
	fault      error
}

// NewController returns a Controller answering at addr (0x70 if zero).
func NewController(addr uint8) *Controller {
	if addr == 0 {
		addr = 0x70
	}
	return &Controller{addr: uint16(addr)}
}

// Tx decodes one bus transaction.
func (c *Controller) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fault != nil {
		return c.fault
	}
	if addr != c.addr {
		return ErrNoDevice
	}
	if len(w) > 0 {
		if err := c.write(w); err != nil {
			return err
		}
		c.writes++
	}
	for i := range r {
		r[i] = c.ram[c.ptr]
		c.ptr = (c.ptr + 1) % ramSize
	}
	return nil
}

func (c *Controller) write(w []byte) error {
	cmd := w[0]
	if cmd&0xF0 == 0x00 {
		c.ptr = cmd & 0x0F
		for _, b := range w[1:] {
			c.ram[c.ptr] = b
			c.ptr = (c.ptr + 1) % ramSize
		}
		return nil
	}
	if len(w) > 1 {
		return errors.New("sim: command " + strconv.Itoa(int(cmd)) + " takes no data")
	}
	switch cmd & 0xF0 {
	case 0x20:
		c.osc = cmd&0x01 != 0
	case 0x80:
		c.on = cmd&0x01 != 0
		c.blink = (cmd >> 1) & 0x03
	case 0xA0:
		c.rowInt = cmd & 0x0F
	case 0xE0:
		c.brightness = cmd & 0x0F
	default:
		return errors.New("sim: unknown command " + strconv.Itoa(int(cmd)))
	}
	return nil
}

// SetFault makes every following transaction fail with err. A nil err
// restores normal operation.
func (c *Controller) SetFault(err error) {
	c.mu.Lock()
	c.fault = err
	c.mu.Unlock()
}

// Digit returns the segment mask latched for digit i, or 0 if i is not
// one of the controller's 8 digit positions.
func (c *Controller) Digit(i int) uint16 {
	if i < 0 || 2*i+1 >= ramSize {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint16(c.ram[2*i]) | uint16(c.ram[2*i+1])<<8
}

// Digits returns the masks of the first n digits.
func (c *Controller) Digits(n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = c.Digit(i)
	}
	return out
}

// Lit reports whether the oscillator runs and the display is enabled.
func (c *Controller) Lit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.osc && c.on
}

// Brightness returns the dimming level, 0 to 15.
func (c *Controller) Brightness() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brightness
}

// Blink returns the blink mode bits of the display setup register.
func (c *Controller) Blink() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blink
}

// RowInt returns the ROW/INT register.
func (c *Controller) RowInt() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rowInt
}

// Writes returns the number of accepted write transactions.
func (c *Controller) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}
