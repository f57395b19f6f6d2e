// Package panel keeps the 4-digit display buffer and pushes it to the
// display controller on every tick.
//
// A Panel is shared between the tick loop and the sampling loop. Both go
// through the same mutex, which also serialises every bus transaction the
// panel issues. Touch is the only method that may be called from an
// interrupt handler.
package panel

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harveysanders/segdisplay/glyph"
)

// Digits is the number of digit positions on the display.
const Digits = 4

// DefaultCadence is the number of ticks between content selections.
const DefaultCadence = 5

// Buffer holds one glyph per digit position, left to right.
type Buffer [Digits]glyph.Glyph

// Display is the display controller the panel renders to.
type Display interface {
	SetDigit(mask uint16, index int) error
	DisplayOn() error
	DisplayOff() error
}

// LED is a status output toggled on every tick.
type LED interface {
	High()
	Low()
}

// Source picks the buffer to show next. It is called once every Cadence
// ticks with the panel lock held, so implementations need no locking of
// their own. Returning false keeps the current content.
type Source interface {
	Next() (Buffer, bool)
}

// Config configures a Panel. The zero value is usable.
type Config struct {
	Logger *slog.Logger
	// LED, if set, is toggled on every tick.
	LED LED
	// Source, if set, selects new content every Cadence ticks.
	Source Source
	// Cadence is the tick count between Source selections (DefaultCadence
	// if zero).
	Cadence uint8
	// TouchTogglesDisplay turns the display off and on with each touch.
	TouchTogglesDisplay bool
}

// Stats are running counters since New.
type Stats struct {
	Ticks       uint32
	WriteErrors uint32
	Readings    uint32
	Touches     uint32
}

// Panel owns the display buffer.
type Panel struct {
	mu      sync.Mutex
	disp    Display
	buf     Buffer
	count   uint8
	cadence uint8
	src     Source
	led     LED
	ledOn   bool
	dispOff bool
	toggle  bool
	stats   Stats
	log     *slog.Logger

	// touches is written from interrupt context.
	touches atomic.Uint32
}

// New returns a Panel rendering to disp. The buffer starts blank, or with
// the first buffer of cfg.Source if one is given.
func New(disp Display, cfg Config) *Panel {
	p := &Panel{
		disp:    disp,
		cadence: cfg.Cadence,
		src:     cfg.Source,
		led:     cfg.LED,
		toggle:  cfg.TouchTogglesDisplay,
		log:     cfg.Logger,
	}
	if p.cadence == 0 {
		p.cadence = DefaultCadence
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}
	for i := range p.buf {
		p.buf[i] = glyph.Blank
	}
	if p.src != nil {
		if first, ok := p.src.Next(); ok {
			p.buf = first
		}
	}
	return p
}

// Tick writes the whole buffer to the display, then advances the content
// cadence, applies pending touches and toggles the status LED. Write
// failures are logged and counted; they never stop the panel.
func (p *Panel) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, g := range p.buf {
		if err := p.disp.SetDigit(uint16(g.Mask()), i); err != nil {
			p.stats.WriteErrors++
			p.log.Warn("panel:write-failed", slog.Int("digit", i), slog.String("err", err.Error()))
		}
	}
	p.stats.Ticks++

	if n := p.touches.Swap(0); n > 0 {
		p.stats.Touches += n
		p.handleTouches(n)
	}

	p.count++
	if p.count >= p.cadence {
		p.count = 0
		if p.src != nil {
			if next, ok := p.src.Next(); ok {
				p.buf = next
			}
		}
	}

	if p.led != nil {
		p.ledOn = !p.ledOn
		if p.ledOn {
			p.led.High()
		} else {
			p.led.Low()
		}
	}
}

// handleTouches runs with p.mu held.
func (p *Panel) handleTouches(n uint32) {
	p.log.Info("panel:touch", slog.Uint64("count", uint64(n)))
	if !p.toggle || n%2 == 0 {
		return
	}
	p.dispOff = !p.dispOff
	var err error
	if p.dispOff {
		err = p.disp.DisplayOff()
	} else {
		err = p.disp.DisplayOn()
	}
	if err != nil {
		p.stats.WriteErrors++
		p.log.Warn("panel:display-toggle-failed", slog.Bool("off", p.dispOff), slog.String("err", err.Error()))
	}
}

// Touch records a touch-sensor edge. It only touches an atomic counter, so
// it is safe to call from an interrupt handler; the edge is handled on the
// next Tick.
func (p *Panel) Touch() {
	p.touches.Add(1)
}

// ShowReading replaces the buffer with v, right-aligned and space padded.
// Values above 9999 show as "----".
func (p *Panel) ShowReading(v uint16) {
	text := FormatReading(v)
	var buf Buffer
	for i, c := range text {
		buf[i] = readingGlyph(c)
	}

	p.mu.Lock()
	p.buf = buf
	p.stats.Readings++
	p.mu.Unlock()
}

// ShowText replaces the buffer with s, left-aligned and padded with blanks.
// The buffer is unchanged if s is too long or holds a character the display
// cannot show.
func (p *Panel) ShowText(s string) error {
	buf, err := EncodeText(s)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.buf = buf
	p.mu.Unlock()
	return nil
}

// Buffer returns a copy of the current buffer.
func (p *Panel) Buffer() Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf
}

// Stats returns a snapshot of the panel counters. Touches not yet handled
// by a Tick are not included.
func (p *Panel) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// String renders the buffer as plain text.
func (b Buffer) String() string {
	var out [Digits]byte
	for i, g := range b {
		out[i] = byte(g.Rune())
	}
	return string(out[:])
}
