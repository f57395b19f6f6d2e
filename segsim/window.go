//go:build !tinygo && cgo

package main

import (
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/harveysanders/segdisplay/glyph"
	"github.com/harveysanders/segdisplay/panel"
)

const (
	cellW   = 60
	cellH   = 100
	margin  = 20
	stroke  = 7
	screenW = panel.Digits*(cellW+margin) + margin
	screenH = cellH + 2*margin
)

var (
	segLit   = color.RGBA{R: 0xFF, G: 0x30, B: 0x20, A: 0xFF}
	segUnlit = color.RGBA{R: 0x30, G: 0x10, B: 0x10, A: 0xFF}
)

type line struct{ x0, y0, x1, y1 float32 }

// segments holds one stroke per segment bit, in a cellW x cellH cell.
var segments = func() [15]line {
	const (
		l, c, r = 0, cellW / 2, cellW
		t, m, b = 0, cellH / 2, cellH
	)
	var s [15]line
	set := func(seg glyph.Mask, ln line) {
		for i := 0; i < len(s); i++ {
			if seg == 1<<i {
				s[i] = ln
			}
		}
	}
	set(glyph.SegA, line{l, t, r, t})
	set(glyph.SegB, line{r, t, r, m})
	set(glyph.SegC, line{r, m, r, b})
	set(glyph.SegD, line{l, b, r, b})
	set(glyph.SegE, line{l, m, l, b})
	set(glyph.SegF, line{l, t, l, m})
	set(glyph.SegG1, line{l, m, c, m})
	set(glyph.SegG2, line{c, m, r, m})
	set(glyph.SegH, line{l, t, c, m})
	set(glyph.SegJ, line{c, t, c, m})
	set(glyph.SegK, line{r, t, c, m})
	set(glyph.SegL, line{c, m, l, b})
	set(glyph.SegM, line{c, m, c, b})
	set(glyph.SegN, line{c, m, r, b})
	set(glyph.SegDP, line{r + 8, b, r + 12, b})
	return s
}()

// window ticks the panel in real time, forwards space or a mouse click to
// the touch input and maps the up and down arrows to the dimming level.
type window struct {
	s      *system
	period time.Duration
	next   time.Time
}

func runWindow(s *system, period time.Duration) error {
	ebiten.SetWindowTitle("segsim")
	ebiten.SetWindowSize(screenW*2, screenH*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(&window{s: s, period: period, next: time.Now()})
}

func (w *window) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) || inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		w.s.panel.Touch()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		w.s.adjustBrightness(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		w.s.adjustBrightness(-1)
	}
	if now := time.Now(); !now.Before(w.next) {
		w.s.panel.Tick()
		w.next = now.Add(w.period)
	}
	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	lit := dim(segLit, w.s.ctrl.Brightness())
	for i, mask := range w.s.digits() {
		ox := float32(margin + i*(cellW+margin))
		oy := float32(margin)
		for bit, seg := range segments {
			clr := segUnlit
			if mask&(1<<bit) != 0 {
				clr = lit
			}
			vector.StrokeLine(screen, ox+seg.x0, oy+seg.y0, ox+seg.x1, oy+seg.y1, stroke, clr, true)
		}
	}
	if w.s.led.On() {
		vector.StrokeLine(screen, screenW-12, 6, screenW-6, 6, 6, color.RGBA{G: 0xC0, A: 0xFF}, true)
	}
}

// dim scales c for a dimming level of 0 (1/16 duty) to 15 (full).
func dim(c color.RGBA, level uint8) color.RGBA {
	f := func(v uint8) uint8 { return uint8(uint16(v) * (uint16(level) + 1) / 16) }
	return color.RGBA{R: f(c.R), G: f(c.G), B: f(c.B), A: c.A}
}

func (w *window) Layout(_, _ int) (int, int) {
	return screenW, screenH
}
