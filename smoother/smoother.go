// Package smoother averages raw ADC samples over a fixed window and rescales
// the mean to a display-friendly magnitude.
package smoother

// Window is the number of samples averaged per output.
const Window = 16

// DefaultScale divides the window mean once more. It maps a 12-bit reading
// (0-4095) onto 0-255.
const DefaultScale = 16

// Smoother collects Window samples and emits their scaled mean. The zero
// value is not usable; call New.
type Smoother struct {
	buf   [Window]uint16
	n     int
	scale uint32
}

// New returns a Smoother that divides each window mean by scale.
// A zero scale selects DefaultScale.
func New(scale uint32) *Smoother {
	if scale == 0 {
		scale = DefaultScale
	}
	return &Smoother{scale: scale}
}

// Push stores raw in the current window. When the window is full it returns
// sum/Window/scale and true, and the next Push starts a new window.
func (s *Smoother) Push(raw uint16) (uint16, bool) {
	s.buf[s.n] = raw
	s.n++
	if s.n < Window {
		return 0, false
	}
	var sum uint32
	for _, v := range s.buf {
		sum += uint32(v)
	}
	s.n = 0
	return uint16(sum / Window / s.scale), true
}

// Reset drops any partially collected window.
func (s *Smoother) Reset() { s.n = 0 }

// Len reports how many samples the current window holds.
func (s *Smoother) Len() int { return s.n }

// Scale returns the divisor applied to the window mean.
func (s *Smoother) Scale() uint32 { return s.scale }
