package sim

import "sync"

// Wave is a synthetic ADC producing a triangle wave between Min and Max,
// moving Step counts per Read. It satisfies panel.ADC.
type Wave struct {
	Min, Max uint16
	Step     uint16

	mu   sync.Mutex
	v    uint16
	down bool
	init bool
}

// Read returns the next sample.
func (w *Wave) Read() (uint16, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.init {
		w.v = w.Min
		w.init = true
		return w.v, nil
	}
	step := w.Step
	if step == 0 {
		step = 1
	}
	if w.down {
		if w.v-w.Min <= step {
			w.v = w.Min
			w.down = false
		} else {
			w.v -= step
		}
	} else {
		if w.Max-w.v <= step {
			w.v = w.Max
			w.down = true
		} else {
			w.v += step
		}
	}
	return w.v, nil
}

// LED records the state of a status LED.
type LED struct {
	mu      sync.Mutex
	on      bool
	toggles int
}

func (l *LED) High() { l.set(true) }
func (l *LED) Low()  { l.set(false) }

func (l *LED) set(on bool) {
	l.mu.Lock()
	if l.on != on {
		l.toggles++
	}
	l.on = on
	l.mu.Unlock()
}

// On reports the current LED state.
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Toggles returns the number of state changes seen.
func (l *LED) Toggles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toggles
}
