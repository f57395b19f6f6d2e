package panel

import (
	"errors"

	"github.com/harveysanders/segdisplay/glyph"
)

// Rotation cycles through a fixed list of texts, one per selection.
type Rotation struct {
	texts []Buffer
	next  int
}

// NewRotation validates every text up front so that nothing can fail once
// the panel is running.
func NewRotation(texts ...string) (*Rotation, error) {
	if len(texts) == 0 {
		return nil, errors.New("panel: rotation needs at least one text")
	}
	r := &Rotation{texts: make([]Buffer, len(texts))}
	for i, s := range texts {
		buf, err := EncodeText(s)
		if err != nil {
			return nil, err
		}
		r.texts[i] = buf
	}
	return r, nil
}

// Next implements Source.
func (r *Rotation) Next() (Buffer, bool) {
	buf := r.texts[r.next]
	r.next = (r.next + 1) % len(r.texts)
	return buf, true
}

// Len returns the number of texts in the rotation.
func (r *Rotation) Len() int { return len(r.texts) }

// SelfTest returns a Rotation that walks the whole character set, Digits
// characters at a time.
func SelfTest() *Rotation {
	cs := glyph.Charset()
	r := &Rotation{}
	for len(cs) > 0 {
		var buf Buffer
		for i := range buf {
			buf[i] = glyph.Blank
			if i < len(cs) {
				buf[i] = glyph.MustEncode(cs[i])
			}
		}
		r.texts = append(r.texts, buf)
		cs = cs[min(Digits, len(cs)):]
	}
	return r
}
