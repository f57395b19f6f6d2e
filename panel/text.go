package panel

import "github.com/harveysanders/segdisplay/glyph"

var (
	digitGlyphs [10]glyph.Glyph
	dashGlyph   = glyph.MustEncode('-')
)

func init() {
	for i := range digitGlyphs {
		digitGlyphs[i] = glyph.MustEncode('0' + rune(i))
	}
}

// FormatReading renders v as a right-aligned, space padded decimal of width
// Digits. Values that do not fit render as dashes.
func FormatReading(v uint16) [Digits]byte {
	if v > 9999 {
		return [Digits]byte{'-', '-', '-', '-'}
	}
	out := [Digits]byte{' ', ' ', ' ', ' '}
	for i := Digits - 1; i >= 0; i-- {
		out[i] = '0' + byte(v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return out
}

// readingGlyph maps the output of FormatReading.
func readingGlyph(c byte) glyph.Glyph {
	switch {
	case c >= '0' && c <= '9':
		return digitGlyphs[c-'0']
	case c == '-':
		return dashGlyph
	}
	return glyph.Blank
}

// EncodeText encodes s left-aligned into a Buffer, padding with blanks.
func EncodeText(s string) (Buffer, error) {
	var buf Buffer
	n, err := glyph.EncodeInto(buf[:], s)
	if err != nil {
		return Buffer{}, err
	}
	for i := n; i < Digits; i++ {
		buf[i] = glyph.Blank
	}
	return buf, nil
}
