// Package glyph maps printable ASCII characters to 14-segment display masks.
//
// A Glyph can only be built through Encode (or MustEncode for literals), so
// any Glyph that reaches the display driver is known to be renderable.
//
//	g, err := glyph.Encode('A')
//	if err != nil {
//	    // character has no segment pattern
//	}
//	dev.SetDigit(uint16(g.Mask()), 0)
package glyph

import (
	"errors"
	"strconv"
)

// Mask selects the lit segments of one display cell. Only the low 15 bits
// are used; see SegA..SegDP for the layout.
type Mask uint16

// Class is the character table a Glyph was taken from.
type Class uint8

const (
	Symbol Class = iota
	Capital
	Lowercase
	Digit
)

func (c Class) String() string {
	switch c {
	case Symbol:
		return "symbol"
	case Capital:
		return "capital"
	case Lowercase:
		return "lowercase"
	case Digit:
		return "digit"
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

// ErrUnsupported is returned (wrapped in an *UnsupportedError) for characters
// that have no segment pattern.
var ErrUnsupported = errors.New("glyph: unsupported character")

// UnsupportedError reports the character that could not be encoded.
type UnsupportedError struct {
	Rune rune
}

func (e *UnsupportedError) Error() string {
	return "glyph: unsupported character " + strconv.QuoteRune(e.Rune)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Glyph is the encoded form of one displayable character.
type Glyph struct {
	r     rune
	class Class
	mask  Mask
}

// Encode returns the Glyph for r.
func Encode(r rune) (Glyph, error) {
	switch {
	case r >= 'A' && r <= 'Z':
		return Glyph{r: r, class: Capital, mask: capitals[r-'A']}, nil
	case r >= 'a' && r <= 'z':
		return Glyph{r: r, class: Lowercase, mask: lowercase[r-'a']}, nil
	case r >= '0' && r <= '9':
		return Glyph{r: r, class: Digit, mask: digits[r-'0']}, nil
	}
	for _, s := range symbols {
		if s.r == r {
			return Glyph{r: r, class: Symbol, mask: s.mask}, nil
		}
	}
	return Glyph{}, &UnsupportedError{Rune: r}
}

// MustEncode is like Encode but panics if r is not supported. It is meant
// for character literals in package-level variables.
func MustEncode(r rune) Glyph {
	g, err := Encode(r)
	if err != nil {
		panic(err)
	}
	return g
}

// EncodeInto encodes s into dst and returns the number of glyphs written.
// Every character of s is checked before dst is modified, and s must fit.
func EncodeInto(dst []Glyph, s string) (int, error) {
	n := 0
	for _, r := range s {
		if _, err := Encode(r); err != nil {
			return 0, err
		}
		n++
	}
	if n > len(dst) {
		return 0, errors.New("glyph: " + strconv.Quote(s) + " needs " + strconv.Itoa(n) +
			" cells, have " + strconv.Itoa(len(dst)))
	}
	i := 0
	for _, r := range s {
		dst[i], _ = Encode(r)
		i++
	}
	return n, nil
}

// Blank is the space glyph; it lights no segment.
var Blank = MustEncode(' ')

// Mask returns the segment bits of g.
func (g Glyph) Mask() Mask { return g.mask }

// Class returns the table g was taken from.
func (g Glyph) Class() Class { return g.class }

// Rune returns the character g was encoded from.
func (g Glyph) Rune() rune { return g.r }

func (g Glyph) String() string { return string(g.r) }

// Charset returns every supported character: capitals, lowercase, digits,
// then symbols.
func Charset() []rune {
	out := make([]rune, 0, len(capitals)+len(lowercase)+len(digits)+len(symbols))
	for i := range capitals {
		out = append(out, 'A'+rune(i))
	}
	for i := range lowercase {
		out = append(out, 'a'+rune(i))
	}
	for i := range digits {
		out = append(out, '0'+rune(i))
	}
	for _, s := range symbols {
		out = append(out, s.r)
	}
	return out
}
