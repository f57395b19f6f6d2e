package sim

import (
	"io"

	"github.com/harveysanders/segdisplay/glyph"
)

// Rows is the height of a rendered digit in lines.
const Rows = 5

// CellWidth is the width of a rendered digit in columns, decimal point
// included.
const CellWidth = 6

// Render draws each mask as a CellWidth x Rows block of ASCII art.
func Render(masks []uint16) [Rows]string {
	var lines [Rows][]byte
	for i := range lines {
		lines[i] = make([]byte, 0, len(masks)*CellWidth)
	}
	for _, m := range masks {
		cell := renderCell(glyph.Mask(m))
		for i := range lines {
			lines[i] = append(lines[i], cell[i][:]...)
		}
	}
	var out [Rows]string
	for i := range lines {
		out[i] = string(lines[i])
	}
	return out
}

// WriteTo writes the rendered masks to w, one line per row.
func WriteTo(w io.Writer, masks []uint16) error {
	for _, line := range Render(masks) {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func renderCell(m glyph.Mask) [Rows][CellWidth]byte {
	on := func(seg glyph.Mask, c byte) byte {
		if m&seg != 0 {
			return c
		}
		return ' '
	}
	mid := byte(' ')
	if m&glyph.SegG1 != 0 && m&glyph.SegG2 != 0 {
		mid = '-'
	}
	return [Rows][CellWidth]byte{
		{' ', on(glyph.SegA, '-'), on(glyph.SegA, '-'), on(glyph.SegA, '-'), ' ', ' '},
		{on(glyph.SegF, '|'), on(glyph.SegH, '\\'), on(glyph.SegJ, '|'), on(glyph.SegK, '/'), on(glyph.SegB, '|'), ' '},
		{' ', on(glyph.SegG1, '-'), mid, on(glyph.SegG2, '-'), ' ', ' '},
		{on(glyph.SegE, '|'), on(glyph.SegL, '/'), on(glyph.SegM, '|'), on(glyph.SegN, '\\'), on(glyph.SegC, '|'), ' '},
		{' ', on(glyph.SegD, '-'), on(glyph.SegD, '-'), on(glyph.SegD, '-'), ' ', on(glyph.SegDP, '.')},
	}
}
