// Package fonts provides a single-stroke vector font for strip captions.
//
// Regular filled text confuses cutting plotters, which trace outlines. Every
// glyph here is a set of open polylines, so a cutter scores each caption as
// thin lines instead of cutting letter-shaped holes into the strip.
package fonts

import "strings"

// Point is one vertex of a glyph stroke, in mm.
type Point struct {
	X float64
	Y float64
}

// Glyphs are defined on a 3x5 unit grid (x 0..3, y 0..5, y growing down)
// with a one-unit gap between characters, so the advance is 4 units.
const (
	glyphHeight = 5.0
	advance     = 4.0
)

type pt [2]float64

var glyphs = map[rune][][]pt{
	' ': {},
	'-': {{{0.3, 2.5}, {1.7, 2.5}}},
	'.': {{{1, 4.6}, {1, 5}}},
	'#': {
		{{0.5, 0.5}, {0.5, 4.5}},
		{{1.5, 0.5}, {1.5, 4.5}},
		{{0, 1.7}, {2, 1.7}},
		{{0, 3.3}, {2, 3.3}},
	},

	'0': {{{0, 0}, {2, 0}, {2, 5}, {0, 5}, {0, 0}}},
	'1': {{{0, 1}, {1, 0}, {1, 5}}},
	'2': {{{0, 0}, {2, 0}, {2, 2.5}, {0, 2.5}, {0, 5}, {2, 5}}},
	'3': {{{0, 0}, {2, 0}, {2, 5}, {0, 5}}, {{1, 2.5}, {2, 2.5}}},
	'4': {{{0, 0}, {0, 2.5}, {2, 2.5}}, {{2, 0}, {2, 5}}},
	'5': {{{2, 0}, {0, 0}, {0, 2.5}, {2, 2.5}, {2, 5}, {0, 5}}},
	'6': {{{2, 0}, {0, 0}, {0, 5}, {2, 5}, {2, 2.5}, {0, 2.5}}},
	'7': {{{0, 0}, {2, 0}, {0.5, 5}}},
	'8': {{{0, 0}, {2, 0}, {2, 5}, {0, 5}, {0, 0}}, {{0, 2.5}, {2, 2.5}}},
	'9': {{{2, 2.5}, {0, 2.5}, {0, 0}, {2, 0}, {2, 5}}},

	'A': {{{0, 5}, {0, 1}, {1, 0}, {2, 1}, {2, 5}}, {{0, 2.5}, {2, 2.5}}},
	'B': {{{0, 0}, {0, 5}}, {{0, 0}, {2, 0}, {2, 2.5}, {0, 2.5}}, {{2, 2.5}, {2, 5}, {0, 5}}},
	'C': {{{2, 0}, {0, 0}, {0, 5}, {2, 5}}},
	'D': {{{0, 0}, {0, 5}, {1, 5}, {2, 4}, {2, 1}, {1, 0}, {0, 0}}},
	'E': {{{2, 0}, {0, 0}, {0, 5}, {2, 5}}, {{0, 2.5}, {1.5, 2.5}}},
	'F': {{{2, 0}, {0, 0}, {0, 5}}, {{0, 2.5}, {1.5, 2.5}}},
	'G': {{{2, 0}, {0, 0}, {0, 5}, {2, 5}, {2, 2.5}, {1, 2.5}}},
	'H': {{{0, 0}, {0, 5}}, {{2, 0}, {2, 5}}, {{0, 2.5}, {2, 2.5}}},
	'I': {{{0, 0}, {2, 0}}, {{1, 0}, {1, 5}}, {{0, 5}, {2, 5}}},
	'J': {{{2, 0}, {2, 5}, {0, 5}, {0, 4}}},
	'K': {{{0, 0}, {0, 5}}, {{2, 0}, {0, 2.5}, {2, 5}}},
	'L': {{{0, 0}, {0, 5}, {2, 5}}},
	'M': {{{0, 5}, {0, 0}, {1, 2.5}, {2, 0}, {2, 5}}},
	'N': {{{0, 5}, {0, 0}, {2, 5}, {2, 0}}},
	'O': {{{0, 0}, {2, 0}, {2, 5}, {0, 5}, {0, 0}}},
	'P': {{{0, 5}, {0, 0}, {2, 0}, {2, 2.5}, {0, 2.5}}},
	'Q': {{{0, 0}, {2, 0}, {2, 5}, {0, 5}, {0, 0}}, {{1.2, 3.8}, {2.4, 5.4}}},
	'R': {{{0, 5}, {0, 0}, {2, 0}, {2, 2.5}, {0, 2.5}}, {{1, 2.5}, {2, 5}}},
	'S': {{{2, 0}, {0, 0}, {0, 2.5}, {2, 2.5}, {2, 5}, {0, 5}}},
	'T': {{{0, 0}, {2, 0}}, {{1, 0}, {1, 5}}},
	'U': {{{0, 0}, {0, 5}, {2, 5}, {2, 0}}},
	'V': {{{0, 0}, {1, 5}, {2, 0}}},
	'W': {{{0, 0}, {0.5, 5}, {1, 2.5}, {1.5, 5}, {2, 0}}},
	'X': {{{0, 0}, {2, 5}}, {{2, 0}, {0, 5}}},
	'Y': {{{0, 0}, {1, 2.5}, {2, 0}}, {{1, 2.5}, {1, 5}}},
	'Z': {{{0, 0}, {2, 0}, {0, 5}, {2, 5}}},
}

// Strokes renders s as polylines. The text's top-left corner sits at (x, y)
// and size is the glyph height in mm. Lowercase letters are uppercased;
// runes with no glyph advance the pen without drawing.
func Strokes(s string, x, y, size float64) [][]Point {
	scale := size / glyphHeight

	var lines [][]Point
	pen := x
	for _, r := range strings.ToUpper(s) {
		for _, stroke := range glyphs[r] {
			line := make([]Point, len(stroke))
			for i, p := range stroke {
				line[i] = Point{X: pen + p[0]*scale, Y: y + p[1]*scale}
			}
			lines = append(lines, line)
		}
		pen += advance * scale
	}
	return lines
}

// Width returns the horizontal space s occupies at the given size.
func Width(s string, size float64) float64 {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	// The trailing inter-character gap is not part of the text.
	return (float64(n)*advance - 1) * size / glyphHeight
}

// Supported reports whether every rune of s has a glyph.
func Supported(s string) bool {
	for _, r := range strings.ToUpper(s) {
		if _, ok := glyphs[r]; !ok {
			return false
		}
	}
	return true
}
