// Package render turns a computed layout into drawable pages of geometric
// primitives. Sinks (pkg/render/sink) serialize the primitives; keeping the
// two apart means page composition is testable without parsing any output
// format.
package render

import (
	"fmt"

	"github.com/matzehuels/punchroll/pkg/fonts"
	"github.com/matzehuels/punchroll/pkg/layout"
	"github.com/matzehuels/punchroll/pkg/musicbox"
)

// Primitive is one drawable element on a page. The set of implementations
// is closed: Line, Circle, Text and Polyline.
type Primitive interface {
	isPrimitive()
}

// Line is a straight stroke between two points, in mm.
type Line struct {
	X1, Y1, X2, Y2 float64
	Width          float64
	Color          string
}

// Circle is a punch mark. An empty Fill draws only the outline.
type Circle struct {
	CX, CY, R   float64
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Text is a filled label. Pages emits it when the cutter font is off, and as
// a fallback for labels the stroke font cannot render; all other cutter-font
// labels arrive as Polylines.
type Text struct {
	X, Y  float64
	Size  float64
	Value string
	Color string
}

// Polyline is an open multi-segment stroke, used for the start triangle and
// for cutter-safe text.
type Polyline struct {
	Points []fonts.Point
	Width  float64
	Color  string
}

func (Line) isPrimitive()     {}
func (Circle) isPrimitive()   {}
func (Text) isPrimitive()     {}
func (Polyline) isPrimitive() {}

// Page is one sheet of primitives, in mm.
type Page struct {
	Number     int
	Width      float64
	Height     float64
	Primitives []Primitive
}

// Drawing colors and stroke widths, after the original plots.
const (
	punchColor   = "black"
	guessColor   = "red"
	labelColor   = "red"
	captionColor = "blue"
	guideColor   = "black"

	guideStroke  = 0.1
	strokeText   = 0.15
	crossHalf    = 2.5
	labelInset   = 2.0
	captionDrop  = 2.0
	punchStrokeW = 0.2
)

// Options selects which page features to draw.
type Options struct {
	// Name is appended to each stave caption, typically the melody name.
	Name string
	// Lines draws a horizontal guide line per box note line.
	Lines bool
	// Notes labels each guide line with its note name.
	Notes bool
	// Captions writes a numbered caption under each stave.
	Captions bool
	// Borders draws strip edges and corner alignment crosses for cutting.
	Borders bool
	// CutterFont renders all text as single-stroke polylines instead of
	// filled glyphs.
	CutterFont bool
	// FontSize is the label height in mm.
	FontSize float64
	// PunchRadius is the punch mark radius in mm.
	PunchRadius float64
}

// WithDefaults fills unset drawing parameters.
func (o Options) WithDefaults() Options {
	if o.FontSize == 0 {
		o.FontSize = 2
	}
	if o.PunchRadius == 0 {
		o.PunchRadius = 1
	}
	return o
}

// Pages composes one page per layout page. Staves stack top to bottom; the
// very first stave carries the directional start triangle.
func Pages(l *layout.Layout, box *musicbox.Box, opts Options) []Page {
	opts = opts.WithDefaults()

	pages := make([]Page, 0, l.PagesCount)
	for pageNo := 0; pageNo < l.PagesCount; pageNo++ {
		page := Page{
			Number: pageNo,
			Width:  l.Config.PageWidth,
			Height: l.Config.PageHeight,
		}
		for local, stave := range l.PageStaves(pageNo) {
			drawStave(&page, l, box, opts, stave, local)
		}
		pages = append(pages, page)
	}
	return pages
}

// drawStave adds one stave's primitives to the page. local is the stave's
// slot on this page, counted from the top.
func drawStave(page *Page, l *layout.Layout, box *musicbox.Box, opts Options, stave layout.Stave, local int) {
	cfg := l.Config
	top := cfg.Margin + float64(local)*l.StaveThickness
	firstLine := top + box.Config().PaddingTop
	left := cfg.Margin
	right := left + stave.Length
	pitch := box.Config().Pitch

	if opts.Borders {
		drawBorders(page, top, left, right, l.StaveThickness)
	}

	if opts.Lines {
		for i := 0; i < box.NotesCount(); i++ {
			y := firstLine + float64(i)*pitch
			page.Primitives = append(page.Primitives, Line{
				X1: left, Y1: y, X2: right, Y2: y,
				Width: guideStroke, Color: guideColor,
			})
		}
	}

	if opts.Notes {
		for i := 0; i < box.NotesCount(); i++ {
			y := firstLine + float64(i)*pitch
			name := box.NoteNameAt(i)
			// Right-align on the guide line start so labels of different
			// length share one edge.
			x := left - labelInset - fonts.Width(name, opts.FontSize)
			drawText(page, opts, name, x, y-opts.FontSize/2, labelColor)
		}
	}

	if opts.Captions {
		caption := fmt.Sprintf("STAVE %d", stave.Index)
		if opts.Name != "" {
			caption += " - " + opts.Name
		}
		y := top + l.StaveThickness - box.Config().PaddingBottom + captionDrop
		drawText(page, opts, caption, left+labelInset, y, captionColor)
	}

	if stave.Index == 0 {
		drawTriangle(page, cfg.TriangleWidth, left, firstLine, box.Width())
	}

	for _, p := range stave.Punches {
		drawPunch(page, opts, p, left, firstLine, pitch)
	}
}

// drawBorders draws the strip cut edges and a cross at each corner so
// consecutive staves can be aligned when gluing the strip together.
func drawBorders(page *Page, top, left, right, thickness float64) {
	bottom := top + thickness
	for _, y := range []float64{top, bottom} {
		page.Primitives = append(page.Primitives, Line{
			X1: left, Y1: y, X2: right, Y2: y,
			Width: guideStroke, Color: guideColor,
		})
	}
	for _, y := range []float64{top, bottom} {
		for _, x := range []float64{left, right} {
			drawCross(page, x, y)
		}
	}
}

// drawCross draws a small alignment cross centered on (x, y).
func drawCross(page *Page, x, y float64) {
	page.Primitives = append(page.Primitives,
		Line{X1: x - crossHalf, Y1: y, X2: x + crossHalf, Y2: y, Width: guideStroke, Color: guideColor},
		Line{X1: x, Y1: y - crossHalf, X2: x, Y2: y + crossHalf, Width: guideStroke, Color: guideColor},
	)
}

// drawTriangle draws the start marker pointing in the playing direction.
func drawTriangle(page *Page, width, left, firstLine, boxWidth float64) {
	page.Primitives = append(page.Primitives, Polyline{
		Points: []fonts.Point{
			{X: left, Y: firstLine},
			{X: left + width, Y: firstLine + boxWidth/2},
			{X: left, Y: firstLine + boxWidth},
			{X: left, Y: firstLine},
		},
		Width: guideStroke,
		Color: guideColor,
	})
}

// drawPunch draws one punch mark. Exact punches are filled black, guessed
// ones filled red, and too-close punches are hollow so they stand out for a
// manual decision before cutting.
func drawPunch(page *Page, opts Options, p layout.Punch, left, firstLine, pitch float64) {
	c := Circle{
		CX: left + p.Offset,
		CY: firstLine + float64(p.Line)*pitch,
		R:  opts.PunchRadius,
	}
	switch {
	case p.TooClose:
		c.Stroke, c.StrokeWidth = guessColor, punchStrokeW
	case p.Exact:
		c.Fill = punchColor
	default:
		c.Fill = guessColor
	}
	page.Primitives = append(page.Primitives, c)
}

// drawText emits a label as filled text, or as stroke polylines when the
// cutter font is on. A label with runes outside the stroke glyph set stays
// filled text even then, so no label silently disappears.
func drawText(page *Page, opts Options, s string, x, y float64, color string) {
	if !opts.CutterFont || !fonts.Supported(s) {
		page.Primitives = append(page.Primitives, Text{
			X: x, Y: y, Size: opts.FontSize, Value: s, Color: color,
		})
		return
	}
	for _, line := range fonts.Strokes(s, x, y, opts.FontSize) {
		page.Primitives = append(page.Primitives, Polyline{
			Points: line, Width: strokeText, Color: color,
		})
	}
}
