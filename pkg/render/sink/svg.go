// Package sink serializes rendered pages. Output is deterministic: the same
// page always produces byte-identical output, which keeps results cacheable
// and diffable.
package sink

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/punchroll/pkg/render"
)

// SVGOption configures SVG serialization.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	background string
	title      string
}

// WithBackground fills the page with a solid color before drawing.
func WithBackground(color string) SVGOption {
	return func(r *svgRenderer) { r.background = color }
}

// WithTitle embeds a document title, shown as a tooltip by browsers.
func WithTitle(title string) SVGOption {
	return func(r *svgRenderer) { r.title = title }
}

// RenderSVG serializes one page. All coordinates are written in mm so the
// output prints and cuts at physical scale.
func RenderSVG(p render.Page, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%smm" height="%smm" viewBox="0 0 %s %s">`+"\n",
		num(p.Width), num(p.Height), num(p.Width), num(p.Height))

	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escape(r.title))
	}
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="%s" height="%s" fill="%s"/>`+"\n",
			num(p.Width), num(p.Height), r.background)
	}

	for _, prim := range p.Primitives {
		writePrimitive(&buf, prim)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writePrimitive(buf *bytes.Buffer, prim render.Primitive) {
	switch v := prim.(type) {
	case render.Line:
		fmt.Fprintf(buf, `  <line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`+"\n",
			num(v.X1), num(v.Y1), num(v.X2), num(v.Y2), v.Color, num(v.Width))
	case render.Circle:
		fmt.Fprintf(buf, `  <circle cx="%s" cy="%s" r="%s"`, num(v.CX), num(v.CY), num(v.R))
		if v.Fill != "" {
			fmt.Fprintf(buf, ` fill="%s"`, v.Fill)
		} else {
			buf.WriteString(` fill="none"`)
		}
		if v.Stroke != "" {
			fmt.Fprintf(buf, ` stroke="%s" stroke-width="%s"`, v.Stroke, num(v.StrokeWidth))
		}
		buf.WriteString("/>\n")
	case render.Text:
		fmt.Fprintf(buf, `  <text x="%s" y="%s" font-size="%s" fill="%s">%s</text>`+"\n",
			num(v.X), num(v.Y+v.Size), num(v.Size), v.Color, escape(v.Value))
	case render.Polyline:
		buf.WriteString(`  <polyline points="`)
		for i, pt := range v.Points {
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(buf, "%s,%s", num(pt.X), num(pt.Y))
		}
		fmt.Fprintf(buf, `" fill="none" stroke="%s" stroke-width="%s"/>`+"\n", v.Color, num(v.Width))
	}
}

// num formats a coordinate with stable precision and no trailing zeros.
func num(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func escape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
