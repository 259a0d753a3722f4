package sink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/punchroll/pkg/fonts"
	"github.com/matzehuels/punchroll/pkg/render"
)

func testPage() render.Page {
	return render.Page{
		Number: 0,
		Width:  297,
		Height: 210,
		Primitives: []render.Primitive{
			render.Line{X1: 5, Y1: 5, X2: 292, Y2: 5, Width: 0.1, Color: "black"},
			render.Circle{CX: 15, CY: 11.25, R: 1, Fill: "black"},
			render.Circle{CX: 20, CY: 11.25, R: 1, Stroke: "red", StrokeWidth: 0.2},
			render.Text{X: 3, Y: 10, Size: 2, Value: "C4 <sharp>", Color: "red"},
			render.Polyline{
				Points: []fonts.Point{{X: 5, Y: 11.25}, {X: 15, Y: 25.25}, {X: 5, Y: 39.25}},
				Width:  0.1, Color: "black",
			},
		},
	}
}

func TestRenderSVG(t *testing.T) {
	out := string(RenderSVG(testPage()))

	wants := []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="297mm" height="210mm" viewBox="0 0 297 210">`,
		`<line x1="5" y1="5" x2="292" y2="5" stroke="black" stroke-width="0.1"/>`,
		`<circle cx="15" cy="11.25" r="1" fill="black"/>`,
		`<circle cx="20" cy="11.25" r="1" fill="none" stroke="red" stroke-width="0.2"/>`,
		`<text x="3" y="12" font-size="2" fill="red">C4 &lt;sharp&gt;</text>`,
		`<polyline points="5,11.25 15,25.25 5,39.25" fill="none" stroke="black" stroke-width="0.1"/>`,
		"</svg>\n",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderSVGOptions(t *testing.T) {
	out := string(RenderSVG(testPage(), WithTitle("page 0"), WithBackground("white")))

	if !strings.Contains(out, "<title>page 0</title>") {
		t.Error("missing title")
	}
	if !strings.Contains(out, `<rect width="297" height="210" fill="white"/>`) {
		t.Error("missing background rect")
	}
}

func TestRenderSVGDeterministic(t *testing.T) {
	a := RenderSVG(testPage())
	b := RenderSVG(testPage())
	if !bytes.Equal(a, b) {
		t.Error("output differs between identical renders")
	}
}

func TestNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{5, "5"},
		{11.25, "11.25"},
		{0.1, "0.1"},
		{33.014925, "33.015"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := num(tt.in); got != tt.want {
			t.Errorf("num(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
