package layout

import (
	"math"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/transpose"
)

func box15(t *testing.T) *musicbox.Box {
	t.Helper()
	cfg, err := musicbox.Preset("15")
	if err != nil {
		t.Fatal(err)
	}
	b, err := musicbox.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustBuild(t *testing.T, sounds []melody.Sound, box *musicbox.Box, cfg Config) *Layout {
	t.Helper()
	l, err := Build(melody.FromSounds(sounds), transpose.Transposition{Shift: 0, Ratio: 1}, box, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBuildGeometry(t *testing.T) {
	// 35 naturals at 2mm pitch with 6.25mm paddings on a default landscape
	// A4: stave thickness 34*2 + 12.5 = 80.5mm, two staves per page, and a
	// 287mm stave length.
	box, err := musicbox.New(musicbox.Config{
		FirstNote: "C4", NotesCount: 35, Pitch: 2,
		MinDistance: 7, PaddingTop: 6.25, PaddingBottom: 6.25,
	})
	if err != nil {
		t.Fatal(err)
	}

	sounds := []melody.Sound{{Pitch: 60, Time: 0}, {Pitch: 60, Time: 40000}}
	l := mustBuild(t, sounds, box, Config{})

	if !approx(l.StaveThickness, 80.5) {
		t.Errorf("StaveThickness = %v, want 80.5", l.StaveThickness)
	}
	if l.StavesPerPage != 2 {
		t.Errorf("StavesPerPage = %d, want 2", l.StavesPerPage)
	}
	if !approx(l.StaveLength, 287) {
		t.Errorf("StaveLength = %v, want 287", l.StaveLength)
	}

	wantTotal := 40000.0/67.0 + 10.0
	if !approx(l.TotalLength, wantTotal) {
		t.Errorf("TotalLength = %v, want %v", l.TotalLength, wantTotal)
	}
	if l.StavesCount != 3 {
		t.Fatalf("StavesCount = %d, want 3", l.StavesCount)
	}
	if l.PagesCount != 2 {
		t.Errorf("PagesCount = %d, want 2", l.PagesCount)
	}
	if last := l.Staves[2].Length; !approx(last, wantTotal-2*287) {
		t.Errorf("last stave length = %v, want %v", last, wantTotal-2*287)
	}
}

func TestBuildEmptyMelody(t *testing.T) {
	l := mustBuild(t, nil, box15(t), Config{})

	if l.StavesCount != 0 || l.PagesCount != 0 || len(l.Staves) != 0 {
		t.Errorf("empty melody: staves=%d pages=%d len=%d, want all zero",
			l.StavesCount, l.PagesCount, len(l.Staves))
	}
	if l.TotalLength != 0 {
		t.Errorf("TotalLength = %v, want 0", l.TotalLength)
	}
}

func TestBuildInvalidGeometry(t *testing.T) {
	box := box15(t)
	sounds := []melody.Sound{{Pitch: 60, Time: 0}}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"page too short for one stave", Config{PageHeight: 50}},
		{"margins consume the page width", Config{PageWidth: 100, Margin: 50}},
		{"triangle wider than the stave", Config{TriangleWidth: 500}},
		{"negative speed", Config{Speed: -1}},
		{"negative margin", Config{Margin: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(melody.FromSounds(sounds), transpose.Transposition{Ratio: 1}, box, tt.cfg)
			if errors.GetCode(err) != errors.ErrCodeInvalidGeometry {
				t.Errorf("Build() error = %v, want INVALID_GEOMETRY", err)
			}
		})
	}
}

func TestBuildPlacement(t *testing.T) {
	// Speed 100 and a 110mm page with 5mm margins give a 100mm stave, so
	// strip positions are easy to read: 10mm triangle plus time/100.
	cfg := Config{PageWidth: 110, Margin: 5, Speed: 100, TriangleWidth: 10}
	sounds := []melody.Sound{
		{Pitch: 60, Time: 0},
		{Pitch: 61, Time: 100},
		{Pitch: 60, Time: 9000},
		{Pitch: 72, Time: 9500},
	}

	l := mustBuild(t, sounds, box15(t), cfg)

	if l.StavesCount != 2 {
		t.Fatalf("StavesCount = %d, want 2", l.StavesCount)
	}
	// A punch landing exactly on the stave boundary stays on that stave.
	if got := len(l.Staves[0].Punches); got != 3 {
		t.Fatalf("stave 0 punches = %d, want 3", got)
	}
	if got := len(l.Staves[1].Punches); got != 1 {
		t.Fatalf("stave 1 punches = %d, want 1", got)
	}

	p := l.Staves[0].Punches
	if !approx(p[0].Offset, 10) || p[0].Line != 0 || !p[0].Exact {
		t.Errorf("punch 0 = %+v, want offset 10 line 0 exact", p[0])
	}
	// Pitch 61 is off the diatonic comb; it falls to the neighbor below.
	if !approx(p[1].Offset, 11) || p[1].Line != 0 || p[1].Exact {
		t.Errorf("punch 1 = %+v, want offset 11 line 0 guessed", p[1])
	}
	if !approx(p[2].Offset, 100) || p[2].Line != 0 {
		t.Errorf("punch 2 = %+v, want offset 100 line 0", p[2])
	}

	q := l.Staves[1].Punches[0]
	if !approx(q.Offset, 5) || q.Line != 7 || !q.Exact {
		t.Errorf("stave 1 punch = %+v, want offset 5 line 7 exact", q)
	}

	if !approx(l.Staves[1].Length, 5) {
		t.Errorf("final stave length = %v, want 5", l.Staves[1].Length)
	}
}

func TestBuildCollisionFlags(t *testing.T) {
	// MinDistance for the 15-note preset is 7mm; at speed 100 that is 700
	// ticks. The second and third punch both fall inside the window of the
	// first accepted punch, which stays the reference until a punch clears it.
	cfg := Config{PageWidth: 110, Margin: 5, Speed: 100, TriangleWidth: 10}
	sounds := []melody.Sound{
		{Pitch: 60, Time: 0},
		{Pitch: 60, Time: 300},
		{Pitch: 60, Time: 600},
		{Pitch: 60, Time: 800},
	}

	l := mustBuild(t, sounds, box15(t), cfg)

	want := []bool{false, true, true, false}
	p := l.Staves[0].Punches
	if len(p) != len(want) {
		t.Fatalf("punches = %d, want %d", len(p), len(want))
	}
	for i, tooClose := range want {
		if p[i].TooClose != tooClose {
			t.Errorf("punch %d TooClose = %v, want %v", i, p[i].TooClose, tooClose)
		}
	}
}

func TestBuildDistinctLinesNeverCollide(t *testing.T) {
	cfg := Config{PageWidth: 110, Margin: 5, Speed: 100, TriangleWidth: 10}
	sounds := []melody.Sound{
		{Pitch: 60, Time: 0},
		{Pitch: 62, Time: 100},
	}

	l := mustBuild(t, sounds, box15(t), cfg)

	for i, p := range l.Staves[0].Punches {
		if p.TooClose {
			t.Errorf("punch %d on line %d flagged too close", i, p.Line)
		}
	}
}

func TestPageStaves(t *testing.T) {
	box, err := musicbox.New(musicbox.Config{
		FirstNote: "C4", NotesCount: 35, Pitch: 2,
		MinDistance: 7, PaddingTop: 6.25, PaddingBottom: 6.25,
	})
	if err != nil {
		t.Fatal(err)
	}

	sounds := []melody.Sound{{Pitch: 60, Time: 0}, {Pitch: 60, Time: 40000}}
	l := mustBuild(t, sounds, box, Config{}) // 3 staves, 2 per page

	if got := len(l.PageStaves(0)); got != 2 {
		t.Errorf("page 0 staves = %d, want 2", got)
	}
	if got := l.PageStaves(1); len(got) != 1 || got[0].Index != 2 {
		t.Errorf("page 1 staves = %+v, want the single last stave", got)
	}
	if got := l.PageStaves(2); got != nil {
		t.Errorf("page 2 staves = %+v, want nil", got)
	}
}

func TestBuildCoverageProperty(t *testing.T) {
	box := box15(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every sound becomes exactly one in-bounds punch", prop.ForAll(
		func(times []int64, pitch int) bool {
			sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
			sounds := make([]melody.Sound, len(times))
			for i, tm := range times {
				sounds[i] = melody.Sound{Pitch: pitch, Time: tm}
			}

			l, err := Build(melody.FromSounds(sounds), transpose.Transposition{Ratio: 1}, box, Config{})
			if err != nil {
				return false
			}
			if l.PunchCount() != len(sounds) {
				return false
			}
			for _, s := range l.Staves {
				for _, p := range s.Punches {
					if p.Offset < 0 || p.Offset > l.StaveLength+1e-9 {
						return false
					}
					if p.Line < 0 || p.Line >= box.NotesCount() {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 500000)),
		gen.IntRange(21, 108),
	))

	properties.TestingRun(t)
}
