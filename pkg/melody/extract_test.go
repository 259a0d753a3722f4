package melody

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// noteOn is a shorthand for a note start event in tests.
func noteOn(delta int64, pitch int) Event {
	return Event{Delta: delta, Type: EventNoteOn, Pitch: pitch, Velocity: 100}
}

func TestExtractBasic(t *testing.T) {
	tracks := []Track{{
		Name:   "lead",
		Events: []Event{noteOn(0, 60), noteOn(480, 61)},
	}}

	m := Extract(tracks, Options{})

	want := []Sound{
		{Pitch: 60, Time: 200, Track: 0},
		{Pitch: 61, Time: 680, Track: 0},
	}
	if m.SoundsCount() != 2 {
		t.Fatalf("SoundsCount() = %d, want 2", m.SoundsCount())
	}
	for i, s := range m.Sounds {
		if s != want[i] {
			t.Errorf("Sounds[%d] = %+v, want %+v", i, s, want[i])
		}
	}
	if m.MaxTime() != 680 {
		t.Errorf("MaxTime() = %d, want 680", m.MaxTime())
	}
}

func TestExtractIgnoresNonStarts(t *testing.T) {
	tracks := []Track{{
		Events: []Event{
			{Delta: 0, Type: EventOther},
			noteOn(100, 60),
			{Delta: 50, Type: EventNoteOff, Pitch: 60},
			{Delta: 50, Type: EventNoteOn, Pitch: 62, Velocity: 0}, // zero velocity = note end
			noteOn(100, 64),
		},
	}}

	m := Extract(tracks, Options{})

	if m.SoundsCount() != 2 {
		t.Fatalf("SoundsCount() = %d, want 2", m.SoundsCount())
	}
	// Deltas of ignored events still advance time: the second sound sits
	// 200 ticks after the first.
	if gap := m.Sounds[1].Time - m.Sounds[0].Time; gap != 200 {
		t.Errorf("gap = %d, want 200", gap)
	}
}

func TestExtractClampsPause(t *testing.T) {
	tracks := []Track{{
		Events: []Event{noteOn(0, 60), noteOn(5000, 62), noteOn(100, 64)},
	}}

	m := Extract(tracks, Options{MaxPause: 3000, CutPause: 20000})

	if gap := m.Sounds[1].Time - m.Sounds[0].Time; gap != 3000 {
		t.Errorf("clamped gap = %d, want 3000", gap)
	}
	if gap := m.Sounds[2].Time - m.Sounds[1].Time; gap != 100 {
		t.Errorf("short gap = %d, want 100", gap)
	}
}

func TestExtractCutsTrack(t *testing.T) {
	tracks := []Track{{
		Events: []Event{noteOn(0, 60), noteOn(100, 62), noteOn(25000, 64), noteOn(100, 65)},
	}}

	m := Extract(tracks, Options{MaxPause: 3000, CutPause: 20000})

	if m.SoundsCount() != 2 {
		t.Fatalf("SoundsCount() = %d, want 2 (track cut after long gap)", m.SoundsCount())
	}
	for _, s := range m.Sounds {
		if s.Pitch == 64 || s.Pitch == 65 {
			t.Errorf("sound %+v should have been cut", s)
		}
	}
}

func TestExtractLeadingGapClampedNotCut(t *testing.T) {
	// A leading silence longer than CutPause must not drop the track;
	// it is clamped like any other pause.
	tracks := []Track{{
		Events: []Event{noteOn(50000, 60), noteOn(100, 62)},
	}}

	m := Extract(tracks, Options{MaxPause: 3000, CutPause: 20000, StartPause: 200})

	if m.SoundsCount() != 2 {
		t.Fatalf("SoundsCount() = %d, want 2", m.SoundsCount())
	}
	if m.Sounds[0].Time != 200 {
		t.Errorf("first sound time = %d, want 200", m.Sounds[0].Time)
	}
}

func TestExtractTrackSelection(t *testing.T) {
	tracks := []Track{
		{Events: []Event{noteOn(0, 60)}},
		{Events: []Event{noteOn(0, 64)}},
		{Events: []Event{noteOn(0, 67)}},
	}

	m := Extract(tracks, Options{Tracks: map[int]bool{1: true}})

	if m.SoundsCount() != 1 {
		t.Fatalf("SoundsCount() = %d, want 1", m.SoundsCount())
	}
	if m.Sounds[0].Pitch != 64 || m.Sounds[0].Track != 1 {
		t.Errorf("Sounds[0] = %+v", m.Sounds[0])
	}
}

func TestExtractEmptySelection(t *testing.T) {
	tracks := []Track{{Events: []Event{noteOn(0, 60)}}}

	m := Extract(tracks, Options{Tracks: map[int]bool{100: true}})

	if m.SoundsCount() != 0 {
		t.Errorf("SoundsCount() = %d, want 0", m.SoundsCount())
	}
	if m.MaxTime() != 0 {
		t.Errorf("MaxTime() = %d, want 0", m.MaxTime())
	}
	if !math.IsInf(m.MinDistance(), 1) {
		t.Errorf("MinDistance() = %v, want +Inf", m.MinDistance())
	}
}

func TestExtractStableSortAcrossTracks(t *testing.T) {
	// Both tracks start at the same instant; track order must be kept for
	// equal timestamps.
	tracks := []Track{
		{Events: []Event{noteOn(0, 60)}},
		{Events: []Event{noteOn(0, 64)}},
	}

	m := Extract(tracks, Options{})

	if m.Sounds[0].Track != 0 || m.Sounds[1].Track != 1 {
		t.Errorf("tie order = [%d, %d], want [0, 1]", m.Sounds[0].Track, m.Sounds[1].Track)
	}
}

func TestNotesUse(t *testing.T) {
	tracks := []Track{{
		Events: []Event{noteOn(0, 60), noteOn(100, 62), noteOn(100, 60), noteOn(100, 60)},
	}}

	m := Extract(tracks, Options{})

	use := m.NotesUse()
	if use[60] != 3 || use[62] != 1 {
		t.Errorf("NotesUse() = %v", use)
	}
}

func TestMinDistance(t *testing.T) {
	tests := []struct {
		name   string
		sounds []Sound
		want   float64
	}{
		{
			name:   "simple repeat",
			sounds: []Sound{{Pitch: 60, Time: 0}, {Pitch: 60, Time: 300}},
			want:   300,
		},
		{
			name: "per pitch tracking",
			sounds: []Sound{
				{Pitch: 60, Time: 0}, {Pitch: 62, Time: 100},
				{Pitch: 60, Time: 500}, {Pitch: 62, Time: 350},
			},
			want: 250,
		},
		{
			name:   "zero gaps ignored",
			sounds: []Sound{{Pitch: 60, Time: 100}, {Pitch: 60, Time: 100}, {Pitch: 60, Time: 400}},
			want:   300,
		},
		{
			name:   "no repeats",
			sounds: []Sound{{Pitch: 60, Time: 0}, {Pitch: 62, Time: 100}},
			want:   math.Inf(1),
		},
		{
			name:   "empty",
			sounds: nil,
			want:   math.Inf(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FromSounds(tt.sounds)
			if got := m.MinDistance(); got != tt.want {
				t.Errorf("MinDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

// genTrack generates a random single track of note-on events.
func genTrack() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.Int64Range(0, 40000),
		gen.IntRange(0, 127),
	).Map(func(vals []interface{}) Event {
		return noteOn(vals[0].(int64), vals[1].(int))
	}))
}

func TestExtractProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("kept gaps never exceed MaxPause", prop.ForAll(
		func(events []Event) bool {
			m := Extract([]Track{{Events: events}}, Options{MaxPause: 3000, CutPause: 20000})
			for i := 1; i < len(m.Sounds); i++ {
				if m.Sounds[i].Time-m.Sounds[i-1].Time > 3000 {
					return false
				}
			}
			return true
		},
		genTrack(),
	))

	properties.Property("non-empty melodies start at StartPause", prop.ForAll(
		func(events []Event) bool {
			m := Extract([]Track{{Events: events}}, Options{StartPause: 200})
			if m.SoundsCount() == 0 {
				return true
			}
			min := m.Sounds[0].Time
			for _, s := range m.Sounds {
				if s.Time < min {
					min = s.Time
				}
			}
			return min == 200
		},
		genTrack(),
	))

	properties.Property("extraction is deterministic", prop.ForAll(
		func(events []Event) bool {
			a := Extract([]Track{{Events: events}}, Options{})
			b := Extract([]Track{{Events: events}}, Options{})
			if a.SoundsCount() != b.SoundsCount() {
				return false
			}
			for i := range a.Sounds {
				if a.Sounds[i] != b.Sounds[i] {
					return false
				}
			}
			return true
		},
		genTrack(),
	))

	properties.TestingRun(t)
}
