package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/punchroll/pkg/cache"
	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/musicbox"
)

// testNote is a delta-timed note-on for building MIDI fixtures.
type testNote struct {
	delta int
	key   byte
}

// writeMIDI creates a single-track MIDI file with the given notes.
func writeMIDI(t *testing.T, notes []testNote) string {
	t.Helper()

	var track bytes.Buffer
	for _, n := range notes {
		track.Write(varint(n.delta))
		track.Write([]byte{0x90, n.key, 0x64})
	}
	track.Write([]byte{0x00, 0xFF, 0x2F, 0x00})

	var buf bytes.Buffer
	buf.WriteString("MThd")
	buf.Write([]byte{0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x01, 0x01, 0xE0})
	buf.WriteString("MTrk")
	binary.Write(&buf, binary.BigEndian, uint32(track.Len()))
	buf.Write(track.Bytes())

	path := filepath.Join(t.TempDir(), "song.mid")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func varint(v int) []byte {
	if v < 0x80 {
		return []byte{byte(v)}
	}
	return []byte{byte(v>>7) | 0x80, byte(v & 0x7f)}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testOptions(t *testing.T, notes []testNote) Options {
	t.Helper()
	return Options{
		Input:  writeMIDI(t, notes),
		Box:    musicbox.MustPreset("15"),
		Logger: quietLogger(),
	}
}

func TestOptionsValidate(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("missing input: error = %v, want INVALID_INPUT", err)
	}

	opts = Options{Input: "/tmp/greensleeves.mid"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Name != "greensleeves" {
		t.Errorf("Name = %q, want greensleeves", opts.Name)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}

	opts = Options{Input: "song.mid", Formats: []string{"pdf"}}
	if err := opts.ValidateAndSetDefaults(); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("bad format: error = %v, want INVALID_INPUT", err)
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	opts := testOptions(t, []testNote{{0, 60}, {480, 64}})
	opts.Formats = []string{FormatSVG, FormatJSON}

	result, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	if result.Stats.TrackCount != 1 {
		t.Errorf("TrackCount = %d, want 1", result.Stats.TrackCount)
	}
	if result.Stats.SoundCount != 2 {
		t.Fatalf("SoundCount = %d, want 2", result.Stats.SoundCount)
	}
	// Pause normalization shifts the first sound to the start pause.
	if got := result.Melody.Sounds[0].Time; got != 200 {
		t.Errorf("first sound time = %d, want 200", got)
	}
	if got := result.Melody.Sounds[1].Time; got != 680 {
		t.Errorf("second sound time = %d, want 680", got)
	}

	// Both pitches sit on the box already.
	if result.Transposition.Shift != 0 || result.Transposition.Ratio != 1 {
		t.Errorf("Transposition = %+v, want {0 1}", result.Transposition)
	}

	if got := len(result.Artifacts[FormatSVG]); got != result.Layout.PagesCount {
		t.Errorf("svg documents = %d, want %d", got, result.Layout.PagesCount)
	}
	jsonDocs := result.Artifacts[FormatJSON]
	if len(jsonDocs) != 1 {
		t.Fatalf("json documents = %d, want 1", len(jsonDocs))
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(jsonDocs[0], &doc); err != nil {
		t.Errorf("json artifact does not parse: %v", err)
	}
}

func TestExecuteCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	ctx := context.Background()

	notes := []testNote{{0, 60}, {480, 62}, {480, 64}}

	first, err := runner.Execute(ctx, testOptions(t, notes))
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.MelodyHit || first.CacheInfo.TransposeHit || first.CacheInfo.LayoutHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}

	second, err := runner.Execute(ctx, testOptions(t, notes))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.MelodyHit || !second.CacheInfo.TransposeHit || !second.CacheInfo.LayoutHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if first.MelodyHash != second.MelodyHash {
		t.Error("melody hash differs between runs")
	}
	if first.Layout.StavesCount != second.Layout.StavesCount {
		t.Error("layout differs between runs")
	}

	refresh := testOptions(t, notes)
	refresh.Refresh = true
	third, err := runner.Execute(ctx, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.MelodyHit || third.CacheInfo.LayoutHit {
		t.Errorf("refresh run hit the cache: %+v", third.CacheInfo)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	ctx := context.Background()
	notes := []testNote{{0, 60}, {240, 67}, {240, 61}}

	a, err := runner.Execute(ctx, testOptions(t, notes))
	if err != nil {
		t.Fatal(err)
	}
	b, err := runner.Execute(ctx, testOptions(t, notes))
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Artifacts[FormatSVG]) != len(b.Artifacts[FormatSVG]) {
		t.Fatal("page counts differ")
	}
	for i := range a.Artifacts[FormatSVG] {
		if !bytes.Equal(a.Artifacts[FormatSVG][i], b.Artifacts[FormatSVG][i]) {
			t.Errorf("svg page %d differs between identical runs", i)
		}
	}
}

func TestExecuteMissingFile(t *testing.T) {
	opts := Options{
		Input:  filepath.Join(t.TempDir(), "missing.mid"),
		Box:    musicbox.MustPreset("15"),
		Logger: quietLogger(),
	}

	_, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExecuteInvalidBox(t *testing.T) {
	opts := testOptions(t, []testNote{{0, 60}})
	opts.Box = musicbox.Config{FirstNote: "H9", NotesCount: 15, Pitch: 2}

	_, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if errors.GetCode(err) != errors.ErrCodeInvalidNoteName {
		t.Errorf("error = %v, want INVALID_NOTE_NAME", err)
	}
}

func TestExecuteTrackSelection(t *testing.T) {
	opts := testOptions(t, []testNote{{0, 60}})
	opts.Tracks = []int{5}

	result, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.SoundCount != 0 {
		t.Errorf("SoundCount = %d, want 0 for an unmatched selection", result.Stats.SoundCount)
	}
	if result.Transposition.Shift != 0 || result.Transposition.Ratio != 1 {
		t.Errorf("empty melody transposition = %+v, want {0 1}", result.Transposition)
	}
	if result.Layout.StavesCount != 0 {
		t.Errorf("StavesCount = %d, want 0", result.Layout.StavesCount)
	}
}

func TestSummary(t *testing.T) {
	opts := testOptions(t, []testNote{{0, 60}, {480, 60}, {480, 64}})

	result, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	s := result.Summary(opts.Geometry.WithDefaults().Speed)
	if s.Sounds != 3 || s.DistinctNotes != 2 {
		t.Errorf("Summary counts = %+v", s)
	}
	if !s.Perfect || s.Shift != 0 {
		t.Errorf("Summary fit = %+v, want perfect at shift 0", s)
	}
	// Pitch 60 repeats 480 ticks apart; at 67 ticks/mm that is ~7.16mm.
	if s.MinDistanceMM < 7.1 || s.MinDistanceMM > 7.2 {
		t.Errorf("MinDistanceMM = %v, want ~7.16", s.MinDistanceMM)
	}
	// Last sound lands at tick 1160 (start pause 200 + two 480 gaps).
	if s.DurationTicks != 1160 {
		t.Errorf("DurationTicks = %d, want 1160", s.DurationTicks)
	}
	if s.DurationMM < 17.3 || s.DurationMM > 17.4 {
		t.Errorf("DurationMM = %v, want ~17.31", s.DurationMM)
	}
	if s.Pages != result.Layout.PagesCount || s.Staves != result.Layout.StavesCount {
		t.Errorf("Summary geometry = %+v", s)
	}
}
