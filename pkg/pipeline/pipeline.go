// Package pipeline runs the complete parse → extract → transpose → layout
// → render flow for a punch strip. Centralizing it here keeps the CLI thin
// and gives every entry point the same caching and instrumentation.
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input: "song.mid",
//	    Box:   musicbox.MustPreset("15"),
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pages := result.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/layout"
	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/render"
	"github.com/matzehuels/punchroll/pkg/transpose"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatJSON: true,
}

// Options contains all configuration for the punch layout pipeline.
// The struct is JSON-serializable so runs can be recorded and replayed.
type Options struct {
	// Input is the MIDI file path.
	Input string `json:"input"`
	// Name labels stave captions and output files. Defaults to the input
	// file name without extension.
	Name string `json:"name,omitempty"`
	// Tracks selects track indices to extract; empty means all tracks.
	Tracks []int `json:"tracks,omitempty"`

	// Extraction options, in ticks. Zero values use the melody defaults.
	MaxPause   int64 `json:"max_pause,omitempty"`
	CutPause   int64 `json:"cut_pause,omitempty"`
	StartPause int64 `json:"start_pause,omitempty"`

	// Box is the target instrument.
	Box musicbox.Config `json:"box"`

	// Transpose controls the shift search.
	Transpose transpose.Options `json:"transpose,omitempty"`

	// Geometry is the page setup for pagination.
	Geometry layout.Config `json:"geometry,omitempty"`

	// Formats lists the outputs to render.
	Formats []string `json:"formats,omitempty"`
	// Render selects drawing features for SVG output.
	Render render.Options `json:"-"`

	// Refresh bypasses cached stage results.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent: repeated calls are no-ops.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input file is required")
	}
	if o.Name == "" {
		base := filepath.Base(o.Input)
		o.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	for _, f := range o.Formats {
		if !ValidFormats[f] {
			return errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be svg or json)", f)
		}
	}
	o.Geometry = o.Geometry.WithDefaults()
	o.Render = o.Render.WithDefaults()
	o.Render.Name = o.Name
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// extractOptions builds the melody extraction options.
func (o *Options) extractOptions() melody.Options {
	opts := melody.Options{
		MaxPause:   o.MaxPause,
		CutPause:   o.CutPause,
		StartPause: o.StartPause,
	}
	if len(o.Tracks) > 0 {
		opts.Tracks = make(map[int]bool, len(o.Tracks))
		for _, i := range o.Tracks {
			opts.Tracks[i] = true
		}
	}
	return opts
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Tracks are the parsed input tracks, before selection.
	Tracks []melody.Track

	// Melody is the extracted, time-ordered sound sequence.
	Melody *melody.Melody

	// MelodyHash is the content hash of the extracted melody.
	MelodyHash string

	// Transposition is the chosen shift.
	Transposition transpose.Transposition

	// Layout is the computed pagination.
	Layout *layout.Layout

	// Artifacts maps each format to its rendered documents. SVG produces
	// one document per page; JSON produces a single document.
	Artifacts map[string][][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TrackCount    int
	SoundCount    int
	ParseTime     time.Duration
	ExtractTime   time.Duration
	TransposeTime time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	MelodyHit    bool
	TransposeHit bool
	LayoutHit    bool
}

// Summary condenses a result for display after a run. MinDistanceMM is the
// tightest same-line punch spacing in mm, or 0 when no note repeats.
// Duration is the melody span from the strip start to the last sound, in
// raw ticks and in mm at the given speed; TotalLengthMM adds the start
// triangle on top of it.
type Summary struct {
	Sounds        int     `json:"sounds"`
	DistinctNotes int     `json:"distinct_notes"`
	DurationTicks int64   `json:"duration_ticks"`
	DurationMM    float64 `json:"duration_mm"`
	MinDistanceMM float64 `json:"min_distance_mm"`
	Shift         int     `json:"shift"`
	FitRatio      float64 `json:"fit_ratio"`
	Perfect       bool    `json:"perfect"`
	TotalLengthMM float64 `json:"total_length_mm"`
	StaveLengthMM float64 `json:"stave_length_mm"`
	Staves        int     `json:"staves"`
	Pages         int     `json:"pages"`
}

// Summary derives the display summary from the run outputs.
func (r *Result) Summary(speed float64) Summary {
	s := Summary{
		Sounds:        r.Melody.SoundsCount(),
		DistinctNotes: len(r.Melody.NotesUse()),
		DurationTicks: r.Melody.MaxTime(),
		Shift:         r.Transposition.Shift,
		FitRatio:      r.Transposition.Ratio,
		Perfect:       r.Transposition.Ratio == 1,
		TotalLengthMM: r.Layout.TotalLength,
		StaveLengthMM: r.Layout.StaveLength,
		Staves:        r.Layout.StavesCount,
		Pages:         r.Layout.PagesCount,
	}
	if speed > 0 {
		s.DurationMM = float64(r.Melody.MaxTime()) / speed
	}
	if d := r.Melody.MinDistance(); !math.IsInf(d, 1) && speed > 0 {
		s.MinDistanceMM = d / speed
	}
	return s
}
