package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/punchroll/pkg/cache"
	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/layout"
	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/observability"
	"github.com/matzehuels/punchroll/pkg/render"
	"github.com/matzehuels/punchroll/pkg/render/sink"
	"github.com/matzehuels/punchroll/pkg/smfio"
	"github.com/matzehuels/punchroll/pkg/transpose"
)

// Runner executes the pipeline with stage-level caching.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can safely share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer uses the default keyer and a nil
// cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → extract → transpose → layout → render
// pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	box, err := musicbox.New(opts.Box)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Artifacts: make(map[string][][]byte),
	}

	// Stage 1: Parse
	parseStart := time.Now()
	tracks, fileHash, err := r.Parse(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Tracks = tracks
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.TrackCount = len(tracks)

	opts.Logger.Info("parsed midi file",
		"file", opts.Input,
		"tracks", len(tracks),
		"duration", result.Stats.ParseTime)

	// Stage 2: Extract
	extractStart := time.Now()
	m, melodyHit, err := r.ExtractWithCacheInfo(ctx, fileHash, tracks, opts)
	if err != nil {
		return nil, err
	}
	result.Melody = m
	result.Stats.ExtractTime = time.Since(extractStart)
	result.Stats.SoundCount = m.SoundsCount()
	result.CacheInfo.MelodyHit = melodyHit

	result.MelodyHash = MelodyHash(m)

	opts.Logger.Info("extracted melody",
		"sounds", m.SoundsCount(),
		"notes", len(m.NotesUse()),
		"duration", result.Stats.ExtractTime)

	// Stage 3: Transpose
	transposeStart := time.Now()
	trans, transposeHit, err := r.SelectTranspositionWithCacheInfo(ctx, result.MelodyHash, m, box, opts)
	if err != nil {
		return nil, err
	}
	result.Transposition = trans
	result.Stats.TransposeTime = time.Since(transposeStart)
	result.CacheInfo.TransposeHit = transposeHit

	opts.Logger.Info("selected transposition",
		"shift", trans.Shift,
		"ratio", trans.Ratio,
		"duration", result.Stats.TransposeTime)

	// Stage 4: Layout
	layoutStart := time.Now()
	l, layoutHit, err := r.BuildLayoutWithCacheInfo(ctx, result.MelodyHash, m, trans, box, opts)
	if err != nil {
		return nil, err
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	opts.Logger.Info("computed layout",
		"staves", l.StavesCount,
		"pages", l.PagesCount,
		"duration", result.Stats.LayoutTime)

	// Stage 5: Render
	renderStart := time.Now()
	for _, format := range opts.Formats {
		docs, err := r.Render(ctx, l, m, trans, box, format, opts)
		if err != nil {
			return nil, err
		}
		result.Artifacts[format] = docs
	}
	result.Stats.RenderTime = time.Since(renderStart)

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Parse reads and hashes the input MIDI file. The hash covers the raw file
// bytes and anchors all downstream cache keys.
func (r *Runner) Parse(ctx context.Context, opts Options) ([]melody.Track, string, error) {
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, opts.Input)
	start := time.Now()

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Wrap(errors.ErrCodeFileNotFound, err, "midi file %q not found", opts.Input)
		} else {
			err = errors.Wrap(errors.ErrCodeFileNotFound, err, "cannot open midi file %q", opts.Input)
		}
		hooks.OnParseComplete(ctx, opts.Input, 0, time.Since(start), err)
		return nil, "", err
	}

	tracks, err := smfio.Read(bytes.NewReader(data))
	hooks.OnParseComplete(ctx, opts.Input, len(tracks), time.Since(start), err)
	if err != nil {
		return nil, "", err
	}
	return tracks, cache.Hash(data), nil
}

// ExtractWithCacheInfo extracts the melody with caching and reports whether
// the result came from the cache.
func (r *Runner) ExtractWithCacheInfo(ctx context.Context, fileHash string, tracks []melody.Track, opts Options) (*melody.Melody, bool, error) {
	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()
	extractOpts := opts.extractOptions()

	key := r.Keyer.MelodyKey(fileHash, struct {
		Tracks     []int `json:"tracks"`
		MaxPause   int64 `json:"max_pause"`
		CutPause   int64 `json:"cut_pause"`
		StartPause int64 `json:"start_pause"`
	}{opts.Tracks, opts.MaxPause, opts.CutPause, opts.StartPause})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var sounds []melody.Sound
			if err := json.Unmarshal(data, &sounds); err == nil {
				cacheHooks.OnCacheHit(ctx, "melody")
				return melody.FromSounds(sounds), true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, "melody")
	}

	hooks.OnExtractStart(ctx, len(tracks))
	start := time.Now()
	m := melody.Extract(tracks, extractOpts)
	hooks.OnExtractComplete(ctx, m.SoundsCount(), time.Since(start), nil)

	if data, err := json.Marshal(m.Sounds); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLMelody)
		cacheHooks.OnCacheSet(ctx, "melody", len(data))
	}

	return m, false, nil
}

// SelectTranspositionWithCacheInfo runs the shift search with caching.
func (r *Runner) SelectTranspositionWithCacheInfo(ctx context.Context, melodyHash string, m *melody.Melody, box *musicbox.Box, opts Options) (transpose.Transposition, bool, error) {
	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()

	key := r.Keyer.TranspositionKey(melodyHash, box.Config(), opts.Transpose)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var trans transpose.Transposition
			if err := json.Unmarshal(data, &trans); err == nil {
				cacheHooks.OnCacheHit(ctx, "transpose")
				return trans, true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, "transpose")
	}

	hooks.OnTransposeStart(ctx, m.SoundsCount())
	start := time.Now()
	trans := transpose.Select(m, box, opts.Transpose)
	hooks.OnTransposeComplete(ctx, trans.Shift, trans.Ratio, time.Since(start), nil)

	if data, err := json.Marshal(trans); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLTransposition)
		cacheHooks.OnCacheSet(ctx, "transpose", len(data))
	}

	return trans, false, nil
}

// BuildLayoutWithCacheInfo computes the pagination with caching.
func (r *Runner) BuildLayoutWithCacheInfo(ctx context.Context, melodyHash string, m *melody.Melody, trans transpose.Transposition, box *musicbox.Box, opts Options) (*layout.Layout, bool, error) {
	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()

	key := r.Keyer.LayoutKey(melodyHash, trans.Shift, box.Config(), opts.Geometry)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached layout.Layout
			if err := json.Unmarshal(data, &cached); err == nil {
				cacheHooks.OnCacheHit(ctx, "layout")
				return &cached, true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, "layout")
	}

	hooks.OnLayoutStart(ctx, m.SoundsCount())
	start := time.Now()
	l, err := layout.Build(m, trans, box, opts.Geometry)
	hooks.OnLayoutComplete(ctx, stavesOf(l), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(l); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLLayout)
		cacheHooks.OnCacheSet(ctx, "layout", len(data))
	}

	return l, false, nil
}

// Render serializes the layout in one format. Rendering is deterministic
// and cheap relative to the earlier stages, so it is never cached.
func (r *Runner) Render(ctx context.Context, l *layout.Layout, m *melody.Melody, trans transpose.Transposition, box *musicbox.Box, format string, opts Options) ([][]byte, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format, l.PagesCount)
	start := time.Now()

	var docs [][]byte
	var err error
	switch format {
	case FormatSVG:
		for _, page := range render.Pages(l, box, opts.Render) {
			docs = append(docs, sink.RenderSVG(page, sink.WithTitle(opts.Name)))
		}
	case FormatJSON:
		var data []byte
		data, err = sink.RenderJSON(l,
			sink.WithJSONName(opts.Name),
			sink.WithJSONBox(box),
			sink.WithJSONMelody(m),
			sink.WithJSONTransposition(trans),
			sink.WithJSONSources(opts.Input),
		)
		if err == nil {
			docs = [][]byte{data}
		}
	default:
		err = errors.New(errors.ErrCodeInvalidInput, "invalid format %q", format)
	}

	hooks.OnRenderComplete(ctx, format, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// MelodyHash is the content hash of an extracted melody, used to key the
// transposition and layout cache entries.
func MelodyHash(m *melody.Melody) string {
	data, _ := json.Marshal(m.Sounds)
	return cache.Hash(data)
}

func stavesOf(l *layout.Layout) int {
	if l == nil {
		return 0
	}
	return l.StavesCount
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
