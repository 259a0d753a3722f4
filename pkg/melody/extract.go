package melody

// EventType classifies a raw track event. The extractor only acts on note
// starts; everything else advances time and is otherwise ignored.
type EventType uint8

const (
	EventOther EventType = iota
	EventNoteOn
	EventNoteOff
)

// Event is a single delta-timed event on one track, as produced by the
// input collaborator. Velocity is kept raw: a note-on with zero velocity is
// a note end by MIDI convention and is filtered here, not at the reader.
type Event struct {
	Delta    int64
	Type     EventType
	Pitch    int
	Velocity int
}

// Track is an ordered sequence of delta-timed events plus a display name.
type Track struct {
	Name   string
	Events []Event
}

// Default pause thresholds in ticks. Empirical values; all configurable.
const (
	// DefaultStartPause is the fixed leading silence every melody gets.
	DefaultStartPause = 200
	// DefaultMaxPause caps any single pause between two sounds on a track.
	DefaultMaxPause = 3000
	// DefaultCutPause is the gap beyond which the rest of a track is
	// treated as an unrelated section and dropped.
	DefaultCutPause = 20000
)

// Options controls melody extraction.
type Options struct {
	// Tracks selects track indices to read; nil or empty selects all.
	Tracks map[int]bool `json:"tracks,omitempty"`
	// MaxPause is the largest pause kept between two sounds on one track.
	// Longer gaps are clamped to this value.
	MaxPause int64 `json:"max_pause,omitempty"`
	// CutPause is the gap beyond which a track is cut: sounds after the
	// gap are discarded rather than bridged.
	CutPause int64 `json:"cut_pause,omitempty"`
	// StartPause is the time of the earliest sound after the global shift.
	StartPause int64 `json:"start_pause,omitempty"`
}

// withDefaults fills unset thresholds.
func (o Options) withDefaults() Options {
	if o.MaxPause == 0 {
		o.MaxPause = DefaultMaxPause
	}
	if o.CutPause == 0 {
		o.CutPause = DefaultCutPause
	}
	if o.StartPause == 0 {
		o.StartPause = DefaultStartPause
	}
	return o
}

// selected reports whether track index i should be read.
func (o Options) selected(i int) bool {
	if len(o.Tracks) == 0 {
		return true
	}
	return o.Tracks[i]
}

// Extract reads the selected tracks and produces a Melody.
//
// Per track: absolute time is the running sum of all event deltas; only
// note-ons with positive velocity become sounds. The gap since the last
// kept sound is clamped to MaxPause; a gap above CutPause ends the track
// early. The leading gap before a track's first sound is clamped but never
// cuts. Afterwards every sound is shifted uniformly so the earliest one
// lands exactly at StartPause, and the result is stable-sorted by time.
func Extract(tracks []Track, opts Options) *Melody {
	opts = opts.withDefaults()

	var sounds []Sound
	for i, track := range tracks {
		if !opts.selected(i) {
			continue
		}
		sounds = extractTrack(sounds, track, i, opts)
	}

	if len(sounds) > 0 {
		min := sounds[0].Time
		for _, s := range sounds[1:] {
			if s.Time < min {
				min = s.Time
			}
		}
		shift := opts.StartPause - min
		for i := range sounds {
			sounds[i].Time += shift
		}
	}

	sortByTime(sounds)

	m := &Melody{Sounds: sounds}
	m.finalize()
	return m
}

// extractTrack appends the kept sounds of one track to dst.
func extractTrack(dst []Sound, track Track, index int, opts Options) []Sound {
	var raw, lastRaw, lastAdj int64
	first := true

	for _, ev := range track.Events {
		raw += ev.Delta
		if ev.Type != EventNoteOn || ev.Velocity <= 0 {
			continue
		}

		gap := raw - lastRaw
		if !first && gap > opts.CutPause {
			// A silence this long separates unrelated sections; the
			// remainder of the track is not bridged.
			break
		}
		if gap > opts.MaxPause {
			gap = opts.MaxPause
		}

		adj := lastAdj + gap
		dst = append(dst, Sound{Pitch: ev.Pitch, Time: adj, Track: index})
		lastRaw, lastAdj = raw, adj
		first = false
	}

	return dst
}
