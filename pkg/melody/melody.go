// Package melody turns a raw multi-track note event stream into a flat,
// time-ordered sequence of sounds, with pause normalization applied.
//
// The package does not parse MIDI itself: it consumes the Track/Event shape
// produced by an input collaborator such as pkg/smfio, which keeps the
// extraction logic testable with synthetic streams.
package melody

import (
	"math"
	"sort"
)

// Sound is a single note start: a pitch at an absolute tick time on a track.
// Immutable once created.
type Sound struct {
	Pitch int   `json:"pitch"`
	Time  int64 `json:"time"`
	Track int   `json:"track"`
}

// Melody is an ordered sequence of sounds, sorted ascending by time with
// extraction order breaking ties. Derived values are computed once at
// construction and never change.
type Melody struct {
	Sounds []Sound `json:"sounds"`

	notesUse    map[int]int
	maxTime     int64
	minDistance float64
}

// FromSounds builds a Melody from an already extracted and ordered sound
// list, recomputing the derived values. Used when loading a cached melody.
func FromSounds(sounds []Sound) *Melody {
	m := &Melody{Sounds: sounds}
	m.finalize()
	return m
}

// finalize computes the cached derived values from the sound list.
func (m *Melody) finalize() {
	m.notesUse = make(map[int]int, 16)
	m.maxTime = 0
	for _, s := range m.Sounds {
		m.notesUse[s.Pitch]++
		if s.Time > m.maxTime {
			m.maxTime = s.Time
		}
	}
	m.minDistance = computeMinDistance(m.Sounds)
}

// computeMinDistance finds the smallest positive time gap between two
// consecutive occurrences of the same pitch. Zero gaps are duplicates and
// ignored. Returns +Inf when no pitch occurs at two distinct times.
func computeMinDistance(sounds []Sound) float64 {
	seen := make(map[int]int64)

	best := int64(math.MaxInt64)
	found := false
	for _, s := range sounds {
		prev, ok := seen[s.Pitch]
		if !ok {
			seen[s.Pitch] = s.Time
			continue
		}
		diff := s.Time - prev
		if diff == 0 {
			continue
		}
		if diff < best {
			best = diff
			found = true
		}
		seen[s.Pitch] = s.Time
	}

	if !found {
		return math.Inf(1)
	}
	return float64(best)
}

// SoundsCount returns the total number of sounds in the melody.
func (m *Melody) SoundsCount() int { return len(m.Sounds) }

// NotesUse returns how many times each pitch appears in the melody.
// The returned map must not be modified.
func (m *Melody) NotesUse() map[int]int { return m.notesUse }

// MaxTime returns the time of the last sound, or 0 for an empty melody.
func (m *Melody) MaxTime() int64 { return m.maxTime }

// MinDistance returns the shortest positive time gap between two
// consecutive sounds of the same pitch, or +Inf when undefined.
func (m *Melody) MinDistance() float64 { return m.minDistance }

// sortByTime stable-sorts sounds ascending by time, keeping extraction
// order for equal timestamps.
func sortByTime(sounds []Sound) {
	sort.SliceStable(sounds, func(i, j int) bool {
		return sounds[i].Time < sounds[j].Time
	})
}
