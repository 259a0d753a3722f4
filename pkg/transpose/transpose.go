// Package transpose searches for the pitch shift that makes the largest
// share of a melody playable on a given music box.
//
// Octave-aligned shifts are preferred because they keep the melody in its
// original key feel; the search only falls back to arbitrary semitone
// shifts when the best octave shift loses too many notes.
package transpose

import (
	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/musicbox"
)

// Default search parameters.
const (
	// DefaultLower and DefaultUpper bound the shift search range.
	DefaultLower = -100
	DefaultUpper = 100
	// DefaultOctaveThreshold is the playable ratio an octave-aligned
	// shift must reach to be kept without trying semitone shifts.
	// Empirical constant; configurable.
	DefaultOctaveThreshold = 0.90
)

// Transposition is a chosen pitch shift and the fraction of sounds it
// makes playable. Computed once per melody/box pair; immutable.
type Transposition struct {
	Shift int     `json:"shift"`
	Ratio float64 `json:"ratio"`
}

// Options controls the shift search.
type Options struct {
	// Lower and Upper bound the searched shifts, inclusive.
	Lower int `json:"lower,omitempty"`
	Upper int `json:"upper,omitempty"`
	// OctavesOnly restricts the search to octave-aligned shifts. By
	// default the full-range fallback runs when the best octave-aligned
	// shift stays below OctaveThreshold.
	OctavesOnly bool `json:"octaves_only,omitempty"`
	// OctaveThreshold is the ratio at which an octave-aligned shift is
	// accepted without a semitone search.
	OctaveThreshold float64 `json:"octave_threshold,omitempty"`
}

// withDefaults fills unset search parameters.
func (o Options) withDefaults() Options {
	if o.Lower == 0 && o.Upper == 0 {
		o.Lower, o.Upper = DefaultLower, DefaultUpper
	}
	if o.OctaveThreshold == 0 {
		o.OctaveThreshold = DefaultOctaveThreshold
	}
	return o
}

// CountAvailable sums the melody's per-pitch usage over pitches that land
// exactly on the box after applying shift.
func CountAvailable(m *melody.Melody, box *musicbox.Box, shift int) int {
	count := 0
	for pitch, freq := range m.NotesUse() {
		if box.ContainsNote(pitch + shift) {
			count += freq
		}
	}
	return count
}

// Select finds the best transposition for the melody on the box.
//
// The search runs in two passes. Pass one scores only octave-aligned
// shifts; a perfect hit short-circuits, and a best ratio at or above
// OctaveThreshold (or an octaves-only search) is returned as is. Pass two
// rescores every integer shift in range. Within a pass, ties keep the
// earliest (lowest) shift. An empty melody transposes to {0, 1}.
func Select(m *melody.Melody, box *musicbox.Box, opts Options) Transposition {
	if m.SoundsCount() == 0 {
		return Transposition{Shift: 0, Ratio: 1}
	}
	opts = opts.withDefaults()

	best, perfect := search(m, box, opts, true)
	if perfect || best.Ratio >= opts.OctaveThreshold || opts.OctavesOnly {
		return best
	}

	best, _ = search(m, box, opts, false)
	return best
}

// search scores shifts ascending in [opts.Lower, opts.Upper], restricted
// to multiples of 12 when octavesOnly is set. Strict comparison keeps the
// first maximum; a ratio of 1 returns immediately.
func search(m *melody.Melody, box *musicbox.Box, opts Options, octavesOnly bool) (Transposition, bool) {
	total := float64(m.SoundsCount())
	best := Transposition{Shift: 0, Ratio: 0}

	for shift := opts.Lower; shift <= opts.Upper; shift++ {
		if octavesOnly && shift%12 != 0 {
			continue
		}
		ratio := float64(CountAvailable(m, box, shift)) / total
		if ratio == 1 {
			return Transposition{Shift: shift, Ratio: 1}, true
		}
		if ratio > best.Ratio {
			best = Transposition{Shift: shift, Ratio: ratio}
		}
	}

	return best, false
}
