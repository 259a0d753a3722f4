// Package musicbox models the physical instrument: which pitches a pinned
// music box comb can play, their physical line ordering and spacing, and the
// fallback rules for pitches the comb does not have.
package musicbox

import (
	"github.com/matzehuels/punchroll/pkg/errors"
)

// octaveShifts is the search order for mapping an unsupported pitch onto the
// comb: same octave first, then neighbouring octaves outward.
var octaveShifts = [7]int{0, 12, -12, 24, -24, 36, -36}

// Config describes a music box comb.
type Config struct {
	// FirstNote is the name of the lowest note, e.g. "C4".
	FirstNote string `toml:"first_note" json:"first_note"`
	// NotesCount is the number of comb teeth (lines on the strip).
	NotesCount int `toml:"notes_count" json:"notes_count"`
	// Semitones indicates whether the comb includes sharps.
	Semitones bool `toml:"semitones" json:"semitones"`
	// Pitch is the physical distance between adjacent lines in mm.
	Pitch float64 `toml:"pitch" json:"pitch"`
	// Reverse flips the physical line order (lowest note on top).
	Reverse bool `toml:"reverse" json:"reverse"`
	// PreferUp selects the direction tried first when substituting a
	// missing semitone: true tries one semitone up before one down.
	PreferUp bool `toml:"prefer_up" json:"prefer_up"`
	// MinDistance is the smallest workable distance in mm between two
	// punches on the same line; closer punches are flagged by the layout.
	MinDistance float64 `toml:"min_distance" json:"min_distance"`
	// PaddingTop and PaddingBottom is extra strip width in mm outside the
	// first and last line.
	PaddingTop    float64 `toml:"padding_top" json:"padding_top"`
	PaddingBottom float64 `toml:"padding_bottom" json:"padding_bottom"`
}

// Box is an immutable instrument model built from a Config.
// Lines are indexed in physical order: index 0 is the first line on the
// strip, which holds the lowest pitch unless the box is reversed.
type Box struct {
	cfg       Config
	notes     []int       // pitches in physical line order
	positions map[int]int // pitch -> physical line index
	lowest    int         // lowest pitch on the comb
	highest   int         // highest pitch on the comb
}

// New builds a Box from cfg. It enumerates ascending MIDI pitches starting
// at FirstNote, skipping sharps when the comb has no semitones, until
// NotesCount pitches are collected. Malformed note names and non-positive
// note counts fail fast.
func New(cfg Config) (*Box, error) {
	if cfg.NotesCount < 1 {
		return nil, errors.New(errors.ErrCodeInvalidBox, "notes_count must be >= 1, got %d", cfg.NotesCount)
	}
	if cfg.Pitch <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidBox, "pitch spacing must be positive, got %v", cfg.Pitch)
	}

	first, err := ParseNote(cfg.FirstNote)
	if err != nil {
		return nil, err
	}

	notes := make([]int, 0, cfg.NotesCount)
	for pitch := first; len(notes) < cfg.NotesCount; pitch++ {
		if !cfg.Semitones && IsSemitone(pitch) {
			continue
		}
		notes = append(notes, pitch)
	}

	lowest, highest := notes[0], notes[len(notes)-1]
	if cfg.Reverse {
		for i, j := 0, len(notes)-1; i < j; i, j = i+1, j-1 {
			notes[i], notes[j] = notes[j], notes[i]
		}
	}

	positions := make(map[int]int, len(notes))
	for i, pitch := range notes {
		positions[pitch] = i
	}

	return &Box{
		cfg:       cfg,
		notes:     notes,
		positions: positions,
		lowest:    lowest,
		highest:   highest,
	}, nil
}

// Notes returns the comb pitches in physical line order.
// The returned slice must not be modified.
func (b *Box) Notes() []int { return b.notes }

// NotesCount returns the number of lines on the strip.
func (b *Box) NotesCount() int { return len(b.notes) }

// Config returns the configuration the box was built from.
func (b *Box) Config() Config { return b.cfg }

// Width returns the physical strip width in mm spanned by the lines.
func (b *Box) Width() float64 {
	return float64(len(b.notes)-1) * b.cfg.Pitch
}

// ContainsNote reports whether the pitch is exactly playable on the comb.
func (b *Box) ContainsNote(pitch int) bool {
	_, ok := b.positions[pitch]
	return ok
}

// NotePosition returns the physical line index for an exactly playable
// pitch. Callers must check ContainsNote first, or use GuessNotePosition;
// an absent pitch fails with ErrCodeNoteNotFound.
func (b *Box) NotePosition(pitch int) (int, error) {
	pos, ok := b.positions[pitch]
	if !ok {
		return 0, errors.New(errors.ErrCodeNoteNotFound, "note %s (%d) is not on the box", NoteName(pitch), pitch)
	}
	return pos, nil
}

// GuessNotePosition maps an unplayable pitch to the best available line.
// It tries octave shifts {0, ±12, ±24, ±36} in that order; for each
// candidate that is a sharp on a comb without semitones it also tries the
// neighbouring naturals, in the direction order set by PreferUp. When every
// candidate misses, it clamps to the nearest physical edge. The function is
// total: it always returns a valid line index.
func (b *Box) GuessNotePosition(pitch int) int {
	for _, shift := range octaveShifts {
		candidate := pitch + shift
		if pos, ok := b.positions[candidate]; ok {
			return pos
		}
		if !b.cfg.Semitones && IsSemitone(candidate) {
			near := [2]int{candidate - 1, candidate + 1}
			if b.cfg.PreferUp {
				near[0], near[1] = candidate+1, candidate-1
			}
			for _, n := range near {
				if pos, ok := b.positions[n]; ok {
					return pos
				}
			}
		}
	}

	// Out of reach of any octave substitution: clamp to the edge.
	if pitch > b.lowest {
		return b.positions[b.highest]
	}
	return b.positions[b.lowest]
}

// NoteNameAt returns the display name of the pitch on the given line.
func (b *Box) NoteNameAt(line int) string {
	return NoteName(b.notes[line])
}
