package musicbox

import (
	"strconv"
	"strings"

	"github.com/matzehuels/punchroll/pkg/errors"
)

// letters is the 12-entry note name table, anchored at A (A0 = MIDI 21).
var letters = [12]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// letterAnchor is the MIDI number of A0, the reference pitch for the table.
const letterAnchor = 21

// semitoneClasses marks the pitch classes (pitch mod 12) that are sharps.
var semitoneClasses = map[int]bool{
	1:  true, // C#
	3:  true, // D#
	6:  true, // F#
	8:  true, // G#
	10: true, // A#
}

// IsSemitone reports whether the pitch is a sharp (black key).
func IsSemitone(pitch int) bool {
	return semitoneClasses[((pitch%12)+12)%12]
}

// Letter returns the note letter for a MIDI pitch number, e.g. "C" or "F#".
func Letter(pitch int) string {
	return letters[(((pitch-letterAnchor)%12)+12)%12]
}

// Octave returns the octave number for a MIDI pitch.
// A0 is MIDI 21 and middle C (C4) is MIDI 60.
func Octave(pitch int) int {
	if pitch < 0 {
		return (pitch-11)/12 - 1
	}
	return pitch/12 - 1
}

// NoteName formats a MIDI pitch as letter plus octave, e.g. "C4" or "A#2".
func NoteName(pitch int) string {
	return Letter(pitch) + strconv.Itoa(Octave(pitch))
}

// ParseNote converts a note name like "C4", "a#2" or "B-1" to its MIDI
// pitch number. It fails with ErrCodeInvalidNoteName on malformed input.
func ParseNote(name string) (int, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, errors.New(errors.ErrCodeInvalidNoteName, "empty note name")
	}

	letter := strings.ToUpper(s[:1])
	rest := s[1:]
	if strings.HasPrefix(rest, "#") {
		letter += "#"
		rest = rest[1:]
	}

	class := -1
	for i, l := range letters {
		if l == letter {
			class = (letterAnchor + i) % 12
			break
		}
	}
	if class < 0 {
		return 0, errors.New(errors.ErrCodeInvalidNoteName, "unknown note letter in %q", name)
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidNoteName, "bad octave in %q", name)
	}

	return (octave+1)*12 + class, nil
}
