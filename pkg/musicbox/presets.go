package musicbox

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/punchroll/pkg/errors"
)

// presets holds the built-in music box models. The 15, 20 and 30 tooth
// combs are the common hand-crank paper-strip boxes; none of them include
// semitones.
var presets = map[string]Config{
	"15": {
		FirstNote:     "C4",
		NotesCount:    15,
		Semitones:     false,
		Pitch:         2.0,
		MinDistance:   7.0,
		PaddingTop:    6.25,
		PaddingBottom: 6.25,
	},
	"20": {
		FirstNote:     "C4",
		NotesCount:    20,
		Semitones:     false,
		Pitch:         3.0,
		MinDistance:   7.0,
		PaddingTop:    6.5,
		PaddingBottom: 6.5,
	},
	"30": {
		FirstNote:     "C3",
		NotesCount:    30,
		Semitones:     true,
		Pitch:         2.0,
		MinDistance:   7.0,
		PaddingTop:    6.0,
		PaddingBottom: 6.0,
	},
}

// Presets returns the names of the built-in box models, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the configuration of a built-in box model.
// Unknown names fail with ErrCodeBoxNotFound.
func Preset(name string) (Config, error) {
	cfg, ok := presets[name]
	if !ok {
		return Config{}, errors.New(errors.ErrCodeBoxNotFound, "unknown box preset %q (available: %v)", name, Presets())
	}
	return cfg, nil
}

// MustPreset returns a built-in configuration and panics on unknown names.
// Only for static preset names, where a miss is a programming error.
func MustPreset(name string) Config {
	cfg, err := Preset(name)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadFile reads a box configuration from a TOML file. Missing fields keep
// their zero values; the caller typically merges the result over a preset
// or over defaults before calling New.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "box file %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidBox, err, "read box file %s", path)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidBox, err, "decode box file %s", path)
	}
	return cfg, nil
}

// ExampleTOML is a template box file shown by the CLI.
const ExampleTOML = `# punchroll music box definition
first_note = "C4"   # lowest note on the comb
notes_count = 15    # number of teeth / strip lines
semitones = false   # whether the comb includes sharps
pitch = 2.0         # line spacing in mm
reverse = false     # flip physical line order
prefer_up = false   # substitute missing sharps downward first
min_distance = 7.0  # minimum workable punch distance in mm
padding_top = 6.25  # strip margin above the first line in mm
padding_bottom = 6.25
`
