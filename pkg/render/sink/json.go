package sink

import (
	"encoding/json"

	"github.com/matzehuels/punchroll/pkg/layout"
	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/transpose"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	name    string
	box     *musicbox.Box
	melody  *melody.Melody
	trans   *transpose.Transposition
	sources []string
}

// WithJSONName records the melody name in the output.
func WithJSONName(name string) JSONOption { return func(r *jsonRenderer) { r.name = name } }

// WithJSONBox includes the box configuration and line note names, so the
// document can be re-rendered without the original box definition.
func WithJSONBox(b *musicbox.Box) JSONOption { return func(r *jsonRenderer) { r.box = b } }

// WithJSONMelody embeds the extracted melody for round-trip layout rebuilds.
func WithJSONMelody(m *melody.Melody) JSONOption { return func(r *jsonRenderer) { r.melody = m } }

// WithJSONTransposition records the chosen shift and its playable ratio.
func WithJSONTransposition(t transpose.Transposition) JSONOption {
	return func(r *jsonRenderer) { r.trans = &t }
}

// WithJSONSources records the input file names the document was built from.
func WithJSONSources(sources ...string) JSONOption {
	return func(r *jsonRenderer) { r.sources = sources }
}

type jsonOutput struct {
	Name          string                   `json:"name,omitempty"`
	Sources       []string                 `json:"sources,omitempty"`
	Box           *jsonBox                 `json:"box,omitempty"`
	Transposition *transpose.Transposition `json:"transposition,omitempty"`
	Melody        *melody.Melody           `json:"melody,omitempty"`
	Layout        *layout.Layout           `json:"layout"`
}

type jsonBox struct {
	Config musicbox.Config `json:"config"`
	Notes  []string        `json:"notes"`
}

// RenderJSON exports the layout, and optionally the inputs that produced
// it, as a pretty-printed JSON document. This is the data interchange
// format for punchroll: cache entries, external tooling and round-trip
// re-rendering all consume it. Output field order is fixed, so identical
// inputs serialize to identical bytes.
func RenderJSON(l *layout.Layout, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Name:          r.name,
		Sources:       r.sources,
		Transposition: r.trans,
		Melody:        r.melody,
		Layout:        l,
	}

	if r.box != nil {
		names := make([]string, r.box.NotesCount())
		for i := range names {
			names[i] = r.box.NoteNameAt(i)
		}
		out.Box = &jsonBox{Config: r.box.Config(), Notes: names}
	}

	return json.MarshalIndent(out, "", "  ")
}
