// Package layout turns a transposed melody into punch positions on a
// sequence of staves, paginated onto fixed-size sheets.
//
// All geometry is in millimeters. A stave is one strip segment laid across
// the page; consecutive staves continue the same physical strip, so punch
// collision distances are measured along the whole strip, not per stave.
package layout

import (
	"math"

	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/transpose"
)

// Default page geometry: landscape A4 with the original strip speed.
const (
	DefaultPageWidth     = 297.0
	DefaultPageHeight    = 210.0
	DefaultMargin        = 5.0
	DefaultSpeed         = 67.0 // ticks per mm
	DefaultTriangleWidth = 10.0
)

// Config is the page geometry for pagination.
type Config struct {
	// PageWidth and PageHeight are the sheet dimensions in mm.
	PageWidth  float64 `json:"page_width,omitempty"`
	PageHeight float64 `json:"page_height,omitempty"`
	// Margin is the blank border on all four page edges in mm.
	Margin float64 `json:"margin,omitempty"`
	// Speed converts ticks to mm along the strip (ticks per mm).
	Speed float64 `json:"speed,omitempty"`
	// TriangleWidth is the strip length reserved on the very first stave
	// for the directional start marker.
	TriangleWidth float64 `json:"triangle_width,omitempty"`
}

// WithDefaults fills unset geometry fields.
func (c Config) WithDefaults() Config {
	if c.PageWidth == 0 {
		c.PageWidth = DefaultPageWidth
	}
	if c.PageHeight == 0 {
		c.PageHeight = DefaultPageHeight
	}
	if c.Margin == 0 {
		c.Margin = DefaultMargin
	}
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
	if c.TriangleWidth == 0 {
		c.TriangleWidth = DefaultTriangleWidth
	}
	return c
}

// Punch is a single hole to cut: a horizontal offset within its stave and
// a physical line index. Exact is false when the pitch needed fallback
// mapping; TooClose marks a punch inside the minimum distance window of
// the previous accepted punch on the same line.
type Punch struct {
	Offset   float64 `json:"offset"`
	Line     int     `json:"line"`
	Exact    bool    `json:"exact"`
	TooClose bool    `json:"too_close,omitempty"`
}

// Stave is one strip segment worth of punches. Length is the drawn length:
// nominal for all staves except the last, which covers only the remaining
// content.
type Stave struct {
	Index   int     `json:"index"`
	Length  float64 `json:"length"`
	Punches []Punch `json:"punches"`
}

// Layout is the computed pagination of a melody.
type Layout struct {
	Config Config `json:"config"`

	StaveThickness float64 `json:"stave_thickness"`
	StavesPerPage  int     `json:"staves_per_page"`
	StaveLength    float64 `json:"stave_length"`
	TotalLength    float64 `json:"total_length"`
	StavesCount    int     `json:"staves_count"`
	PagesCount     int     `json:"pages_count"`

	Staves []Stave `json:"staves"`
}

// PageStaves returns the staves that land on the given page.
func (l *Layout) PageStaves(page int) []Stave {
	start := page * l.StavesPerPage
	if start >= len(l.Staves) {
		return nil
	}
	end := start + l.StavesPerPage
	if end > len(l.Staves) {
		end = len(l.Staves)
	}
	return l.Staves[start:end]
}

// PunchCount returns the total number of punches across all staves.
func (l *Layout) PunchCount() int {
	n := 0
	for _, s := range l.Staves {
		n += len(s.Punches)
	}
	return n
}

// Build paginates the melody onto staves. Geometry is validated up front:
// a page that cannot hold a single stave fails fast before any layout
// work. An empty melody produces zero staves and zero pages.
func Build(m *melody.Melody, trans transpose.Transposition, box *musicbox.Box, cfg Config) (*Layout, error) {
	cfg = cfg.WithDefaults()

	l := &Layout{Config: cfg}
	l.StaveThickness = box.Width() + box.Config().PaddingTop + box.Config().PaddingBottom
	l.StaveLength = cfg.PageWidth - 2*cfg.Margin

	if err := validate(l, cfg); err != nil {
		return nil, err
	}
	l.StavesPerPage = int(math.Floor((cfg.PageHeight - 2*cfg.Margin) / l.StaveThickness))
	if l.StavesPerPage < 1 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry,
			"stave of %.1fmm does not fit on a %.1fmm page with %.1fmm margins",
			l.StaveThickness, cfg.PageHeight, cfg.Margin)
	}

	if m.SoundsCount() == 0 {
		return l, nil
	}

	l.TotalLength = float64(m.MaxTime())/cfg.Speed + cfg.TriangleWidth
	l.StavesCount = int(math.Ceil(l.TotalLength / l.StaveLength))
	l.PagesCount = int(math.Ceil(float64(l.StavesCount) / float64(l.StavesPerPage)))

	l.Staves = emit(m, trans, box, cfg, l)
	return l, nil
}

// validate rejects impossible page geometry.
func validate(l *Layout, cfg Config) error {
	if cfg.PageWidth <= 0 || cfg.PageHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "page size must be positive, got %.1fx%.1f", cfg.PageWidth, cfg.PageHeight)
	}
	if cfg.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "margin must not be negative, got %.1f", cfg.Margin)
	}
	if cfg.Speed <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "speed must be positive, got %.2f", cfg.Speed)
	}
	if l.StaveLength <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "margins of %.1fmm leave no stave length on a %.1fmm page", cfg.Margin, cfg.PageWidth)
	}
	if cfg.TriangleWidth < 0 || cfg.TriangleWidth >= l.StaveLength {
		return errors.New(errors.ErrCodeInvalidGeometry, "start triangle of %.1fmm does not fit the stave", cfg.TriangleWidth)
	}
	if l.StaveThickness <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "stave thickness must be positive, got %.1f", l.StaveThickness)
	}
	return nil
}

// emit walks the sounds once, in time order, advancing a shared cursor
// across staves so each sound is placed exactly once.
func emit(m *melody.Melody, trans transpose.Transposition, box *musicbox.Box, cfg Config, l *Layout) []Stave {
	staves := make([]Stave, 0, l.StavesCount)
	// Last accepted punch position per line, in strip coordinates.
	lastAccepted := make(map[int]float64)
	minDistance := box.Config().MinDistance

	cursor := 0
	for s := 0; s < l.StavesCount; s++ {
		stave := Stave{Index: s, Length: l.StaveLength}
		if s == l.StavesCount-1 {
			stave.Length = l.TotalLength - float64(l.StavesCount-1)*l.StaveLength
		}
		start := float64(s) * l.StaveLength

		for cursor < len(m.Sounds) {
			sound := m.Sounds[cursor]
			// Strip coordinate: the start triangle shifts everything.
			strip := cfg.TriangleWidth + float64(sound.Time)/cfg.Speed
			offset := strip - start
			if offset > l.StaveLength {
				break
			}

			pitch := sound.Pitch + trans.Shift
			punch := Punch{Offset: offset, Exact: box.ContainsNote(pitch)}
			if punch.Exact {
				punch.Line, _ = box.NotePosition(pitch)
			} else {
				punch.Line = box.GuessNotePosition(pitch)
			}

			if prev, ok := lastAccepted[punch.Line]; ok && strip-prev < minDistance {
				// Too close to the last accepted punch on this line. The
				// reference is deliberately not advanced: a burst of close
				// punches all compare against the same accepted one.
				punch.TooClose = true
			}
			if punch.Exact && !punch.TooClose {
				lastAccepted[punch.Line] = strip
			}

			stave.Punches = append(stave.Punches, punch)
			cursor++
		}

		staves = append(staves, stave)
	}

	return staves
}
