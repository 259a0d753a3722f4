package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/punchroll/pkg/pipeline"
	"github.com/matzehuels/punchroll/pkg/render"
)

// generateCommand creates the generate command, the main entry point of the
// tool: MIDI in, punchable strips out.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		box         boxFlags
		formatsStr  string
		tracksStr   string
		output      string
		noCache     bool
		interactive bool
	)
	opts := pipeline.Options{
		Render: render.Options{Lines: true, Notes: true, Captions: true},
	}

	cmd := &cobra.Command{
		Use:   "generate [file.mid]",
		Short: "Generate punch strips from a MIDI file",
		Long: `Generate punch strips from a MIDI file.

The melody is extracted from the selected tracks, transposed onto the target
music box, paginated into staves and written as printable SVG pages (and
optionally a JSON layout for further processing).

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			opts.Formats = parseFormats(formatsStr)

			tracks, err := parseTracks(tracksStr)
			if err != nil {
				return err
			}
			opts.Tracks = tracks

			if interactive {
				selected, err := pickTracks(opts.Input)
				if err != nil {
					return err
				}
				opts.Tracks = selected
			}

			cfg, err := box.resolve()
			if err != nil {
				return err
			}
			opts.Box = cfg

			return c.runGenerate(cmd.Context(), opts, output, noCache)
		},
	}

	// Common flags
	box.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json (comma-separated)")
	cmd.Flags().StringVarP(&tracksStr, "tracks", "t", "", "track indices to use (comma-separated, default all)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick tracks interactively before generating")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "melody name for captions and file names (default: input file name)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass cached stage results")

	// Extraction flags
	cmd.Flags().Int64Var(&opts.MaxPause, "max-pause", 0, "longest pause kept between sounds, in ticks (default 3000)")
	cmd.Flags().Int64Var(&opts.CutPause, "cut-pause", 0, "gap that cuts the rest of a track, in ticks (default 20000)")
	cmd.Flags().Int64Var(&opts.StartPause, "start-pause", 0, "leading silence before the first sound, in ticks (default 200)")

	// Transposition flags
	cmd.Flags().IntVar(&opts.Transpose.Lower, "shift-lower", 0, "lowest shift searched, in semitones (default -100)")
	cmd.Flags().IntVar(&opts.Transpose.Upper, "shift-upper", 0, "highest shift searched, in semitones (default 100)")
	cmd.Flags().BoolVar(&opts.Transpose.OctavesOnly, "octaves-only", false, "restrict the transposition search to octave shifts")
	cmd.Flags().Float64Var(&opts.Transpose.OctaveThreshold, "octave-threshold", 0, "fit ratio at which an octave shift is kept (default 0.9)")

	// Page geometry flags
	cmd.Flags().Float64Var(&opts.Geometry.PageWidth, "page-width", 0, "page width in mm (default 297, A4 landscape)")
	cmd.Flags().Float64Var(&opts.Geometry.PageHeight, "page-height", 0, "page height in mm (default 210)")
	cmd.Flags().Float64Var(&opts.Geometry.Margin, "margin", 0, "page margin in mm (default 5)")
	cmd.Flags().Float64Var(&opts.Geometry.Speed, "speed", 0, "strip speed in ticks per mm (default 67)")
	cmd.Flags().Float64Var(&opts.Geometry.TriangleWidth, "triangle", 0, "start triangle width in mm (default 10)")

	// Drawing flags
	cmd.Flags().BoolVar(&opts.Render.Lines, "lines", opts.Render.Lines, "draw a guide line per box note")
	cmd.Flags().BoolVar(&opts.Render.Notes, "notes", opts.Render.Notes, "label guide lines with note names")
	cmd.Flags().BoolVar(&opts.Render.Captions, "captions", opts.Render.Captions, "write a numbered caption under each stave")
	cmd.Flags().BoolVar(&opts.Render.Borders, "borders", false, "draw strip edges and alignment crosses for cutting")
	cmd.Flags().BoolVar(&opts.Render.CutterFont, "cutter-font", false, "render text as single strokes for plotter cutters")
	cmd.Flags().Float64Var(&opts.Render.FontSize, "font-size", 0, "label height in mm (default 2)")
	cmd.Flags().Float64Var(&opts.Render.PunchRadius, "punch-radius", 0, "punch mark radius in mm (default 1)")

	return cmd
}

// runGenerate executes the pipeline and writes the artifacts.
func (c *CLI) runGenerate(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	ctx = withLogger(ctx, c.Logger)

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Punching %s...", filepath.Base(opts.Input)))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()

	files, err := writeArtifacts(ctx, result, outputName(opts), output)
	if err != nil {
		return err
	}

	cached := result.CacheInfo.MelodyHit && result.CacheInfo.TransposeHit && result.CacheInfo.LayoutHit
	printSuccess("Generated %s", outputName(opts))
	printStats(result.Stats.SoundCount, result.Layout.StavesCount, result.Layout.PagesCount, cached)
	for _, f := range files {
		printFile(f)
	}

	printNewline()
	printSummary(result.Summary(opts.Geometry.WithDefaults().Speed))
	printLayoutWarnings(result)

	return nil
}

// outputName returns the base name used for artifact files.
func outputName(opts pipeline.Options) string {
	if opts.Name != "" {
		return opts.Name
	}
	base := filepath.Base(opts.Input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeArtifacts writes every rendered document into dir and returns the
// created paths. SVG produces one file per page, JSON a single file.
func writeArtifacts(ctx context.Context, result *pipeline.Result, name, dir string) ([]string, error) {
	logger := loggerFromContext(ctx)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	var files []string
	for format, docs := range result.Artifacts {
		for i, data := range docs {
			path := artifactPath(dir, name, format, i, len(docs))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", path, err)
			}
			logger.Debugf("Wrote %s: %d bytes", path, len(data))
			files = append(files, path)
		}
	}
	return files, nil
}

// artifactPath builds the file name for one document. Multi-page formats get
// a page suffix.
func artifactPath(dir, name, format string, index, total int) string {
	if total == 1 {
		return filepath.Join(dir, fmt.Sprintf("%s.%s", name, format))
	}
	return filepath.Join(dir, fmt.Sprintf("%s_page%d.%s", name, index+1, format))
}

// printSummary prints the run summary in the style of the strip footer.
func printSummary(s pipeline.Summary) {
	printKeyValue("Sounds", fmt.Sprintf("%d", s.Sounds))
	printKeyValue("Notes", fmt.Sprintf("%d distinct", s.DistinctNotes))
	printKeyValue("Duration", fmt.Sprintf("%d ticks (%.1f mm)", s.DurationTicks, s.DurationMM))
	if s.MinDistanceMM > 0 {
		printKeyValue("Min distance", fmt.Sprintf("%.1f mm", s.MinDistanceMM))
	}

	fit := fmt.Sprintf("%.1f%% at shift %+d", s.FitRatio*100, s.Shift)
	if s.Perfect {
		fit = fmt.Sprintf("shift %+d ", s.Shift) + StyleSuccess.Render("PERFECT")
	}
	printKeyValue("Transpose", fit)

	printKeyValue("Length", fmt.Sprintf("%.0f mm (%d staves of %.0f mm)", s.TotalLengthMM, s.Staves, s.StaveLengthMM))
	printKeyValue("Pages", fmt.Sprintf("%d", s.Pages))
}

// printLayoutWarnings reports punches that need manual attention on the
// printed strip.
func printLayoutWarnings(result *pipeline.Result) {
	guessed, tooClose := 0, 0
	for _, stave := range result.Layout.Staves {
		for _, p := range stave.Punches {
			if !p.Exact {
				guessed++
			}
			if p.TooClose {
				tooClose++
			}
		}
	}

	if guessed > 0 {
		printNewline()
		printWarning("%d notes are not on the box and were moved to the nearest line (marked red)", guessed)
	}
	if tooClose > 0 {
		if guessed == 0 {
			printNewline()
		}
		printWarning("%d punches are closer than the box can replay (marked hollow)", tooClose)
	}
}
