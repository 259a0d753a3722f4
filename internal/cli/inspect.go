package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/pipeline"
)

// inspectCommand creates the inspect command: the full analysis of a MIDI
// file against a box, without writing any output files.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		box       boxFlags
		tracksStr string
		noCache   bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "inspect [file.mid]",
		Short: "Analyze a MIDI file against a box without generating output",
		Long: `Analyze a MIDI file against a box without generating output.

Runs extraction, transposition search and pagination, then prints what the
generated strips would look like: fit percentage, strip length, stave and
page counts. Useful for comparing boxes or track selections before printing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]

			tracks, err := parseTracks(tracksStr)
			if err != nil {
				return err
			}
			opts.Tracks = tracks

			cfg, err := box.resolve()
			if err != nil {
				return err
			}
			opts.Box = cfg

			return c.runInspect(cmd.Context(), opts, noCache)
		},
	}

	box.register(cmd)
	cmd.Flags().StringVarP(&tracksStr, "tracks", "t", "", "track indices to use (comma-separated, default all)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass cached stage results")

	return cmd
}

// runInspect runs the pipeline stages up to pagination and prints the result.
func (c *CLI) runInspect(ctx context.Context, opts pipeline.Options, noCache bool) error {
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	box, err := musicbox.New(opts.Box)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	p := newProgress(c.Logger)

	tracks, fileHash, err := runner.Parse(ctx, opts)
	if err != nil {
		return err
	}

	m, _, err := runner.ExtractWithCacheInfo(ctx, fileHash, tracks, opts)
	if err != nil {
		return err
	}

	hash := pipeline.MelodyHash(m)
	trans, _, err := runner.SelectTranspositionWithCacheInfo(ctx, hash, m, box, opts)
	if err != nil {
		return err
	}

	l, _, err := runner.BuildLayoutWithCacheInfo(ctx, hash, m, trans, box, opts)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Analyzed %s", opts.Input))

	result := &pipeline.Result{Melody: m, Transposition: trans, Layout: l}

	printInfo("%s on box %s (%d notes, %s)",
		opts.Name, opts.Box.FirstNote, opts.Box.NotesCount, semitonesLabel(opts.Box.Semitones))
	printNewline()
	printSummary(result.Summary(opts.Geometry.Speed))
	printLayoutWarnings(result)

	printNewline()
	printNextStep("Generate the strips", fmt.Sprintf("punchroll generate %s", opts.Input))

	return nil
}

func semitonesLabel(semitones bool) string {
	if semitones {
		return "chromatic"
	}
	return "diatonic"
}
