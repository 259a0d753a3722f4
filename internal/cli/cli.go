// Package cli implements the punchroll command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/punchroll/pkg/buildinfo"
	"github.com/matzehuels/punchroll/pkg/cache"
	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/musicbox"
	"github.com/matzehuels/punchroll/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "punchroll"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "punchroll",
		Short:        "Punchroll turns MIDI melodies into music box punch strips",
		Long:         `Punchroll reads a MIDI melody, finds the transposition that makes the most of it playable on a pinned music box, and lays the notes out as punch positions on printable paper strips.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.tracksCommand())
	root.AddCommand(c.boxesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/punchroll/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// boxFlags holds the instrument selection flags shared by several commands.
type boxFlags struct {
	preset string
	file   string
}

// register adds the --box and --box-file flags to cmd.
func (f *boxFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.preset, "box", "b", "15", "built-in box preset (see 'punchroll boxes')")
	cmd.Flags().StringVar(&f.file, "box-file", "", "TOML box definition file (overrides --box)")
}

// resolve returns the selected box configuration. A box file wins over the
// preset when both are given.
func (f *boxFlags) resolve() (musicbox.Config, error) {
	if f.file != "" {
		return musicbox.LoadFile(f.file)
	}
	return musicbox.Preset(f.preset)
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// parseTracks parses a comma-separated list of track indices.
// An empty string selects all tracks.
func parseTracks(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	tracks := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid track index %q", p)
		}
		tracks = append(tracks, n)
	}
	return tracks, nil
}
