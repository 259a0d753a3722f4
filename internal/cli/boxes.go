package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/punchroll/pkg/musicbox"
)

// boxesCommand creates the boxes command for listing and describing the
// supported music box models.
func (c *CLI) boxesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boxes",
		Short: "List the built-in music box models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoxList()
		},
	}

	cmd.AddCommand(c.boxShowCommand())
	cmd.AddCommand(c.boxInitCommand())

	return cmd
}

// runBoxList prints the preset table.
func runBoxList() error {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	var rows [][]string
	for _, name := range musicbox.Presets() {
		cfg, err := musicbox.Preset(name)
		if err != nil {
			return err
		}
		box, err := musicbox.New(cfg)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			name,
			cfg.FirstNote,
			fmt.Sprintf("%d", cfg.NotesCount),
			semitonesLabel(cfg.Semitones),
			fmt.Sprintf("%.1f mm", cfg.Pitch),
			fmt.Sprintf("%.1f mm", box.Width()),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Box", "First note", "Notes", "Scale", "Spacing", "Width").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	fmt.Println(t.Render())
	printNextStep("Describe a model", "punchroll boxes show 15")
	return nil
}

// boxShowCommand creates the "boxes show" subcommand.
func (c *CLI) boxShowCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "show [preset]",
		Short: "Describe one box model, including its playable notes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := boxFlags{preset: "15", file: file}
			if len(args) > 0 {
				flags.preset = args[0]
			}
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}
			return runBoxShow(cfg)
		},
	}

	cmd.Flags().StringVar(&file, "box-file", "", "TOML box definition file instead of a preset")

	return cmd
}

// runBoxShow prints one box configuration and its note lines.
func runBoxShow(cfg musicbox.Config) error {
	box, err := musicbox.New(cfg)
	if err != nil {
		return err
	}

	printKeyValue("First note", cfg.FirstNote)
	printKeyValue("Notes", fmt.Sprintf("%d", cfg.NotesCount))
	printKeyValue("Scale", semitonesLabel(cfg.Semitones))
	printKeyValue("Spacing", fmt.Sprintf("%.2f mm", cfg.Pitch))
	printKeyValue("Strip width", fmt.Sprintf("%.2f mm", box.Width()+cfg.PaddingTop+cfg.PaddingBottom))
	printKeyValue("Min distance", fmt.Sprintf("%.1f mm", cfg.MinDistance))

	names := make([]string, box.NotesCount())
	for i := range names {
		names[i] = box.NoteNameAt(i)
	}
	printNewline()
	printDetail("Lines: %s", strings.Join(names, " "))

	return nil
}

// boxInitCommand creates the "boxes init" subcommand.
func (c *CLI) boxInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [file.toml]",
		Short: "Write a template box definition file",
		Long: `Write a template box definition file.

Without an argument the template is printed to stdout. Edit the values to
match the comb of your box and pass the file to 'generate --box-file'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Print(musicbox.ExampleTOML)
				return nil
			}
			path := args[0]
			if err := os.WriteFile(path, []byte(musicbox.ExampleTOML), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printSuccess("Wrote %s", path)
			printNextStep("Use it", fmt.Sprintf("punchroll generate song.mid --box-file %s", path))
			return nil
		},
	}
}
