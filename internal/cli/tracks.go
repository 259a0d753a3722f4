package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/punchroll/pkg/melody"
	"github.com/matzehuels/punchroll/pkg/smfio"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// tracksCommand creates the tracks command for listing and picking MIDI
// tracks before generation.
func (c *CLI) tracksCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "tracks [file.mid]",
		Short: "List the tracks of a MIDI file",
		Long: `List the tracks of a MIDI file.

Shows each track's index, name and note count so the right ones can be
picked with 'generate --tracks'. With --interactive, tracks are selected in
a picker and the matching generate command is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTracks(args[0], interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick tracks interactively")

	return cmd
}

// trackRow is one display row of the track listing.
type trackRow struct {
	Index int
	Name  string
	Notes int
}

// readTrackRows reads the file and builds the display rows.
func readTrackRows(input string) ([]trackRow, error) {
	tracks, err := smfio.ReadFile(input)
	if err != nil {
		return nil, err
	}
	rows := make([]trackRow, len(tracks))
	for i, t := range tracks {
		rows[i] = trackRow{Index: i, Name: t.Name, Notes: countNotes(t)}
	}
	return rows, nil
}

// pickTracks opens the interactive picker and returns the chosen indices.
// A cancelled picker returns nil, which selects all tracks.
func pickTracks(input string) ([]int, error) {
	rows, err := readTrackRows(input)
	if err != nil {
		return nil, err
	}

	final, err := tea.NewProgram(NewTrackListModel(rows)).Run()
	if err != nil {
		return nil, fmt.Errorf("track picker: %w", err)
	}

	result := final.(TrackListModel)
	if !result.Confirmed {
		return nil, nil
	}
	return result.SelectedIndices(), nil
}

// runTracks reads the file and prints or picks its tracks.
func (c *CLI) runTracks(input string, interactive bool) error {
	rows, err := readTrackRows(input)
	if err != nil {
		return err
	}

	if !interactive {
		printTrackTable(rows)
		return nil
	}

	model := NewTrackListModel(rows)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("track picker: %w", err)
	}

	result := final.(TrackListModel)
	selected := result.SelectedIndices()
	if !result.Confirmed || len(selected) == 0 {
		printInfo("No tracks selected")
		return nil
	}

	printSuccess("Selected %d tracks", len(selected))
	printNextStep("Generate the strips",
		fmt.Sprintf("punchroll generate %s --tracks %s", input, joinInts(selected)))
	return nil
}

// countNotes counts the playable note starts on a track.
func countNotes(t melody.Track) int {
	n := 0
	for _, ev := range t.Events {
		if ev.Type == melody.EventNoteOn && ev.Velocity > 0 {
			n++
		}
	}
	return n
}

// printTrackTable prints the non-interactive track listing.
func printTrackTable(rows []trackRow) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	data := make([][]string, len(rows))
	for i, r := range rows {
		name := r.Name
		if name == "" {
			name = "—"
		}
		data[i] = []string{fmt.Sprintf("%d", r.Index), name, fmt.Sprintf("%d", r.Notes)}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Track", "Notes").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if rows[row].Notes == 0 {
				return listDimStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	fmt.Println(t.Render())
}

// joinInts formats indices as a comma-separated flag value.
func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}

// =============================================================================
// TrackListModel - Interactive track selection
// =============================================================================

// TrackListModel is the bubbletea model for interactive track selection.
type TrackListModel struct {
	Tracks    []trackRow
	Cursor    int
	Checked   map[int]bool
	Confirmed bool
}

// NewTrackListModel creates a new track list model. Tracks that contain
// notes start out checked.
func NewTrackListModel(tracks []trackRow) TrackListModel {
	checked := make(map[int]bool, len(tracks))
	for _, t := range tracks {
		if t.Notes > 0 {
			checked[t.Index] = true
		}
	}
	return TrackListModel{Tracks: tracks, Checked: checked}
}

// SelectedIndices returns the checked track indices in ascending order.
func (m TrackListModel) SelectedIndices() []int {
	var out []int
	for idx, on := range m.Checked {
		if on {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

func (m TrackListModel) Init() tea.Cmd {
	return nil
}

func (m TrackListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Tracks)-1 {
				m.Cursor++
			}
		case " ":
			idx := m.Tracks[m.Cursor].Index
			m.Checked[idx] = !m.Checked[idx]
		case "a":
			for _, t := range m.Tracks {
				m.Checked[t.Index] = true
			}
		case "n":
			for _, t := range m.Tracks {
				m.Checked[t.Index] = false
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m TrackListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Tracks"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  n none  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	for i, t := range m.Tracks {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		check := "[ ]"
		if m.Checked[t.Index] {
			check = "[" + StyleSuccess.Render("x") + "]"
		}

		name := t.Name
		if name == "" {
			name = "(unnamed)"
		}
		line := fmt.Sprintf("%s%s %d  %-25s %s", cursor, check, t.Index, name,
			listDimStyle.Render(fmt.Sprintf("%d notes", t.Notes)))

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else if t.Notes == 0 {
			b.WriteString(listDimStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d selected]", len(m.SelectedIndices()), len(m.Tracks))))

	return b.String()
}
