package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nicholaspatten/svgit/pkg/settings"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	headerStyle       = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// PresetListModel - Interactive preset selection
// =============================================================================

// PresetListModel is the bubbletea model behind convert --pick.
type PresetListModel struct {
	Names    []string
	Cursor   int
	Selected string
}

// NewPresetListModel creates a picker with the cursor on current, if it
// names a preset.
func NewPresetListModel(current string) PresetListModel {
	m := PresetListModel{Names: settings.Names()}
	for i, n := range m.Names {
		if n == current {
			m.Cursor = i
		}
	}
	return m
}

func (m PresetListModel) Init() tea.Cmd {
	return nil
}

func (m PresetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Names)-1 {
			m.Cursor++
		}
	case "enter":
		m.Selected = m.Names[m.Cursor]
		return m, tea.Quit
	}
	return m, nil
}

func (m PresetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Preset"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	rows := make([][]string, len(m.Names))
	for i, name := range m.Names {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows[i] = append([]string{cursor}, presetRow(name)...)
	}

	t := styledTable(rows, append([]string{""}, presetHeaders...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == m.Cursor:
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %s", m.Cursor+1, len(m.Names), settings.Describe(m.Names[m.Cursor]))))
	return b.String()
}

// pickPreset runs the picker and returns the chosen preset, or "" if the
// user quit without choosing.
func pickPreset(current string) (string, error) {
	final, err := tea.NewProgram(NewPresetListModel(current)).Run()
	if err != nil {
		return "", fmt.Errorf("preset picker: %w", err)
	}
	return final.(PresetListModel).Selected, nil
}

// =============================================================================
// Preset table
// =============================================================================

var presetHeaders = []string{"Preset", "Engine", "Mode", "Colors", "Corner", "Splice", "Speckle", "Precision", "Description"}

// presetRow renders one preset as table cells. The custom preset shows the
// defaults it starts from.
func presetRow(name string) []string {
	s, ok := settings.Lookup(name)
	if !ok {
		s = settings.Default()
	}
	return []string{
		name,
		s.Engine(),
		s.Mode,
		s.ColorMode + "/" + strconv.Itoa(s.ColorPrecision),
		strconv.Itoa(s.CornerThreshold),
		strconv.Itoa(s.SpliceThreshold),
		strconv.Itoa(s.FilterSpeckle),
		strconv.Itoa(s.PathPrecision),
		settings.Describe(name),
	}
}

func styledTable(rows [][]string, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...)
}
